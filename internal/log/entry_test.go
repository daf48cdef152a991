package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryFraming(t *testing.T) {
	e := Entry{key: "user-1", value: "hello::world:::again", timestamp: 1700000000123}

	line := encodeEntry(e)
	require.Equal(t, "1700000000123:::user-1::hello::world:::again\n", string(line))

	got, err := decodeEntry(string(line[:len(line)-1]))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestEntryFramingEmptyValue(t *testing.T) {
	e := Entry{key: "k", value: "", timestamp: 42}
	line := encodeEntry(e)

	got, err := decodeEntry(string(line[:len(line)-1]))
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestNewEntryStampsTime(t *testing.T) {
	e := NewEntry("k", "v")
	require.Equal(t, "k", e.Key())
	require.Equal(t, "v", e.Value())
	require.Positive(t, e.Timestamp())
	require.False(t, e.IsTombstone())
	require.True(t, NewEntry("k", Tombstone).IsTombstone())
}

func TestEntryValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		key, value string
		ok         bool
	}{
		"plain":               {key: "k", value: "v", ok: true},
		"single colon in key": {key: "a:b", value: "v", ok: true},
		"separators in value": {key: "k", value: "a::b:::c", ok: true},
		"empty key":           {key: "", value: "v"},
		"key with separator":  {key: "a::b", value: "v"},
		"key ending in colon": {key: "a:", value: "v"},
		"newline in key":      {key: "a\nb", value: "v"},
		"newline in value":    {key: "k", value: "a\nb"},
	} {
		t.Run(name, func(t *testing.T) {
			err := NewEntry(tc.key, tc.value).Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidEntry))
			require.Equal(t, KindInvalidEntry, KindOf(err))
		})
	}
}

func TestDecodeEntryMalformed(t *testing.T) {
	for name, line := range map[string]string{
		"empty":             "",
		"no separators":     "garbage",
		"bad timestamp":     "abc:::k::v",
		"no key separator":  "123:::kv",
		"empty key":         "123:::::v",
		"header as a entry": "#DATABASE_SEGMENT::1::1",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeEntry(line)
			require.Error(t, err)
		})
	}
}

func TestHeaderFraming(t *testing.T) {
	h := encodeHeader("1700000000000", 1700000000000)
	require.Equal(t, "#DATABASE_SEGMENT::1700000000000::1700000000000\n", string(h))

	name, createdAt, err := decodeHeader(string(h[:len(h)-1]))
	require.NoError(t, err)
	require.Equal(t, "1700000000000", name)
	require.Equal(t, int64(1700000000000), createdAt)

	_, _, err = decodeHeader("#NOT_A_SEGMENT::1::1")
	require.Error(t, err)
	_, _, err = decodeHeader("#DATABASE_SEGMENT::x::1")
	require.Error(t, err)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk full")
	err := ioError("write", "123", cause)

	require.Equal(t, KindIO, KindOf(err))
	require.ErrorIs(t, err, cause)
	require.False(t, errors.Is(err, ErrNotFound))
	require.Equal(t, "log: write segment 123: io failure: disk full", err.Error())

	require.Equal(t, KindUnknown, KindOf(cause))
	require.ErrorIs(t, &Error{Kind: KindNoActiveSegment, Op: "add"}, ErrNoActiveSegment)
}
