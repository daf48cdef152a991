package log

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/*
Every record in a segment is one line of text:

	<timestamp_millis>:::<key>::<value>\n

The header written once at the top of each segment is:

	#DATABASE_SEGMENT::<segment_name>::<created_at_millis>\n

Records are decoded by splitting on the first ":::" and then on the first
"::", so a key may not contain "::" or end in ":", and neither field may
contain a newline. Values are otherwise free-form.
*/

const (
	timestampSep = ":::"
	fieldSep     = "::"
	headerPrefix = "#DATABASE_SEGMENT"
	// widest timestamp, both separators and the newline
	recordOverhead = 20 + len(timestampSep) + len(fieldSep) + 1
)

// Tombstone is the reserved value that marks a key as deleted.
const Tombstone = "\x00tombstone\x00"

// Entry is an immutable key/value record stamped with its creation time.
type Entry struct {
	key       string
	value     string
	timestamp int64
}

// NewEntry builds an entry stamped with the current wall-clock time.
func NewEntry(key, value string) Entry {
	return Entry{
		key:       key,
		value:     value,
		timestamp: time.Now().UnixMilli(),
	}
}

func (e Entry) Key() string      { return e.key }
func (e Entry) Value() string    { return e.value }
func (e Entry) Timestamp() int64 { return e.timestamp }

func (e Entry) IsTombstone() bool {
	return e.value == Tombstone
}

// Validate reports whether the entry can be framed and decoded back
// unchanged.
func (e Entry) Validate() error {
	var reason string
	switch {
	case e.key == "":
		reason = "empty key"
	case strings.Contains(e.key, fieldSep):
		reason = "key contains " + strconv.Quote(fieldSep)
	case strings.HasSuffix(e.key, ":"):
		reason = `key ends with ":"`
	case strings.ContainsAny(e.key, "\r\n"):
		reason = "key contains a line break"
	case strings.ContainsRune(e.value, '\n'):
		reason = "value contains a line break"
	case len(e.key)+len(e.value)+recordOverhead > maxRecordBytes:
		reason = fmt.Sprintf("record exceeds %d bytes", maxRecordBytes)
	default:
		return nil
	}
	return &Error{Kind: KindInvalidEntry, Op: "validate", Err: errors.New(reason)}
}

func encodeEntry(e Entry) []byte {
	var b strings.Builder
	b.Grow(20 + len(timestampSep) + len(e.key) + len(fieldSep) + len(e.value) + 1)
	b.WriteString(strconv.FormatInt(e.timestamp, 10))
	b.WriteString(timestampSep)
	b.WriteString(e.key)
	b.WriteString(fieldSep)
	b.WriteString(e.value)
	b.WriteByte('\n')
	return []byte(b.String())
}

// decodeEntry parses one record line without its trailing newline.
func decodeEntry(line string) (Entry, error) {
	ts, rest, ok := strings.Cut(line, timestampSep)
	if !ok {
		return Entry{}, errors.New("missing timestamp separator")
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Entry{}, err
	}
	key, value, ok := strings.Cut(rest, fieldSep)
	if !ok {
		return Entry{}, errors.New("missing key separator")
	}
	if key == "" {
		return Entry{}, errors.New("empty key")
	}
	return Entry{key: key, value: value, timestamp: timestamp}, nil
}

func encodeHeader(name string, createdAt int64) []byte {
	return []byte(headerPrefix + fieldSep + name + fieldSep + strconv.FormatInt(createdAt, 10) + "\n")
}

// decodeHeader parses the first line of a segment without its newline.
func decodeHeader(line string) (name string, createdAt int64, err error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != 3 || parts[0] != headerPrefix {
		return "", 0, errors.New("bad segment header")
	}
	if _, err := strconv.ParseInt(parts[1], 10, 64); err != nil {
		return "", 0, err
	}
	createdAt, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return parts[1], createdAt, nil
}
