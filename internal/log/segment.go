package log

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	segmentExt = ".segment"
	// maxRecordBytes bounds a framed record, newline included. Validate
	// enforces it so Scan can always read back what Write accepted.
	maxRecordBytes = 16 << 20
)

var errSealed = errors.New("segment is sealed")

/*
A Segment is one append-only file of the log: a header line followed by one
line per entry. The handler writes to exactly one segment at a time; once it
moves on, the old segment is sealed and only ever read again.

Only the handler's single writer calls Init, Write and seal. Scan, Lookup and
Size may run from any goroutine.
*/
type Segment struct {
	name      string
	path      string
	createdAt int64

	store  *store
	sealed atomic.Bool
	mapped atomic.Pointer[mapping]

	logger *zerolog.Logger
}

// newSegment describes a segment named after createdAt. Nothing touches the
// disk until Init.
func newSegment(dir string, createdAt int64, logger *zerolog.Logger) *Segment {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	name := strconv.FormatInt(createdAt, 10)
	return &Segment{
		name:      name,
		path:      filepath.Join(dir, name+segmentExt),
		createdAt: createdAt,
		logger:    logger,
	}
}

// openSegment reopens a segment file written by an earlier process. The
// header must be intact and agree with the file name. Reopened segments are
// always sealed.
func openSegment(path string, logger *zerolog.Logger) (*Segment, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", filepath.Base(path), err)
	}
	line, err := bufio.NewReader(f).ReadString('\n')
	_ = f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), segmentExt)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ioError("open", stem, err)
	}
	if !strings.HasSuffix(line, "\n") {
		return nil, &Error{Kind: KindMalformedRecord, Op: "open", Segment: stem, Line: 1, Err: errors.New("truncated segment header")}
	}

	name, createdAt, err := decodeHeader(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return nil, &Error{Kind: KindMalformedRecord, Op: "open", Segment: stem, Line: 1, Err: err}
	}
	if name != stem {
		return nil, &Error{Kind: KindMalformedRecord, Op: "open", Segment: stem, Line: 1,
			Err: fmt.Errorf("header names segment %s", name)}
	}

	s := &Segment{
		name:      name,
		path:      path,
		createdAt: createdAt,
		logger:    logger,
	}
	s.sealed.Store(true)
	s.mapSealed()
	return s, nil
}

func (s *Segment) Name() string     { return s.name }
func (s *Segment) Path() string     { return s.path }
func (s *Segment) CreatedAt() int64 { return s.createdAt }
func (s *Segment) Sealed() bool     { return s.sealed.Load() }

// Init creates the backing file and writes the header. It must run exactly
// once, before the first Write; a second call fails because the file exists.
func (s *Segment) Init() error {
	st, err := createStore(s.path)
	if err != nil {
		return ioError("init", s.name, err)
	}
	if _, err := st.Append(encodeHeader(s.name, s.createdAt)); err != nil {
		_ = st.Close()
		return ioError("init", s.name, err)
	}
	s.store = st
	return nil
}

// Write appends one framed record and returns the number of bytes written.
func (s *Segment) Write(e Entry) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	if s.sealed.Load() {
		return 0, ioError("write", s.name, errSealed)
	}
	if s.store == nil {
		return 0, ioError("write", s.name, errors.New("segment not initialized"))
	}

	n, err := s.store.Append(encodeEntry(e))
	if err != nil {
		return n, ioError("write", s.name, err)
	}
	s.logger.Debug().Str("segment", s.name).Int("bytes", n).Msg("wrote entry")
	return n, nil
}

// Size returns the byte length of the backing file.
func (s *Segment) Size() (uint64, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return 0, ioError("size", s.name, err)
	}
	return uint64(fi.Size()), nil
}

// Scan returns the segment's entries in file order, oldest first. Every
// range over the result reads the segment again from the start. A line that
// does not decode ends the scan with an ErrMalformedRecord error. A trailing
// line without its newline belongs to an append still in flight (or torn by
// a crash) and is not returned.
func (s *Segment) Scan() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		r, done, err := s.reader()
		if err != nil {
			yield(Entry{}, ioError("scan", s.name, err))
			return
		}
		defer done()

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), maxRecordBytes)
		sc.Split(scanRecords)

		line := 0
		for sc.Scan() {
			line++
			// the header
			if line == 1 {
				continue
			}
			e, err := decodeEntry(sc.Text())
			if err != nil {
				yield(Entry{}, &Error{Kind: KindMalformedRecord, Op: "scan", Segment: s.name, Line: line, Err: err})
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Entry{}, ioError("scan", s.name, err))
		}
	}
}

// Lookup returns the newest entry for key in this segment. Records are
// appended in order, so the last match in the file is the newest.
func (s *Segment) Lookup(key string) (Entry, bool, error) {
	var (
		found Entry
		ok    bool
	)
	for e, err := range s.Scan() {
		if err != nil {
			return Entry{}, false, err
		}
		if e.key == key {
			found, ok = e, true
		}
	}
	return found, ok, nil
}

// seal stops the segment from accepting writes and maps the file for reads.
func (s *Segment) seal() error {
	if s.sealed.Swap(true) {
		return nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return ioError("seal", s.name, err)
		}
		s.store = nil
	}
	s.mapSealed()
	return nil
}

// mapSealed memory-maps a sealed segment. When mapping fails the segment is
// still read through the file.
func (s *Segment) mapSealed() {
	m, err := newMapping(s.path)
	if err != nil {
		s.logger.Warn().Err(err).Str("segment", s.name).Msg("failed to map sealed segment, reading from file")
		return
	}
	s.mapped.Store(m)
}

// reader opens the segment for one scan. done must be called when the scan
// ends; a pinned mapping cannot be unmapped until then.
func (s *Segment) reader() (r io.Reader, done func(), err error) {
	if m := s.mapped.Load(); m != nil && m.acquire() {
		return bytes.NewReader(m.Bytes()), m.release, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func (s *Segment) Close() error {
	var err error
	if s.store != nil {
		err = s.store.Close()
		s.store = nil
	}
	if m := s.mapped.Swap(nil); m != nil {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return ioError("close", s.name, err)
	}
	return nil
}

// scanRecords splits on '\n' and drops a trailing line without one.
func scanRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), nil, nil
	}
	return 0, nil, nil
}
