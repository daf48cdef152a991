package log

import (
	"io"
	"os"
)

// store is the append side of a segment file. Each Append is a single write
// on an O_APPEND descriptor, so a concurrent reader sees either none or all
// of a record once Append has returned.
type store struct {
	*os.File
}

// createStore creates the file at path. It fails if the file already exists:
// an existing segment file is never truncated or rewritten.
func createStore(path string) (*store, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &store{File: f}, nil
}

// Append persists p and returns the number of bytes written.
func (s *store) Append(p []byte) (int, error) {
	n, err := s.File.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (s *store) Close() error {
	if err := s.File.Sync(); err != nil {
		_ = s.File.Close()
		return err
	}
	return s.File.Close()
}
