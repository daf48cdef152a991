package log

import (
	"os"
	"sync"

	"github.com/tysonmote/gommap"
)

// mapping is a read-only memory map of a sealed segment file. Sealed segments
// never change, so the map stays valid until the segment is closed.
//
// Readers hold mu shared for as long as they touch the bytes; Close takes it
// exclusively, so unmapping waits for scans already in flight.
type mapping struct {
	mu     sync.RWMutex
	closed bool
	file   *os.File
	mmap   gommap.MMap
}

func newMapping(path string) (*mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	mm, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &mapping{file: f, mmap: mm}, nil
}

// acquire pins the mapping for a reader. It returns false once the mapping
// is closed; otherwise the caller must call release when done with Bytes.
func (m *mapping) acquire() bool {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return false
	}
	return true
}

func (m *mapping) release() {
	m.mu.RUnlock()
}

func (m *mapping) Bytes() []byte {
	return m.mmap
}

func (m *mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	if err := m.mmap.UnsafeUnmap(); err != nil {
		_ = m.file.Close()
		return err
	}
	return m.file.Close()
}
