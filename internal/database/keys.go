package database

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// KeyGenerator hands out keys for new records. Observe is called with every
// key already in the log, and with keys callers write directly, so a
// generator can avoid reissuing them.
type KeyGenerator interface {
	Next() string
	Observe(key string)
}

const (
	StrategySequence = "sequence"
	StrategyUUID     = "uuid"
)

// NewKeyGenerator returns the generator for a configured strategy name.
func NewKeyGenerator(strategy string) (KeyGenerator, error) {
	switch strategy {
	case "", StrategySequence:
		return &Sequence{}, nil
	case StrategyUUID:
		return UUID{}, nil
	default:
		return nil, fmt.Errorf("unknown key strategy %q", strategy)
	}
}

// Sequence issues decimal keys "0", "1", "2", ... The log is its only
// persistence: after a restart it resumes above the largest numeric key it
// has observed.
type Sequence struct {
	next atomic.Uint64
}

func (s *Sequence) Next() string {
	return strconv.FormatUint(s.next.Add(1)-1, 10)
}

func (s *Sequence) Observe(key string) {
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n == math.MaxUint64 {
		return
	}
	for {
		cur := s.next.Load()
		if n < cur || s.next.CompareAndSwap(cur, n+1) {
			return
		}
	}
}

// UUID issues random version 4 UUIDs. Collisions with observed keys are not
// a practical concern, so Observe does nothing.
type UUID struct{}

func (UUID) Next() string      { return uuid.NewString() }
func (UUID) Observe(key string) {}
