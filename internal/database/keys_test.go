package database

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	s := &Sequence{}
	require.Equal(t, "0", s.Next())
	require.Equal(t, "1", s.Next())

	s.Observe("10")
	require.Equal(t, "11", s.Next())

	// lower, non-numeric and overflowing keys leave the counter alone
	s.Observe("3")
	s.Observe("user-7")
	s.Observe("18446744073709551615")
	require.Equal(t, "12", s.Next())
}

func TestSequenceConcurrent(t *testing.T) {
	s := &Sequence{}
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := s.Next()
				mu.Lock()
				seen[k] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 800)
}

func TestNewKeyGenerator(t *testing.T) {
	g, err := NewKeyGenerator("")
	require.NoError(t, err)
	require.IsType(t, &Sequence{}, g)

	g, err = NewKeyGenerator(StrategySequence)
	require.NoError(t, err)
	require.IsType(t, &Sequence{}, g)

	g, err = NewKeyGenerator(StrategyUUID)
	require.NoError(t, err)
	require.NotEqual(t, g.Next(), g.Next())

	_, err = NewKeyGenerator("random")
	require.Error(t, err)
}
