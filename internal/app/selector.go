package app

import (
	"math/rand"
	"sync"
	"time"
)

// Selector produces randomized orderings for question sets and option lists.
// It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector seeds a selector from the wall clock.
func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource is used by tests for deterministic orderings.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// Shuffle returns a uniformly random permutation of items; the input is left untouched.
func Shuffle[T any](s *Selector, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		r := s.intn(i + 1)
		out[i], out[r] = out[r], out[i]
	}
	return out
}

// SelectSubset shuffles ids and keeps at most desiredCount of them.
func (s *Selector) SelectSubset(ids []string, desiredCount int) []string {
	shuffled := Shuffle(s, ids)
	if desiredCount < 0 {
		desiredCount = 0
	}
	if len(shuffled) <= desiredCount {
		return shuffled
	}
	return shuffled[:desiredCount]
}
