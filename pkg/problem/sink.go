package problem

import (
	"slices"
	"sync"
)

// Sink collects problems, dropping duplicates on insert.
// It is safe for concurrent use, so the checker and the cycle detector can
// report into the same sink. The zero value is an empty sink; a nil *Sink
// discards everything.
type Sink struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	problems []Problem
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{seen: make(map[string]struct{})}
}

// Add records p unless an identical problem was already recorded.
// It reports whether p was new.
func (s *Sink) Add(p Problem) bool {
	if s == nil {
		return false
	}
	key := p.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.problems = append(s.problems, p)
	return true
}

// Merge adds every problem of other to s.
func (s *Sink) Merge(other *Sink) {
	for _, p := range other.Problems() {
		s.Add(p)
	}
}

// Len returns the number of distinct problems recorded.
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.problems)
}

// Problems returns a copy of the recorded problems in priority order.
// Problems of the same kind keep their insertion order.
func (s *Sink) Problems() []Problem {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	out := slices.Clone(s.problems)
	s.mu.Unlock()

	Sort(out)
	return out
}

// Counts returns the number of recorded problems per kind.
func (s *Sink) Counts() Counts {
	return CountKinds(s.Problems())
}

// Sort orders problems by kind priority, keeping insertion order within a kind.
func Sort(ps []Problem) {
	slices.SortStableFunc(ps, func(a, b Problem) int { return int(a.Kind) - int(b.Kind) })
}

// Filter returns the problems whose kind is one of kinds.
func Filter(ps []Problem, kinds ...Kind) []Problem {
	var out []Problem
	for _, p := range ps {
		if slices.Contains(kinds, p.Kind) {
			out = append(out, p)
		}
	}
	return out
}

// Counts maps a kind to the number of problems of that kind.
type Counts map[Kind]int

// CountKinds tallies ps by kind.
func CountKinds(ps []Problem) Counts {
	c := make(Counts)
	for _, p := range ps {
		c[p.Kind]++
	}
	return c
}

// Total returns the sum over all kinds.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
