package paging

import (
	"math/rand"
	"time"
)

// A FrameSelector decides which free frames back the pages of a new job.
type FrameSelector interface {
	// Select returns n distinct frame indices taken from free. The i-th
	// returned frame backs logical page i. free is never shorter than n and
	// the selector may reorder it in place.
	Select(free []int, n int) []int
}

// NewRandomFrameSelector returns a selector that shuffles the free list
// uniformly and takes its prefix, so that every free frame is equally likely
// to be chosen and a job's pages are not placed contiguously.
func NewRandomFrameSelector(seed int64) FrameSelector {
	return &randomFrameSelector{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func newUnseededRandomFrameSelector() FrameSelector {
	return NewRandomFrameSelector(time.Now().UnixNano())
}

type randomFrameSelector struct {
	rng *rand.Rand
}

func (s *randomFrameSelector) Select(free []int, n int) []int {
	s.rng.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})

	selected := make([]int, n)
	copy(selected, free[:n])

	return selected
}

// NewFirstFitFrameSelector returns a selector that always picks the
// lowest-numbered free frames. It exists for deterministic demonstrations and
// tests.
func NewFirstFitFrameSelector() FrameSelector {
	return firstFitFrameSelector{}
}

type firstFitFrameSelector struct{}

func (firstFitFrameSelector) Select(free []int, n int) []int {
	selected := make([]int, n)
	copy(selected, free[:n])

	return selected
}
