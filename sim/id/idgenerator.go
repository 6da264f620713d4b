// Package id provides the identifier generators used by the simulator.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// Generator issues numeric identifiers. Every call returns a value strictly
// greater than all the values returned before.
type Generator interface {
	Next() uint64
	// Peek returns the value the next call to Next will return.
	Peek() uint64
}

// NewSequentialGenerator returns a generator that starts from 1.
func NewSequentialGenerator() Generator {
	return &sequentialGenerator{}
}

// NewSequentialGeneratorFrom returns a generator whose first ID is first.
// A first value of 0 is treated as 1, since 0 is never a valid ID.
func NewSequentialGeneratorFrom(first uint64) Generator {
	if first == 0 {
		first = 1
	}

	return &sequentialGenerator{last: first - 1}
}

type sequentialGenerator struct {
	last uint64
}

func (g *sequentialGenerator) Next() uint64 {
	return atomic.AddUint64(&g.last, 1)
}

func (g *sequentialGenerator) Peek() uint64 {
	return atomic.LoadUint64(&g.last) + 1
}

// Format renders a numeric ID the way it is shown to users.
func Format(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// NewSessionID returns a globally unique, sortable string that identifies one
// run of the simulator.
func NewSessionID() string {
	return xid.New().String()
}
