package tracing

import (
	"sync"

	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/sim"
)

// EventCounter is a hook that counts the engine events by kind and the
// failures by error kind.
type EventCounter struct {
	lock       sync.Mutex
	eventNames []string
	events     map[string]uint64
	errors     map[string]uint64
}

// NewEventCounter creates a new EventCounter.
func NewEventCounter() *EventCounter {
	return &EventCounter{
		events: make(map[string]uint64),
		errors: make(map[string]uint64),
	}
}

// Func counts the event.
func (c *EventCounter) Func(ctx sim.HookCtx) {
	c.lock.Lock()
	defer c.lock.Unlock()

	name := ctx.Pos.Name
	if _, ok := c.events[name]; !ok {
		c.eventNames = append(c.eventNames, name)
	}
	c.events[name]++

	if err, ok := ctx.Item.(*paging.Error); ok {
		c.errors[err.Kind.String()]++
	}
}

// EventNames returns the names of the events seen, in order of first
// appearance.
func (c *EventCounter) EventNames() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.eventNames...)
}

// Count returns how many times the event at the hook position happened.
func (c *EventCounter) Count(pos *sim.HookPos) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.events[pos.Name]
}

// ErrorCount returns how many operations failed with the kind.
func (c *EventCounter) ErrorCount(kind paging.ErrorKind) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.errors[kind.String()]
}

// EventStats is a copy of the counters.
type EventStats struct {
	Admitted     uint64            `json:"admitted"`
	Translated   uint64            `json:"translated"`
	Removed      uint64            `json:"removed"`
	Rejected     uint64            `json:"rejected"`
	Inconsistent uint64            `json:"inconsistent"`
	ErrorsByKind map[string]uint64 `json:"errors_by_kind"`
}

// Stats returns a copy of the counters.
func (c *EventCounter) Stats() EventStats {
	c.lock.Lock()
	defer c.lock.Unlock()

	s := EventStats{
		Admitted:     c.events[paging.HookPosJobAdmitted.Name],
		Translated:   c.events[paging.HookPosAddressTranslated.Name],
		Removed:      c.events[paging.HookPosJobRemoved.Name],
		Rejected:     c.events[paging.HookPosOperationRejected.Name],
		Inconsistent: c.events[paging.HookPosInconsistency.Name],
		ErrorsByKind: make(map[string]uint64, len(c.errors)),
	}

	for kind, n := range c.errors {
		s.ErrorsByKind[kind] = n
	}

	return s
}
