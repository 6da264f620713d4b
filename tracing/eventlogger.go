package tracing

import (
	"log"

	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/sim"
)

// EventLogger is a hook that prints one line per engine event.
type EventLogger struct {
	*log.Logger
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case paging.HookPosJobAdmitted:
		a, ok := ctx.Item.(paging.Admission)
		if !ok {
			return
		}

		h.Printf("admit job=%d name=%q size=%d pages=%v frames=%v frag=%d",
			a.JobID, a.Name, a.Size, a.Pages, a.Frames,
			a.InternalFragmentation)
	case paging.HookPosAddressTranslated:
		t, ok := ctx.Item.(paging.Translation)
		if !ok {
			return
		}

		h.Printf("translate job=%d addr=%d page=%d offset=%d frame=%d phys=%d",
			t.JobID, t.LogicalAddress, t.LogicalPageIndex, t.PageOffset,
			t.FrameIndex, t.PhysicalAddress)
	case paging.HookPosJobRemoved:
		r, ok := ctx.Item.(paging.Removal)
		if !ok {
			return
		}

		h.Printf("remove job=%d name=%q freed=%v", r.JobID, r.Name, r.FramesFreed)
	case paging.HookPosOperationRejected:
		h.logError("reject", ctx)
	case paging.HookPosInconsistency:
		h.logError("INCONSISTENCY", ctx)
	}
}

func (h *EventLogger) logError(tag string, ctx sim.HookCtx) {
	err, ok := ctx.Item.(*paging.Error)
	if !ok {
		return
	}

	h.Printf("%s op=%v kind=%s: %s", tag, ctx.Detail, err.Kind, err.Error())
}
