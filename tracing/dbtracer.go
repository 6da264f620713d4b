package tracing

import (
	"strconv"
	"strings"
	"sync"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/sim"
	"github.com/tebeka/atexit"
)

// Names of the tables written by the DBTracer.
const (
	AdmissionTable     = "pagesim_admissions"
	RemovalTable       = "pagesim_removals"
	TranslationTable   = "pagesim_translations"
	RejectionTable     = "pagesim_rejections"
	InconsistencyTable = "pagesim_inconsistencies"
)

const framesSeparator = ","

// AdmissionEntry is a row of the admission table.
type AdmissionEntry struct {
	Seq                   int
	Session               string
	JobID                 int
	Name                  string
	Size                  int
	NumPages              int
	Frames                string
	InternalFragmentation int
}

// RemovalEntry is a row of the removal table.
type RemovalEntry struct {
	Seq        int
	Session    string
	JobID      int
	Name       string
	PagesFreed int
	Frames     string
}

// TranslationEntry is a row of the translation table.
type TranslationEntry struct {
	Seq             int
	Session         string
	JobID           int
	LogicalAddress  int
	PageIndex       int
	PageOffset      int
	PageID          int
	FrameIndex      int
	PhysicalAddress int
}

// ErrorEntry is a row of the rejection and the inconsistency tables.
type ErrorEntry struct {
	Seq       int
	Session   string
	Operation string
	Kind      string
	JobID     int
	PageID    int
	Input     int
	Bound     int
	Message   string
}

// DBTracer is a hook that stores engine events into a DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	session string
	seq     int
}

// NewDBTracer creates the event tables and returns a tracer that writes rows
// tagged with the session ID.
func NewDBTracer(
	dataRecorder datarecording.DataRecorder,
	session string,
) *DBTracer {
	dataRecorder.CreateTable(AdmissionTable, AdmissionEntry{})
	dataRecorder.CreateTable(RemovalTable, RemovalEntry{})
	dataRecorder.CreateTable(TranslationTable, TranslationEntry{})
	dataRecorder.CreateTable(RejectionTable, ErrorEntry{})
	dataRecorder.CreateTable(InconsistencyTable, ErrorEntry{})

	t := &DBTracer{
		backend: dataRecorder,
		session: session,
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// NumRecords returns how many events have been recorded.
func (t *DBTracer) NumRecords() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.seq
}

// Func records the event carried by the hook context.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ctx.Pos {
	case paging.HookPosJobAdmitted:
		t.recordAdmission(ctx)
	case paging.HookPosAddressTranslated:
		t.recordTranslation(ctx)
	case paging.HookPosJobRemoved:
		t.recordRemoval(ctx)
	case paging.HookPosOperationRejected:
		t.recordError(RejectionTable, ctx)
	case paging.HookPosInconsistency:
		t.recordError(InconsistencyTable, ctx)
	}
}

func (t *DBTracer) recordAdmission(ctx sim.HookCtx) {
	a, ok := ctx.Item.(paging.Admission)
	if !ok {
		return
	}

	t.seq++
	t.backend.InsertData(AdmissionTable, AdmissionEntry{
		Seq:                   t.seq,
		Session:               t.session,
		JobID:                 int(a.JobID),
		Name:                  a.Name,
		Size:                  a.Size,
		NumPages:              len(a.Pages),
		Frames:                joinInts(a.Frames),
		InternalFragmentation: a.InternalFragmentation,
	})
}

func (t *DBTracer) recordTranslation(ctx sim.HookCtx) {
	tr, ok := ctx.Item.(paging.Translation)
	if !ok {
		return
	}

	t.seq++
	t.backend.InsertData(TranslationTable, TranslationEntry{
		Seq:             t.seq,
		Session:         t.session,
		JobID:           int(tr.JobID),
		LogicalAddress:  tr.LogicalAddress,
		PageIndex:       tr.LogicalPageIndex,
		PageOffset:      tr.PageOffset,
		PageID:          int(tr.PageID),
		FrameIndex:      tr.FrameIndex,
		PhysicalAddress: tr.PhysicalAddress,
	})
}

func (t *DBTracer) recordRemoval(ctx sim.HookCtx) {
	r, ok := ctx.Item.(paging.Removal)
	if !ok {
		return
	}

	t.seq++
	t.backend.InsertData(RemovalTable, RemovalEntry{
		Seq:        t.seq,
		Session:    t.session,
		JobID:      int(r.JobID),
		Name:       r.Name,
		PagesFreed: r.PagesFreed,
		Frames:     joinInts(r.FramesFreed),
	})
}

func (t *DBTracer) recordError(table string, ctx sim.HookCtx) {
	err, ok := ctx.Item.(*paging.Error)
	if !ok {
		return
	}

	op, _ := ctx.Detail.(string)

	t.seq++
	t.backend.InsertData(table, ErrorEntry{
		Seq:       t.seq,
		Session:   t.session,
		Operation: op,
		Kind:      err.Kind.String(),
		JobID:     int(err.JobID),
		PageID:    int(err.PageID),
		Input:     err.Value,
		Bound:     err.Limit,
		Message:   err.Error(),
	})
}

// Terminate writes all the buffered rows.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, framesSeparator)
}

// SplitFrames parses a frame list stored by the DBTracer.
func SplitFrames(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, framesSeparator)
	frames := make([]int, len(parts))

	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}

		frames[i] = v
	}

	return frames, nil
}
