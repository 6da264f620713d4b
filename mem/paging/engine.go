// Package paging models a paged virtual-memory manager. Jobs are split
// into fixed-size pages, pages are placed in physical frames, and logical
// addresses are translated into physical ones.
package paging

import (
	"sort"

	"github.com/sarchlab/pagesim/sim"
	"github.com/sarchlab/pagesim/sim/id"
)

// DefaultMaxJobSize is the largest job the engine admits unless configured
// otherwise (100 MiB).
const DefaultMaxJobSize = 100 * 1024 * 1024

// Hook positions at which the engine invokes its hooks. For the successful
// operations, Item is the Admission, Translation, or Removal. For the failed
// ones, Item is the *Error and Detail is the name of the operation.
var (
	HookPosJobAdmitted       = &sim.HookPos{Name: "JobAdmitted"}
	HookPosAddressTranslated = &sim.HookPos{Name: "AddressTranslated"}
	HookPosJobRemoved        = &sim.HookPos{Name: "JobRemoved"}
	HookPosOperationRejected = &sim.HookPos{Name: "OperationRejected"}
	HookPosInconsistency     = &sim.HookPos{Name: "Inconsistency"}
)

// Manager is the contract of a paged memory manager.
type Manager interface {
	AdmitJob(name string, size int) (Admission, error)
	TranslateAddress(jobID JobID, logicalAddress int) (Translation, error)
	RemoveJob(jobID JobID) (Removal, error)
	ReportState() MemorySnapshot
}

// Engine owns the frame pool, the page table, and the job registry. It is not
// safe for concurrent use; see Synchronized.
type Engine struct {
	sim.HookableBase

	pageSize   int
	maxJobSize int

	frames    *framePool
	pageTable PageTable
	jobs      map[JobID]*job

	selector FrameSelector
	jobIDs   id.Generator
	pageIDs  id.Generator
}

// PageSize returns the number of bytes in a page and in a frame.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// FrameCount returns the number of physical frames.
func (e *Engine) FrameCount() int {
	return e.frames.size()
}

// MaxJobSize returns the largest admissible job size in bytes.
func (e *Engine) MaxJobSize() int {
	return e.maxJobSize
}

// NumFreeFrames returns the number of unoccupied frames.
func (e *Engine) NumFreeFrames() int {
	return e.frames.numFree()
}

// NumJobs returns the number of live jobs.
func (e *Engine) NumJobs() int {
	return len(e.jobs)
}

// Job returns the summary of a live job.
func (e *Engine) Job(jobID JobID) (JobSummary, bool) {
	j, found := e.jobs[jobID]
	if !found {
		return JobSummary{}, false
	}

	return j.summary(e.pageSize), true
}

// AdmitJob divides a job into pages and places every page in a free frame.
// Either all the pages are placed or nothing changes.
func (e *Engine) AdmitJob(name string, size int) (Admission, error) {
	if size <= 0 {
		return Admission{}, e.reject("AdmitJob", newInvalidJobSizeError(size))
	}

	if size > e.maxJobSize {
		return Admission{}, e.reject("AdmitJob",
			newJobTooLargeError(size, e.maxJobSize))
	}

	pagesNeeded := PagesNeeded(size, e.pageSize)

	available := e.frames.numFree()
	if available < pagesNeeded {
		return Admission{}, e.reject("AdmitJob",
			newInsufficientFramesError(pagesNeeded, available))
	}

	selected := e.selector.Select(e.frames.freeIndices(), pagesNeeded)
	if err := e.selectionMustBeValid(selected, pagesNeeded); err != nil {
		return Admission{}, e.reject("AdmitJob", err)
	}

	j := &job{
		id:    JobID(e.jobIDs.Next()),
		name:  name,
		size:  size,
		pages: make([]PageID, pagesNeeded),
	}

	for i, frameIndex := range selected {
		page := Page{
			ID:         PageID(e.pageIDs.Next()),
			JobID:      j.id,
			FrameIndex: frameIndex,
			Index:      i,
			Offset:     i * e.pageSize,
		}

		e.frames.occupy(frameIndex, j.id, page.ID)
		e.pageTable.Insert(page)
		j.pages[i] = page.ID
	}

	e.jobs[j.id] = j

	admission := Admission{
		JobID:                 j.id,
		Name:                  j.name,
		Size:                  j.size,
		Pages:                 append([]PageID(nil), j.pages...),
		Frames:                selected,
		InternalFragmentation: InternalFragmentation(size, e.pageSize),
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosJobAdmitted,
		Item:   admission,
	})

	return admission, nil
}

func (e *Engine) selectionMustBeValid(selected []int, n int) *Error {
	if len(selected) != n {
		return newInvalidFrameSelectionError(
			"selector returned the wrong number of frames")
	}

	seen := make(map[int]bool, n)
	for _, frameIndex := range selected {
		if seen[frameIndex] {
			return newInvalidFrameSelectionError(
				"selector returned a frame more than once")
		}

		if !e.frames.isFree(frameIndex) {
			return newInvalidFrameSelectionError(
				"selector returned a frame that is not free")
		}

		seen[frameIndex] = true
	}

	return nil
}

// TranslateAddress resolves a logical address of a job into a physical
// address. It does not change any state.
func (e *Engine) TranslateAddress(
	jobID JobID,
	logicalAddress int,
) (Translation, error) {
	if logicalAddress < 0 {
		return Translation{}, e.reject("TranslateAddress",
			newInvalidAddressError(logicalAddress))
	}

	j, found := e.jobs[jobID]
	if !found {
		return Translation{}, e.reject("TranslateAddress",
			newJobNotFoundError(jobID))
	}

	if logicalAddress >= j.size {
		return Translation{}, e.reject("TranslateAddress",
			newAddressOutOfBoundsError(jobID, logicalAddress, j.size))
	}

	pageIndex := logicalAddress / e.pageSize
	offset := logicalAddress % e.pageSize

	if pageIndex >= len(j.pages) {
		return Translation{}, e.reject("TranslateAddress",
			newPageIndexOutOfBoundsError(jobID, pageIndex, len(j.pages)))
	}

	pageID := j.pages[pageIndex]

	page, found := e.pageTable.Find(pageID)
	if !found {
		return Translation{}, e.reject("TranslateAddress",
			newPageTableInconsistencyError(jobID, pageID))
	}

	translation := Translation{
		JobID:            jobID,
		LogicalAddress:   logicalAddress,
		LogicalPageIndex: pageIndex,
		PageOffset:       offset,
		PageID:           pageID,
		FrameIndex:       page.FrameIndex,
		PhysicalAddress:  page.FrameIndex*e.pageSize + offset,
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosAddressTranslated,
		Item:   translation,
	})

	return translation, nil
}

// RemoveJob frees every frame held by a job and forgets the job and its
// pages. Either everything is released or nothing changes.
func (e *Engine) RemoveJob(jobID JobID) (Removal, error) {
	if jobID <= 0 {
		return Removal{}, e.reject("RemoveJob", newInvalidJobIDError(jobID))
	}

	j, found := e.jobs[jobID]
	if !found {
		return Removal{}, e.reject("RemoveJob", newJobNotFoundError(jobID))
	}

	pages, err := e.collectPages(j)
	if err != nil {
		return Removal{}, e.reject("RemoveJob", err)
	}

	freed := make([]int, 0, len(pages))
	for _, page := range pages {
		e.frames.release(page.FrameIndex)
		e.pageTable.Remove(page.ID)
		freed = append(freed, page.FrameIndex)
	}

	delete(e.jobs, jobID)

	removal := Removal{
		JobID:       jobID,
		Name:        j.name,
		PagesFreed:  len(pages),
		FramesFreed: freed,
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    HookPosJobRemoved,
		Item:   removal,
	})

	return removal, nil
}

// collectPages looks up every page of the job and checks that its frame is
// tagged with it, so that a removal never stops halfway.
func (e *Engine) collectPages(j *job) ([]Page, *Error) {
	pages := make([]Page, 0, len(j.pages))

	for _, pageID := range j.pages {
		page, found := e.pageTable.Find(pageID)
		if !found {
			return nil, newPageTableInconsistencyError(j.id, pageID)
		}

		frame := e.frames.get(page.FrameIndex)
		if !frame.Occupied || frame.JobID != j.id || frame.PageID != pageID {
			return nil, newInvariantViolationError(
				"frame %d does not hold page %d of job %d",
				page.FrameIndex, pageID, j.id)
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// ReportState returns a copy of the whole state of the engine.
func (e *Engine) ReportState() MemorySnapshot {
	pages := e.pageTable.Pages()
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })

	table := make([]PageTableEntry, 0, len(pages))
	for _, p := range pages {
		table = append(table, PageTableEntry{
			PageID:     p.ID,
			FrameIndex: p.FrameIndex,
			JobID:      p.JobID,
		})
	}

	jobs := make([]JobSummary, 0, len(e.jobs))
	for _, j := range e.jobs {
		jobs = append(jobs, j.summary(e.pageSize))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	return MemorySnapshot{
		PageSize:   e.pageSize,
		FrameCount: e.frames.size(),
		Frames:     e.frames.snapshot(),
		PageTable:  table,
		Jobs:       jobs,
	}
}

// CheckInvariants verifies that the frame pool, the page table, and the job
// registry agree with each other. It returns nil when they do.
func (e *Engine) CheckInvariants() error {
	totalPages := 0

	for _, j := range e.jobs {
		if len(j.pages) != PagesNeeded(j.size, e.pageSize) {
			return newInvariantViolationError(
				"job %d has %d pages, expected %d",
				j.id, len(j.pages), PagesNeeded(j.size, e.pageSize))
		}

		if _, err := e.collectPages(j); err != nil {
			return err
		}

		totalPages += len(j.pages)
	}

	if e.pageTable.Len() != totalPages {
		return newInvariantViolationError(
			"page table has %d entries, jobs own %d pages",
			e.pageTable.Len(), totalPages)
	}

	if e.frames.numUsed() != totalPages {
		return newInvariantViolationError(
			"%d frames are occupied, jobs own %d pages",
			e.frames.numUsed(), totalPages)
	}

	return nil
}

func (e *Engine) reject(op string, err *Error) *Error {
	pos := HookPosOperationRejected
	if err.Internal() {
		pos = HookPosInconsistency
	}

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item:   err,
		Detail: op,
	})

	return err
}
