package shell

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/tracing"
)

// PrintAdmission writes the report of an admitted job.
func PrintAdmission(w io.Writer, a paging.Admission) {
	fmt.Fprintln(w, "\n=== Job Allocated Successfully ===")
	fmt.Fprintf(w, "Job ID: %d\n", a.JobID)
	fmt.Fprintf(w, "Job Name: %s\n", a.Name)
	fmt.Fprintf(w, "Job Size: %d bytes\n", a.Size)
	fmt.Fprintf(w, "Pages Allocated: %d\n", len(a.Pages))
	fmt.Fprintf(w, "Internal Fragmentation: %d bytes\n", a.InternalFragmentation)
	fmt.Fprintf(w, "Page Numbers: %s\n", joinIDs(a.Pages))
	fmt.Fprintf(w, "Frames: %s\n", joinInts(a.Frames))
}

// PrintTranslation writes the report of a resolved address.
func PrintTranslation(w io.Writer, t paging.Translation) {
	fmt.Fprintln(w, "\n=== Address Resolution ===")
	fmt.Fprintf(w, "Job ID: %d\n", t.JobID)
	fmt.Fprintf(w, "Logical Address: %d\n", t.LogicalAddress)
	fmt.Fprintf(w, "Page Number: %d\n", t.LogicalPageIndex)
	fmt.Fprintf(w, "Page Offset: %d\n", t.PageOffset)
	fmt.Fprintf(w, "Actual Page Number: %d\n", t.PageID)
	fmt.Fprintf(w, "Frame Number: %d\n", t.FrameIndex)
	fmt.Fprintf(w, "Physical Address: %d\n", t.PhysicalAddress)
}

// PrintRemoval writes the report of a removed job.
func PrintRemoval(w io.Writer, r paging.Removal) {
	fmt.Fprintf(w, "Job %d (%s) removed successfully. Freed %d frames.\n",
		r.JobID, r.Name, len(r.FramesFreed))
}

// PrintError writes an engine error. Errors caused by a broken engine are
// marked as internal.
func PrintError(w io.Writer, err error) {
	if paging.IsInternal(err) {
		fmt.Fprintf(w, "Error: Internal error: %s\n", err)
		return
	}

	fmt.Fprintf(w, "Error: %s\n", err)
}

// PrintState writes the frame allocation, the page table, and the job table.
func PrintState(w io.Writer, s paging.MemorySnapshot) {
	fmt.Fprintln(w, "\n=== Memory State ===")
	fmt.Fprintf(w, "Page Size: %d bytes\n", s.PageSize)
	fmt.Fprintf(w, "Total Frames: %d\n", s.FrameCount)
	fmt.Fprintf(w, "Used Frames: %d / %d\n", s.UsedFrames(), s.FrameCount)
	fmt.Fprintf(w, "Utilization: %.1f%%\n", s.Utilization()*100)
	fmt.Fprintf(w, "Internal Fragmentation: %d bytes\n",
		s.TotalInternalFragmentation())

	fmt.Fprintln(w, "\nFrame Allocation:")
	fmt.Fprintf(w, "%8s%10s%12s%8s\n", "Frame", "Job ID", "Page #", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 38))

	for _, f := range s.Frames {
		if !f.Occupied {
			fmt.Fprintf(w, "%8d%10s%12s%8s\n", f.Index, "-", "-", "Free")
			continue
		}

		fmt.Fprintf(w, "%8d%10d%12d%8s\n", f.Index, f.JobID, f.PageID, "Used")
	}

	fmt.Fprintln(w, "\nPage Table:")
	fmt.Fprintf(w, "%10s%12s%10s\n", "Page #", "Frame #", "Job ID")
	fmt.Fprintln(w, strings.Repeat("-", 32))

	for _, e := range s.PageTable {
		fmt.Fprintf(w, "%10d%12d%10d\n", e.PageID, e.FrameIndex, e.JobID)
	}

	fmt.Fprintln(w, "\nJobs:")
	fmt.Fprintf(w, "%8s  %-15s%10s%8s%16s\n",
		"Job ID", "Job Name", "Size", "Pages", "Fragmentation")
	fmt.Fprintln(w, strings.Repeat("-", 59))

	for _, j := range s.Jobs {
		fmt.Fprintf(w, "%8d  %-15s%10d%8d%16d\n",
			j.ID, j.Name, j.Size, j.PageCount, j.InternalFragmentation)
	}
}

// PrintSummary writes how many operations succeeded and failed in a session.
func PrintSummary(w io.Writer, s tracing.EventStats) {
	fmt.Fprintf(w,
		"\nSession summary: %d admitted, %d translated, %d removed, %d rejected\n",
		s.Admitted, s.Translated, s.Removed, s.Rejected+s.Inconsistent)

	kinds := make([]string, 0, len(s.ErrorsByKind))
	for kind := range s.ErrorsByKind {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.ErrorsByKind[kind])
	}
}

func joinIDs(ids []paging.PageID) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(int(id))
	}

	return strings.Join(s, " ")
}

func joinInts(values []int) string {
	s := make([]string, len(values))
	for i, v := range values {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, " ")
}
