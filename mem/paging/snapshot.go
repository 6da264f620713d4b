package paging

// JobSummary describes a live job.
type JobSummary struct {
	ID                    JobID    `json:"id"`
	Name                  string   `json:"name"`
	Size                  int      `json:"size"`
	PageCount             int      `json:"page_count"`
	Pages                 []PageID `json:"pages"`
	InternalFragmentation int      `json:"internal_fragmentation"`
}

// PageTableEntry is one row of the page table.
type PageTableEntry struct {
	PageID     PageID `json:"page_id"`
	FrameIndex int    `json:"frame_index"`
	JobID      JobID  `json:"job_id"`
}

// A MemorySnapshot is a read-only copy of the whole engine state. Frames are
// ordered by index, the page table by page ID, and the jobs by job ID.
type MemorySnapshot struct {
	PageSize   int              `json:"page_size"`
	FrameCount int              `json:"frame_count"`
	Frames     []Frame          `json:"frames"`
	PageTable  []PageTableEntry `json:"page_table"`
	Jobs       []JobSummary     `json:"jobs"`
}

// UsedFrames returns the number of occupied frames.
func (s MemorySnapshot) UsedFrames() int {
	used := 0
	for _, f := range s.Frames {
		if f.Occupied {
			used++
		}
	}

	return used
}

// FreeFrames returns the number of unoccupied frames.
func (s MemorySnapshot) FreeFrames() int {
	return s.FrameCount - s.UsedFrames()
}

// Utilization returns the fraction of frames in use, in [0, 1].
func (s MemorySnapshot) Utilization() float64 {
	if s.FrameCount == 0 {
		return 0
	}

	return float64(s.UsedFrames()) / float64(s.FrameCount)
}

// TotalInternalFragmentation sums the wasted bytes of all the live jobs.
func (s MemorySnapshot) TotalInternalFragmentation() int {
	total := 0
	for _, j := range s.Jobs {
		total += j.InternalFragmentation
	}

	return total
}

// FindJob returns the summary of the job with the given ID.
func (s MemorySnapshot) FindJob(jobID JobID) (JobSummary, bool) {
	for _, j := range s.Jobs {
		if j.ID == jobID {
			return j, true
		}
	}

	return JobSummary{}, false
}
