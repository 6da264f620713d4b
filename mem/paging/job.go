package paging

// JobID identifies a job. Job IDs are never reused in one engine.
type JobID int

// job is the engine's private record of a live job.
type job struct {
	id   JobID
	name string
	size int
	// pages[i] backs logical page i of the job.
	pages []PageID
}

func (j *job) summary(pageSize int) JobSummary {
	pages := make([]PageID, len(j.pages))
	copy(pages, j.pages)

	return JobSummary{
		ID:                    j.id,
		Name:                  j.name,
		Size:                  j.size,
		PageCount:             len(j.pages),
		Pages:                 pages,
		InternalFragmentation: InternalFragmentation(j.size, pageSize),
	}
}

// PagesNeeded returns the number of pages that a job of the given size
// occupies, that is ceil(size / pageSize). It does not overflow for sizes
// close to math.MaxInt.
func PagesNeeded(size, pageSize int) int {
	pages := size / pageSize
	if size%pageSize != 0 {
		pages++
	}

	return pages
}

// InternalFragmentation returns the number of bytes wasted in the last page
// of a job of the given size. The result is always in [0, pageSize).
func InternalFragmentation(size, pageSize int) int {
	rem := size % pageSize
	if rem == 0 {
		return 0
	}

	return pageSize - rem
}
