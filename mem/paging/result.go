package paging

// Admission reports the outcome of a successful AdmitJob.
type Admission struct {
	JobID JobID  `json:"job_id"`
	Name  string `json:"name"`
	Size  int    `json:"size"`
	// Pages[i] and Frames[i] describe logical page i.
	Pages                 []PageID `json:"pages"`
	Frames                []int    `json:"frames"`
	InternalFragmentation int      `json:"internal_fragmentation"`
}

// Translation is the result of resolving a logical address of a job.
type Translation struct {
	JobID            JobID  `json:"job_id"`
	LogicalAddress   int    `json:"logical_address"`
	LogicalPageIndex int    `json:"logical_page_index"`
	PageOffset       int    `json:"page_offset"`
	PageID           PageID `json:"page_id"`
	FrameIndex       int    `json:"frame_index"`
	PhysicalAddress  int    `json:"physical_address"`
}

// Removal reports the outcome of a successful RemoveJob.
type Removal struct {
	JobID       JobID  `json:"job_id"`
	Name        string `json:"name"`
	PagesFreed  int    `json:"pages_freed"`
	FramesFreed []int  `json:"frames_freed"`
}
