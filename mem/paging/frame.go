package paging

import "fmt"

// A Frame is a fixed-size slot of physical memory. JobID and PageID are only
// meaningful while the frame is occupied.
type Frame struct {
	Index    int    `json:"index"`
	Occupied bool   `json:"occupied"`
	JobID    JobID  `json:"job_id,omitempty"`
	PageID   PageID `json:"page_id,omitempty"`
}

// framePool owns every frame of the physical memory. Frames are created once
// and are never added or removed.
type framePool struct {
	frames   []Frame
	numInUse int
}

func newFramePool(count int) *framePool {
	p := &framePool{
		frames: make([]Frame, count),
	}

	for i := range p.frames {
		p.frames[i] = Frame{Index: i}
	}

	return p
}

func (p *framePool) size() int {
	return len(p.frames)
}

func (p *framePool) numFree() int {
	return len(p.frames) - p.numInUse
}

func (p *framePool) numUsed() int {
	return p.numInUse
}

// freeIndices lists the unoccupied frames in ascending index order.
func (p *framePool) freeIndices() []int {
	free := make([]int, 0, p.numFree())

	for _, f := range p.frames {
		if !f.Occupied {
			free = append(free, f.Index)
		}
	}

	return free
}

func (p *framePool) isFree(index int) bool {
	return index >= 0 && index < len(p.frames) && !p.frames[index].Occupied
}

func (p *framePool) get(index int) Frame {
	return p.frames[index]
}

func (p *framePool) occupy(index int, jobID JobID, pageID PageID) {
	p.frameMustBeFree(index)

	p.frames[index].Occupied = true
	p.frames[index].JobID = jobID
	p.frames[index].PageID = pageID
	p.numInUse++
}

func (p *framePool) release(index int) {
	p.frameMustBeOccupied(index)

	p.frames[index] = Frame{Index: index}
	p.numInUse--
}

// snapshot copies the frames so that callers cannot mutate the pool.
func (p *framePool) snapshot() []Frame {
	frames := make([]Frame, len(p.frames))
	copy(frames, p.frames)

	return frames
}

func (p *framePool) frameMustBeFree(index int) {
	if !p.isFree(index) {
		panic(fmt.Sprintf("frame %d is not free", index))
	}
}

func (p *framePool) frameMustBeOccupied(index int) {
	if index < 0 || index >= len(p.frames) || !p.frames[index].Occupied {
		panic(fmt.Sprintf("frame %d is not occupied", index))
	}
}
