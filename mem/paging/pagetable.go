package paging

import (
	"container/list"
)

// PageID identifies a page. Page IDs are never reused in one engine.
type PageID int

// A Page is an entry in the page table, maintaining the information about
// where a logical page of a job lives in physical memory.
type Page struct {
	ID         PageID `json:"page_id"`
	JobID      JobID  `json:"job_id"`
	FrameIndex int    `json:"frame_index"`
	// Index is the logical page number inside the job.
	Index int `json:"index"`
	// Offset is the first logical address of the page inside the job.
	Offset int `json:"offset"`
}

// A PageTable maps page IDs to the frames that hold them.
type PageTable interface {
	Insert(page Page)
	Remove(pageID PageID)
	Find(pageID PageID) (Page, bool)
	Len() int
	// Pages returns all the entries in insertion order.
	Pages() []Page
}

// NewPageTable creates a new PageTable.
func NewPageTable() PageTable {
	return &pageTableImpl{
		entries:      list.New(),
		entriesTable: make(map[PageID]*list.Element),
	}
}

// pageTableImpl keeps the pages in a list for ordered listing and in a map
// for constant-time lookup. Since page IDs are issued in increasing order,
// insertion order is also ascending page ID order.
type pageTableImpl struct {
	entries      *list.List
	entriesTable map[PageID]*list.Element
}

// Insert puts a new page into the PageTable.
func (t *pageTableImpl) Insert(page Page) {
	t.pageMustNotExist(page.ID)

	elem := t.entries.PushBack(page)
	t.entriesTable[page.ID] = elem
}

// Remove removes the entry of the given page.
func (t *pageTableImpl) Remove(pageID PageID) {
	t.pageMustExist(pageID)

	elem := t.entriesTable[pageID]
	t.entries.Remove(elem)
	delete(t.entriesTable, pageID)
}

// Find returns the page with the given ID. The bool return value indicates if
// the page is found or not.
func (t *pageTableImpl) Find(pageID PageID) (Page, bool) {
	elem, found := t.entriesTable[pageID]
	if found {
		return elem.Value.(Page), true
	}

	return Page{}, false
}

func (t *pageTableImpl) Len() int {
	return t.entries.Len()
}

func (t *pageTableImpl) Pages() []Page {
	pages := make([]Page, 0, t.entries.Len())
	for e := t.entries.Front(); e != nil; e = e.Next() {
		pages = append(pages, e.Value.(Page))
	}

	return pages
}

func (t *pageTableImpl) pageMustExist(pageID PageID) {
	_, found := t.entriesTable[pageID]
	if !found {
		panic("page does not exist")
	}
}

func (t *pageTableImpl) pageMustNotExist(pageID PageID) {
	_, found := t.entriesTable[pageID]
	if found {
		panic("page exist")
	}
}
