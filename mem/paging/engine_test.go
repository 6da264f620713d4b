package paging

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pagesim/sim"
)

func mustBuild(pageSize, frameCount int) *Engine {
	e, err := MakeBuilder().
		WithPageSize(pageSize).
		WithFrameCount(frameCount).
		WithSeed(1).
		Build()
	Expect(err).NotTo(HaveOccurred())

	return e
}

var _ = Describe("Engine", func() {
	var (
		e *Engine
	)

	BeforeEach(func() {
		e = mustBuild(1024, 6)
	})

	AfterEach(func() {
		Expect(e.CheckInvariants()).To(Succeed())
	})

	Context("admitting jobs", func() {
		It("should start with every frame free", func() {
			state := e.ReportState()

			Expect(state.FrameCount).To(Equal(6))
			Expect(state.PageSize).To(Equal(1024))
			Expect(state.FreeFrames()).To(Equal(6))
			Expect(state.PageTable).To(BeEmpty())
			Expect(state.Jobs).To(BeEmpty())
			for i, f := range state.Frames {
				Expect(f.Index).To(Equal(i))
				Expect(f.Occupied).To(BeFalse())
			}
		})

		It("should divide a job into pages", func() {
			admission, err := e.AdmitJob("Editor", 2500)

			Expect(err).NotTo(HaveOccurred())
			Expect(admission.JobID).To(Equal(JobID(1)))
			Expect(admission.Name).To(Equal("Editor"))
			Expect(admission.Size).To(Equal(2500))
			Expect(admission.Pages).To(Equal([]PageID{1, 2, 3}))
			Expect(admission.Frames).To(HaveLen(3))
			Expect(admission.InternalFragmentation).To(Equal(572))
			Expect(e.NumFreeFrames()).To(Equal(3))
		})

		It("should tag every selected frame with the job and the page", func() {
			admission, err := e.AdmitJob("Editor", 3000)
			Expect(err).NotTo(HaveOccurred())

			state := e.ReportState()
			for i, frameIndex := range admission.Frames {
				frame := state.Frames[frameIndex]
				Expect(frame.Occupied).To(BeTrue())
				Expect(frame.JobID).To(Equal(admission.JobID))
				Expect(frame.PageID).To(Equal(admission.Pages[i]))
			}

			Expect(state.PageTable).To(HaveLen(3))
			for i, entry := range state.PageTable {
				Expect(entry.PageID).To(Equal(admission.Pages[i]))
				Expect(entry.FrameIndex).To(Equal(admission.Frames[i]))
				Expect(entry.JobID).To(Equal(admission.JobID))
			}
		})

		It("should accept any name", func() {
			admission, err := e.AdmitJob("  my job\twith spaces ", 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(admission.Name).To(Equal("  my job\twith spaces "))

			_, err = e.AdmitJob("", 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject non-positive sizes", func() {
			_, err := e.AdmitJob("Negative", -100)
			Expect(errors.Is(err, ErrInvalidJobSize)).To(BeTrue())

			var engineErr *Error
			Expect(errors.As(err, &engineErr)).To(BeTrue())
			Expect(engineErr.Value).To(Equal(-100))

			_, err = e.AdmitJob("Zero", 0)
			Expect(errors.Is(err, ErrInvalidJobSize)).To(BeTrue())

			Expect(e.NumJobs()).To(Equal(0))
		})

		It("should reject jobs above the size ceiling", func() {
			_, err := e.AdmitJob("Huge", DefaultMaxJobSize+1)

			Expect(errors.Is(err, ErrJobTooLarge)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("104857601"))
		})

		It("should check the size before the ceiling", func() {
			small, err := MakeBuilder().
				WithPageSize(16).
				WithFrameCount(4).
				WithMaxJobSize(32).
				Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = small.AdmitJob("Negative", -1)
			Expect(KindOf(err)).To(Equal(InvalidJobSize))

			_, err = small.AdmitJob("Big", 33)
			Expect(KindOf(err)).To(Equal(JobTooLarge))

			_, err = small.AdmitJob("Fits", 32)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should report a job larger than the memory as lacking frames", func() {
			_, err := e.AdmitJob("Big", 7*1024)

			var engineErr *Error
			Expect(errors.As(err, &engineErr)).To(BeTrue())
			Expect(engineErr.Kind).To(Equal(InsufficientFrames))
			Expect(engineErr.Value).To(Equal(7))
			Expect(engineErr.Limit).To(Equal(6))
			Expect(e.NumFreeFrames()).To(Equal(6))
		})

		It("should reject sizes close to the largest int", func() {
			unbounded, err := MakeBuilder().
				WithPageSize(2).
				WithFrameCount(4).
				WithMaxJobSize(math.MaxInt).
				WithSeed(1).
				Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = unbounded.AdmitJob("big", math.MaxInt)

			var engineErr *Error
			Expect(errors.As(err, &engineErr)).To(BeTrue())
			Expect(engineErr.Kind).To(Equal(InsufficientFrames))
			Expect(engineErr.Value).To(Equal(math.MaxInt/2 + 1))
			Expect(engineErr.Limit).To(Equal(4))
			Expect(unbounded.NumFreeFrames()).To(Equal(4))
			Expect(unbounded.CheckInvariants()).To(Succeed())
		})

		It("should not change anything when frames are insufficient", func() {
			_, err := e.AdmitJob("A", 4*1024)
			Expect(err).NotTo(HaveOccurred())
			before := e.ReportState()

			_, err = e.AdmitJob("B", 3*1024)

			Expect(errors.Is(err, ErrInsufficientFrames)).To(BeTrue())
			Expect(e.ReportState()).To(Equal(before))
		})

		It("should fill memory exactly", func() {
			_, err := e.AdmitJob("Full", 6*1024)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.NumFreeFrames()).To(Equal(0))
			Expect(e.ReportState().Utilization()).To(Equal(1.0))
		})
	})

	Context("translating addresses", func() {
		var admission Admission

		BeforeEach(func() {
			var err error
			admission, err = e.AdmitJob("Editor", 2500)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should translate every address of the job", func() {
			for addr := 0; addr < 2500; addr++ {
				t, err := e.TranslateAddress(admission.JobID, addr)
				Expect(err).NotTo(HaveOccurred())

				frame := admission.Frames[addr/1024]
				Expect(t.LogicalPageIndex).To(Equal(addr / 1024))
				Expect(t.PageOffset).To(Equal(addr % 1024))
				Expect(t.PageID).To(Equal(admission.Pages[addr/1024]))
				Expect(t.FrameIndex).To(Equal(frame))
				Expect(t.PhysicalAddress).To(Equal(frame*1024 + addr%1024))
			}
		})

		It("should reject negative addresses before looking up the job", func() {
			_, err := e.TranslateAddress(99, -1)

			Expect(KindOf(err)).To(Equal(InvalidAddress))
		})

		It("should reject unknown jobs", func() {
			_, err := e.TranslateAddress(99, 0)

			Expect(errors.Is(err, ErrJobNotFound)).To(BeTrue())
			Expect(err.Error()).To(Equal("job ID 99 not found"))
		})

		It("should reject addresses past the end of the job", func() {
			_, err := e.TranslateAddress(admission.JobID, 2500)

			var engineErr *Error
			Expect(errors.As(err, &engineErr)).To(BeTrue())
			Expect(engineErr.Kind).To(Equal(AddressOutOfBounds))
			Expect(engineErr.Value).To(Equal(2500))
			Expect(engineErr.Limit).To(Equal(2500))
			Expect(engineErr.Internal()).To(BeFalse())
		})

		It("should report a truncated page list as an internal error", func() {
			e.jobs[admission.JobID].pages = e.jobs[admission.JobID].pages[:2]

			_, err := e.TranslateAddress(admission.JobID, 2400)

			Expect(KindOf(err)).To(Equal(PageIndexOutOfBounds))
			Expect(IsInternal(err)).To(BeTrue())

			e.jobs[admission.JobID].pages = admission.Pages
		})

		It("should report a missing page table entry as an internal error", func() {
			page, _ := e.pageTable.Find(admission.Pages[1])
			e.pageTable.Remove(page.ID)

			_, err := e.TranslateAddress(admission.JobID, 1024)

			Expect(KindOf(err)).To(Equal(PageTableInconsistency))
			Expect(IsInternal(err)).To(BeTrue())
			Expect(e.CheckInvariants()).To(HaveOccurred())

			e.pageTable = rebuildPageTable(e.pageTable, page)
		})
	})

	Context("removing jobs", func() {
		It("should free the frames of the job only", func() {
			keep, err := e.AdmitJob("KeepJob", 1024)
			Expect(err).NotTo(HaveOccurred())
			remove, err := e.AdmitJob("RemoveJob", 2048)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.NumFreeFrames()).To(Equal(3))

			removal, err := e.RemoveJob(remove.JobID)

			Expect(err).NotTo(HaveOccurred())
			Expect(removal.Name).To(Equal("RemoveJob"))
			Expect(removal.PagesFreed).To(Equal(2))
			Expect(removal.FramesFreed).To(ConsistOf(remove.Frames))

			state := e.ReportState()
			Expect(state.FreeFrames()).To(Equal(5))
			Expect(state.UsedFrames()).To(Equal(1))
			Expect(state.Frames[keep.Frames[0]].JobID).To(Equal(keep.JobID))
			for _, f := range remove.Frames {
				Expect(state.Frames[f].Occupied).To(BeFalse())
				Expect(state.Frames[f].JobID).To(BeZero())
				Expect(state.Frames[f].PageID).To(BeZero())
			}
			for _, entry := range state.PageTable {
				Expect(entry.JobID).To(Equal(keep.JobID))
			}
			Expect(state.Jobs).To(HaveLen(1))
		})

		It("should reject non-positive job IDs", func() {
			_, err := e.RemoveJob(0)
			Expect(KindOf(err)).To(Equal(InvalidJobID))

			_, err = e.RemoveJob(-3)
			Expect(KindOf(err)).To(Equal(InvalidJobID))
		})

		It("should reject unknown jobs", func() {
			_, err := e.RemoveJob(42)

			Expect(errors.Is(err, ErrJobNotFound)).To(BeTrue())
		})

		It("should not remove a job twice", func() {
			a, _ := e.AdmitJob("A", 10)

			_, err := e.RemoveJob(a.JobID)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.RemoveJob(a.JobID)
			Expect(errors.Is(err, ErrJobNotFound)).To(BeTrue())
		})

		It("should leave the job untouched when its page table entry is gone", func() {
			a, _ := e.AdmitJob("A", 3000)
			page, _ := e.pageTable.Find(a.Pages[2])
			e.pageTable.Remove(page.ID)

			_, err := e.RemoveJob(a.JobID)

			Expect(KindOf(err)).To(Equal(PageTableInconsistency))
			Expect(e.NumJobs()).To(Equal(1))
			Expect(e.NumFreeFrames()).To(Equal(3))

			e.pageTable = rebuildPageTable(e.pageTable, page)
		})

		It("should let the same size be admitted again", func() {
			a, _ := e.AdmitJob("A", 5000)
			_, _ = e.AdmitJob("B", 1000)

			_, err := e.RemoveJob(a.JobID)
			Expect(err).NotTo(HaveOccurred())

			again, err := e.AdmitJob("A2", 5000)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Frames).To(HaveLen(5))
			Expect(e.NumFreeFrames()).To(Equal(0))
		})
	})

	Context("identifiers", func() {
		It("should never reuse job or page IDs", func() {
			a, _ := e.AdmitJob("A", 2048)
			_, _ = e.RemoveJob(a.JobID)
			b, _ := e.AdmitJob("B", 1024)

			Expect(b.JobID).To(Equal(JobID(2)))
			Expect(b.Pages).To(Equal([]PageID{3}))
		})

		It("should not consume IDs on failures", func() {
			_, _ = e.AdmitJob("Bad", 0)
			_, _ = e.AdmitJob("Big", 100*1024)
			a, _ := e.AdmitJob("A", 1)

			Expect(a.JobID).To(Equal(JobID(1)))
			Expect(a.Pages).To(Equal([]PageID{1}))
		})

		It("should be strictly increasing over many operations", func() {
			rng := rand.New(rand.NewSource(7))
			lastJob := JobID(0)
			lastPage := PageID(0)
			live := []JobID{}

			for i := 0; i < 500; i++ {
				if len(live) > 0 && rng.Intn(2) == 0 {
					k := rng.Intn(len(live))
					_, err := e.RemoveJob(live[k])
					Expect(err).NotTo(HaveOccurred())
					live = append(live[:k], live[k+1:]...)
					continue
				}

				a, err := e.AdmitJob("J", 1+rng.Intn(3*1024))
				if err != nil {
					Expect(errors.Is(err, ErrInsufficientFrames)).To(BeTrue())
					continue
				}

				Expect(a.JobID).To(BeNumerically(">", lastJob))
				lastJob = a.JobID
				for _, p := range a.Pages {
					Expect(p).To(BeNumerically(">", lastPage))
					lastPage = p
				}
				live = append(live, a.JobID)
				Expect(e.CheckInvariants()).To(Succeed())
			}
		})
	})

	Context("hooks", func() {
		var positions []*sim.HookPos

		BeforeEach(func() {
			positions = nil
			e.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				Expect(ctx.Domain).To(BeIdenticalTo(e))
				positions = append(positions, ctx.Pos)
			}))
		})

		It("should be invoked on every operation", func() {
			a, _ := e.AdmitJob("A", 10)
			_, _ = e.TranslateAddress(a.JobID, 5)
			_, _ = e.RemoveJob(a.JobID)
			_, _ = e.RemoveJob(a.JobID)

			Expect(positions).To(Equal([]*sim.HookPos{
				HookPosJobAdmitted,
				HookPosAddressTranslated,
				HookPosJobRemoved,
				HookPosOperationRejected,
			}))
		})

		It("should flag internal errors with their own position", func() {
			a, _ := e.AdmitJob("A", 10)
			page, _ := e.pageTable.Find(a.Pages[0])
			e.pageTable.Remove(page.ID)

			_, _ = e.TranslateAddress(a.JobID, 0)

			Expect(positions[len(positions)-1]).To(Equal(HookPosInconsistency))

			e.pageTable = rebuildPageTable(e.pageTable, page)
		})
	})
})

var _ = Describe("Engine with a custom frame selector", func() {
	var (
		mockCtrl *gomock.Controller
		selector *MockFrameSelector
		e        *Engine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		selector = NewMockFrameSelector(mockCtrl)

		var err error
		e, err = MakeBuilder().
			WithPageSize(100).
			WithFrameCount(4).
			WithFrameSelector(selector).
			Build()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should place pages in the order the selector chose", func() {
		selector.EXPECT().
			Select([]int{0, 1, 2, 3}, 2).
			Return([]int{3, 1})

		a, err := e.AdmitJob("A", 150)
		Expect(err).NotTo(HaveOccurred())

		t, err := e.TranslateAddress(a.JobID, 120)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.FrameIndex).To(Equal(1))
		Expect(t.PhysicalAddress).To(Equal(120))

		t, err = e.TranslateAddress(a.JobID, 99)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.FrameIndex).To(Equal(3))
		Expect(t.PhysicalAddress).To(Equal(399))
	})

	It("should only offer free frames", func() {
		selector.EXPECT().Select([]int{0, 1, 2, 3}, 1).Return([]int{2})
		_, err := e.AdmitJob("A", 100)
		Expect(err).NotTo(HaveOccurred())

		selector.EXPECT().Select([]int{0, 1, 3}, 3).Return([]int{0, 1, 3})
		_, err = e.AdmitJob("B", 300)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should not ask the selector when frames are insufficient", func() {
		_, err := e.AdmitJob("A", 500)

		Expect(KindOf(err)).To(Equal(InsufficientFrames))
	})

	It("should reject duplicated frames", func() {
		selector.EXPECT().Select(gomock.Any(), 2).Return([]int{1, 1})

		_, err := e.AdmitJob("A", 200)

		Expect(KindOf(err)).To(Equal(InvalidFrameSelection))
		Expect(IsInternal(err)).To(BeTrue())
		Expect(e.NumFreeFrames()).To(Equal(4))
		Expect(e.NumJobs()).To(Equal(0))
	})

	It("should reject occupied or unknown frames", func() {
		selector.EXPECT().Select(gomock.Any(), 1).Return([]int{0})
		_, err := e.AdmitJob("A", 1)
		Expect(err).NotTo(HaveOccurred())

		selector.EXPECT().Select(gomock.Any(), 1).Return([]int{0})
		_, err = e.AdmitJob("B", 1)
		Expect(KindOf(err)).To(Equal(InvalidFrameSelection))

		selector.EXPECT().Select(gomock.Any(), 1).Return([]int{9})
		_, err = e.AdmitJob("C", 1)
		Expect(KindOf(err)).To(Equal(InvalidFrameSelection))
	})

	It("should reject short selections", func() {
		selector.EXPECT().Select(gomock.Any(), 2).Return([]int{0})

		_, err := e.AdmitJob("A", 101)

		Expect(KindOf(err)).To(Equal(InvalidFrameSelection))
	})
})

var _ = Describe("Engine with custom ID generators", func() {
	It("should use the IDs it is given", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		jobIDs := NewMockGenerator(mockCtrl)
		pageIDs := NewMockGenerator(mockCtrl)

		e, err := MakeBuilder().
			WithPageSize(10).
			WithFrameCount(2).
			WithIDGenerators(jobIDs, pageIDs).
			Build()
		Expect(err).NotTo(HaveOccurred())

		jobIDs.EXPECT().Next().Return(uint64(100))
		gomock.InOrder(
			pageIDs.EXPECT().Next().Return(uint64(500)),
			pageIDs.EXPECT().Next().Return(uint64(501)),
		)

		a, err := e.AdmitJob("A", 20)

		Expect(err).NotTo(HaveOccurred())
		Expect(a.JobID).To(Equal(JobID(100)))
		Expect(a.Pages).To(Equal([]PageID{500, 501}))
	})
})

func rebuildPageTable(pt PageTable, missing Page) PageTable {
	pages := append(pt.Pages(), missing)
	rebuilt := NewPageTable()

	for len(pages) > 0 {
		lowest := 0
		for i := range pages {
			if pages[i].ID < pages[lowest].ID {
				lowest = i
			}
		}

		rebuilt.Insert(pages[lowest])
		pages = append(pages[:lowest], pages[lowest+1:]...)
	}

	return rebuilt
}
