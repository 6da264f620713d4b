package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/paging"
)

func recordSession(writer *datarecording.SQLiteWriter, session string) {
	tracer := NewDBTracer(writer, session)

	engine, err := paging.MakeBuilder().
		WithPageSize(100).
		WithFrameCount(4).
		WithFrameSelector(paging.NewFirstFitFrameSelector()).
		Build()
	Expect(err).NotTo(HaveOccurred())

	engine.AcceptHook(tracer)

	_, _ = engine.AdmitJob("Editor", 250)
	_, _ = engine.AdmitJob("Shell", 100)
	_, _ = engine.AdmitJob("Browser", 1000)
	_, _ = engine.TranslateAddress(1, 120)
	_, _ = engine.RemoveJob(7)
	_, _ = engine.RemoveJob(2)

	tracer.Terminate()
}

var _ = Describe("TraceReader", func() {
	var (
		ctx    context.Context
		reader *TraceReader
	)

	BeforeEach(func() {
		ctx = context.Background()

		path := filepath.Join(GinkgoT().TempDir(), "trace")
		writer := datarecording.NewSQLiteWriter(path)
		Expect(writer.Init()).To(Succeed())

		recordSession(writer, "s1")
		Expect(writer.Close()).To(Succeed())

		var err error
		reader, err = NewTraceReader(writer.FileName())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(reader.Close()).To(Succeed())
	})

	It("should refuse a missing file", func() {
		_, err := NewTraceReader(filepath.Join(GinkgoT().TempDir(), "none"))

		Expect(err).To(HaveOccurred())
	})

	It("should list the sessions", func() {
		sessions, err := reader.ListSessions(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(Equal([]string{"s1"}))
	})

	It("should count the events of each table", func() {
		expected := map[string]int{
			AdmissionTable:     2,
			TranslationTable:   1,
			RemovalTable:       1,
			RejectionTable:     2,
			InconsistencyTable: 0,
		}

		for table, count := range expected {
			n, err := reader.CountEvents(ctx, table, TraceQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(count), table)
		}
	})

	It("should refuse tables that are not event tables", func() {
		_, err := reader.CountEvents(ctx, "sqlite_master", TraceQuery{})
		Expect(err).To(HaveOccurred())

		_, err = reader.ListErrors(ctx, AdmissionTable, TraceQuery{})
		Expect(err).To(HaveOccurred())
	})

	It("should list the admissions latest first", func() {
		admissions, err := reader.ListAdmissions(ctx, TraceQuery{})

		Expect(err).NotTo(HaveOccurred())
		Expect(admissions).To(Equal([]AdmissionEntry{
			{
				Seq: 2, Session: "s1", JobID: 2, Name: "Shell", Size: 100,
				NumPages: 1, Frames: "3",
			},
			{
				Seq: 1, Session: "s1", JobID: 1, Name: "Editor", Size: 250,
				NumPages: 3, Frames: "0,1,2", InternalFragmentation: 50,
			},
		}))
	})

	It("should limit and filter the admissions", func() {
		latest, err := reader.ListAdmissions(ctx, TraceQuery{Limit: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(latest).To(HaveLen(1))
		Expect(latest[0].Name).To(Equal("Shell"))

		byJob, err := reader.ListAdmissions(ctx, TraceQuery{JobID: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(byJob).To(HaveLen(1))
		Expect(byJob[0].Name).To(Equal("Editor"))

		none, err := reader.ListAdmissions(ctx, TraceQuery{Session: "s2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(none).To(BeEmpty())
	})

	It("should list the rejections with their details", func() {
		rejections, err := reader.ListErrors(ctx, RejectionTable, TraceQuery{})

		Expect(err).NotTo(HaveOccurred())
		Expect(rejections).To(Equal([]ErrorEntry{
			{
				Seq: 5, Session: "s1", Operation: "RemoveJob",
				Kind: "JobNotFound", JobID: 7, Input: 7,
				Message: "job ID 7 not found",
			},
			{
				Seq: 3, Session: "s1", Operation: "AdmitJob",
				Kind: "InsufficientFrames", Input: 10, Bound: 0,
				Message: "not enough free frames: need 10 frames, " +
					"but only 0 are available",
			},
		}))
	})

	It("should filter the rejections by operation", func() {
		query := TraceQuery{Operation: "AdmitJob"}

		rejections, err := reader.ListErrors(ctx, RejectionTable, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(rejections).To(HaveLen(1))
		Expect(rejections[0].Kind).To(Equal("InsufficientFrames"))

		n, err := reader.CountEvents(ctx, RejectionTable, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		n, err = reader.CountEvents(ctx, AdmissionTable, query)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})
})
