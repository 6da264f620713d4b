package paging

import (
	"github.com/sarchlab/pagesim/sim/id"
)

// A Builder can build paged memory engines.
type Builder struct {
	pageSize   int
	frameCount int
	maxJobSize int
	selector   FrameSelector
	seed       int64
	seeded     bool
	jobIDs     id.Generator
	pageIDs    id.Generator
}

// MakeBuilder creates a new builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxJobSize: DefaultMaxJobSize,
	}
}

// WithPageSize sets the number of bytes in a page and in a frame.
func (b Builder) WithPageSize(pageSize int) Builder {
	b.pageSize = pageSize
	return b
}

// WithFrameCount sets the number of physical frames.
func (b Builder) WithFrameCount(frameCount int) Builder {
	b.frameCount = frameCount
	return b
}

// WithMaxJobSize sets the largest job size, in bytes, that is admitted.
func (b Builder) WithMaxJobSize(maxJobSize int) Builder {
	b.maxJobSize = maxJobSize
	return b
}

// WithFrameSelector sets the policy that chooses frames for new jobs. It
// takes precedence over WithSeed.
func (b Builder) WithFrameSelector(s FrameSelector) Builder {
	b.selector = s
	return b
}

// WithSeed makes the default random frame selection reproducible.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seeded = true
	return b
}

// WithIDGenerators sets the generators of job IDs and page IDs.
func (b Builder) WithIDGenerators(jobIDs, pageIDs id.Generator) Builder {
	b.jobIDs = jobIDs
	b.pageIDs = pageIDs
	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.pageSize <= 0 {
		return newConfigurationError("page size", b.pageSize)
	}

	if b.frameCount <= 0 {
		return newConfigurationError("frame count", b.frameCount)
	}

	if b.maxJobSize <= 0 {
		return newConfigurationError("max job size", b.maxJobSize)
	}

	return nil
}

// Build creates an engine with all the frames free.
func (b Builder) Build() (*Engine, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	e := &Engine{
		pageSize:   b.pageSize,
		maxJobSize: b.maxJobSize,
		frames:     newFramePool(b.frameCount),
		pageTable:  NewPageTable(),
		jobs:       make(map[JobID]*job),
	}

	b.configureSelector(e)
	b.configureIDGenerators(e)

	return e, nil
}

func (b Builder) configureSelector(e *Engine) {
	switch {
	case b.selector != nil:
		e.selector = b.selector
	case b.seeded:
		e.selector = NewRandomFrameSelector(b.seed)
	default:
		e.selector = newUnseededRandomFrameSelector()
	}
}

func (b Builder) configureIDGenerators(e *Engine) {
	e.jobIDs = b.jobIDs
	if e.jobIDs == nil {
		e.jobIDs = id.NewSequentialGenerator()
	}

	e.pageIDs = b.pageIDs
	if e.pageIDs == nil {
		e.pageIDs = id.NewSequentialGenerator()
	}
}
