package simulation

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/sim/id"
	"github.com/sarchlab/pagesim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	pageSize   int
	frameCount int
	maxJobSize int
	seed       int64
	seeded     bool

	recordOn       bool
	outputFileName string
	logger         *log.Logger

	monitorOn   bool
	monitorPort int
	openBrowser bool
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		maxJobSize: paging.DefaultMaxJobSize,
	}
}

// WithPageSize sets the size of pages and frames in bytes.
func (b Builder) WithPageSize(pageSize int) Builder {
	b.pageSize = pageSize
	return b
}

// WithFrameCount sets the number of physical frames.
func (b Builder) WithFrameCount(frameCount int) Builder {
	b.frameCount = frameCount
	return b
}

// WithMaxJobSize sets the largest admissible job size in bytes.
func (b Builder) WithMaxJobSize(maxJobSize int) Builder {
	b.maxJobSize = maxJobSize
	return b
}

// WithSeed makes the frame placement reproducible.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	b.seeded = true
	return b
}

// WithRecording records the engine events into a SQLite file. An empty file
// name picks one from the simulation ID.
func (b Builder) WithRecording(outputFileName string) Builder {
	b.recordOn = true
	b.outputFileName = outputFileName
	return b
}

// WithLogger logs the engine events into the logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithMonitor starts a monitoring server on the port. Port 0 picks a random
// one.
func (b Builder) WithMonitor(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitor in a browser once it starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() error {
	if !b.monitorOn && b.openBrowser {
		return errors.New("browser cannot be opened when monitoring is disabled")
	}

	if !b.recordOn && b.outputFileName != "" {
		return errors.New("output file name requires recording")
	}

	return nil
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	engineBuilder := paging.MakeBuilder().
		WithPageSize(b.pageSize).
		WithFrameCount(b.frameCount).
		WithMaxJobSize(b.maxJobSize)
	if b.seeded {
		engineBuilder = engineBuilder.WithSeed(b.seed)
	}

	engine, err := engineBuilder.Build()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		id:     id.NewSessionID(),
		engine: engine,
	}
	s.manager = paging.NewSynchronized(engine)

	s.counter = tracing.NewEventCounter()
	engine.AcceptHook(s.counter)

	if b.logger != nil {
		engine.AcceptHook(tracing.NewEventLogger(b.logger))
	}

	if b.recordOn {
		if err := b.buildRecorder(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		b.buildMonitor(s)
	}

	return s, nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "pagesim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return fmt.Errorf("recording: %w", err)
	}

	s.dataRecorder = recorder
	s.dbTracer = tracing.NewDBTracer(s.dataRecorder, s.id)
	s.engine.AcceptHook(s.dbTracer)

	return nil
}

func (b Builder) buildMonitor(s *Simulation) {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	if b.openBrowser {
		s.monitor.WithBrowser()
	}

	s.monitor.RegisterManager(s.manager)
	s.monitor.RegisterEventCounter(s.counter)
	s.monitorURL = s.monitor.StartServer()
}
