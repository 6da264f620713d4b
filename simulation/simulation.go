// Package simulation wires a paged memory engine with its tracers, its
// recorder, and its monitor.
package simulation

import (
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/mem/paging"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/tracing"
)

// A Simulation owns one engine and the services attached to it.
type Simulation struct {
	id      string
	engine  *paging.Engine
	manager *paging.Synchronized

	counter      *tracing.EventCounter
	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	monitor      *monitoring.Monitor
	monitorURL   string

	terminated bool
}

// ID returns the session ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine behind a lock. All the operations should go
// through it, since the monitor may use the engine at the same time.
func (s *Simulation) Engine() *paging.Synchronized {
	return s.manager
}

// PageSize returns the page size of the engine.
func (s *Simulation) PageSize() int {
	return s.engine.PageSize()
}

// FrameCount returns the number of frames of the engine.
func (s *Simulation) FrameCount() int {
	return s.engine.FrameCount()
}

// EventCounter returns the counter of the engine events.
func (s *Simulation) EventCounter() *tracing.EventCounter {
	return s.counter
}

// GetDataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetDBTracer returns the tracer that writes into the data recorder, or nil
// if recording is off.
func (s *Simulation) GetDBTracer() *tracing.DBTracer {
	return s.dbTracer
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitor, or an empty string if
// monitoring is off.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Terminate stops the monitor and writes out the recorded data. It is safe to
// call more than once.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	if s.monitor != nil {
		s.monitor.StopServer()
	}

	if s.dataRecorder == nil {
		return nil
	}

	s.dbTracer.Terminate()

	return s.dataRecorder.Close()
}
