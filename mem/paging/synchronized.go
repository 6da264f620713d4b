package paging

import "sync"

// Synchronized guards an Engine with a single lock so that it can be shared by
// goroutines. Each call holds the lock for the whole operation, since no part
// of an operation is safe to interleave with another.
type Synchronized struct {
	lock   sync.Mutex
	engine *Engine
}

// NewSynchronized wraps the engine. The engine must not be used directly
// afterwards.
func NewSynchronized(e *Engine) *Synchronized {
	return &Synchronized{engine: e}
}

// AdmitJob calls Engine.AdmitJob under the lock.
func (s *Synchronized) AdmitJob(name string, size int) (Admission, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.AdmitJob(name, size)
}

// TranslateAddress calls Engine.TranslateAddress under the lock.
func (s *Synchronized) TranslateAddress(
	jobID JobID,
	logicalAddress int,
) (Translation, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.TranslateAddress(jobID, logicalAddress)
}

// RemoveJob calls Engine.RemoveJob under the lock.
func (s *Synchronized) RemoveJob(jobID JobID) (Removal, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.RemoveJob(jobID)
}

// ReportState calls Engine.ReportState under the lock.
func (s *Synchronized) ReportState() MemorySnapshot {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.ReportState()
}

// CheckInvariants calls Engine.CheckInvariants under the lock.
func (s *Synchronized) CheckInvariants() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.engine.CheckInvariants()
}
