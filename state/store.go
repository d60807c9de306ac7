// Package state holds the latest install report with atomic swaps so the
// status server can read it while a scheduled run is in progress.
package state

import (
	"sync/atomic"
	"time"

	"github.com/geometax/refdata/installer"
	"github.com/geometax/refdata/interfaces"
)

// Compile-time check to ensure Store implements RunStore
var _ interfaces.RunStore = (*Store)(nil)

// Store is a lock-free holder of the last report
type Store struct {
	report          atomic.Pointer[installer.Report]
	running         atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	s := &Store{}
	s.serverStartTime.Store(time.Now())
	return s
}

// LastReport returns the latest report, false before the first run finished
func (s *Store) LastReport() (installer.Report, bool) {
	if r := s.report.Load(); r != nil {
		return *r, true
	}
	return installer.Report{}, false
}

// LastRun is when the latest run finished, zero before the first one
func (s *Store) LastRun() time.Time {
	if r := s.report.Load(); r != nil {
		return r.Finished
	}
	return time.Time{}
}

// IsRunning reports whether an install is in progress
func (s *Store) IsRunning() bool {
	return s.running.Load()
}

// GetServerStartTime returns when the store was created
func (s *Store) GetServerStartTime() time.Time {
	if v, ok := s.serverStartTime.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Record replaces the latest report
func (s *Store) Record(report installer.Report) {
	s.report.Store(&report)
}

// BeginRun marks a run as started; false means one is already running
func (s *Store) BeginRun() bool {
	return s.running.CompareAndSwap(false, true)
}

// EndRun marks the current run as finished
func (s *Store) EndRun() {
	s.running.Store(false)
}
