package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geometax/refdata/installer"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()

	if _, ok := s.LastReport(); ok {
		t.Error("Expected no report before the first run")
	}
	if !s.LastRun().IsZero() {
		t.Error("Expected zero last run time")
	}
	if s.GetServerStartTime().IsZero() {
		t.Error("Expected server start time to be set")
	}
}

func TestStoreRecord(t *testing.T) {
	s := NewStore()
	finished := time.Date(2026, 10, 18, 6, 5, 0, 0, time.UTC)

	s.Record(installer.Report{Finished: finished, RemodelersErr: errors.New("boom")})

	report, ok := s.LastReport()
	if !ok {
		t.Fatal("Expected a report")
	}
	if report.Failed() != 1 {
		t.Errorf("Expected 1 failure, got %d", report.Failed())
	}
	if !s.LastRun().Equal(finished) {
		t.Errorf("Expected last run %v, got %v", finished, s.LastRun())
	}
}

func TestBeginRunIsExclusive(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginRun() {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if started != 1 {
		t.Errorf("Expected exactly one run to start, got %d", started)
	}
	if !s.IsRunning() {
		t.Error("Expected store to report a running install")
	}

	s.EndRun()
	if s.IsRunning() {
		t.Error("Expected no running install after EndRun")
	}
	if !s.BeginRun() {
		t.Error("Expected a new run to start after EndRun")
	}
}
