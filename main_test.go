package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geometax/refdata/catalog"
	"github.com/geometax/refdata/config"
)

func TestNewInstallerUsesDataDir(t *testing.T) {
	cfg := &config.Config{
		DataDir:            filepath.Join(t.TempDir(), "refdata"),
		HarmonizomeBaseURL: config.DefaultHarmonizomeBaseURL,
		UserAgent:          "test-agent",
	}

	plan := newInstaller(cfg).Plan()

	if plan.Layout.Root != cfg.DataDir {
		t.Errorf("Expected root %s, got %s", cfg.DataDir, plan.Layout.Root)
	}
	if len(plan.Sources()) != len(catalog.DefaultPlan(cfg.DataDir).Sources()) {
		t.Errorf("Expected the default sources, got %d", len(plan.Sources()))
	}
}

func TestExportMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.prom")

	exportMetrics(&config.Config{})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Expected no metrics file without METRICS_FILE")
	}

	exportMetrics(&config.Config{MetricsFile: path})
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected a metrics file: %v", err)
	}
	if !strings.Contains(string(content), "refdata_last_run_failures") {
		t.Error("Expected refdata_last_run_failures in the metrics file")
	}
}

func TestSetEnvVars(t *testing.T) {
	for _, name := range config.GetEnvVars() {
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("Failed to unset %s: %v", name, err)
		}
	}
	t.Setenv("DATA_DIR", "/srv/refdata")
	t.Setenv("SCHEDULE", "06:00")

	got := setEnvVars()
	if !slices.Equal(got, []string{"DATA_DIR", "SCHEDULE"}) {
		t.Errorf("Expected [DATA_DIR SCHEDULE], got %v", got)
	}
}

// blockingScheduler holds Start like a long first install until ctx is cancelled
type blockingScheduler struct {
	started  chan struct{}
	startErr error
	stopped  atomic.Bool
}

func (s *blockingScheduler) Start(ctx context.Context) error {
	close(s.started)
	<-ctx.Done()
	s.startErr = ctx.Err()
	return nil
}

func (s *blockingScheduler) Stop()              { s.stopped.Store(true) }
func (s *blockingScheduler) NextRun() time.Time { return time.Time{} }

type fakeStatusServer struct {
	shutdown atomic.Bool
	done     chan struct{}
}

func (f *fakeStatusServer) Start(ctx context.Context) error {
	<-f.done
	return nil
}

func (f *fakeStatusServer) Shutdown(ctx context.Context) error {
	f.shutdown.Store(true)
	close(f.done)
	return nil
}

func TestServeCancelsFirstInstall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := &blockingScheduler{started: make(chan struct{})}
	srv := &fakeStatusServer{done: make(chan struct{})}

	errc := make(chan error, 1)
	go func() {
		errc <- serveUntilDone(ctx, srv, sched)
	}()

	<-sched.started
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Expected a clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveUntilDone did not return after cancellation")
	}

	if sched.startErr != context.Canceled {
		t.Errorf("Expected the first install to see the cancellation, got %v", sched.startErr)
	}
	if !sched.stopped.Load() {
		t.Error("Expected the scheduler to be stopped")
	}
	if !srv.shutdown.Load() {
		t.Error("Expected the status server to be shut down")
	}
}
