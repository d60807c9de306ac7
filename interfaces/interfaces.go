// Package interfaces defines the abstractions the scheduler, health checker
// and status server are wired through.
package interfaces

import (
	"context"
	"time"

	"github.com/geometax/refdata/installer"
)

// Runner performs one install
type Runner interface {
	Run(ctx context.Context) installer.Report
}

// RunStore keeps the latest install report for concurrent readers and
// guards against overlapping runs.
type RunStore interface {
	LastReport() (installer.Report, bool)
	LastRun() time.Time
	IsRunning() bool
	GetServerStartTime() time.Time

	Record(report installer.Report)
	BeginRun() bool
	EndRun()
}

// Scheduler runs installs on a timetable
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	NextRun() time.Time
}

// HealthChecker summarizes the state of the installed data
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}
