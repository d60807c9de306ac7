// Package health reports whether the installed reference data is usable and fresh.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/geometax/refdata/interfaces"
)

// Status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusStarting  = "starting"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store      interfaces.RunStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthChecker creates a health checker. Data older than staleAfter is
// degraded, older than twice that is unhealthy.
func NewHealthChecker(store interfaces.RunStore, staleAfter time.Duration) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:      store,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// HealthCheck returns the status, response data and HTTP code for /health
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	report, ok := h.store.LastReport()
	isRunning := h.store.IsRunning()

	if !ok {
		status = StatusUnhealthy
		if isRunning {
			status = StatusStarting
		}
		return status, map[string]any{"is_running": isRunning}, http.StatusServiceUnavailable
	}

	dataAge := h.now().Sub(report.Finished)
	failed := report.Failed()
	succeeded := len(report.Downloads) + 1 - failed // downloads plus the remodeler table

	switch {
	case report.LayoutErr != nil || succeeded <= 0:
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 2*h.staleAfter:
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case dataAge > h.staleAfter:
		status = StatusDegraded
		httpStatus = http.StatusServiceUnavailable

	case failed > 0:
		status = StatusDegraded
		httpStatus = http.StatusOK

	default:
		status = StatusHealthy
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_run":        report.Finished.Format(time.RFC3339),
		"data_age_hours":  math.Round(dataAge.Hours()*10) / 10,
		"downloads":       len(report.Downloads),
		"failed_steps":    failed,
		"remodeler_genes": report.Remodelers.Genes,
		"is_running":      isRunning,
	}

	return status, data, httpStatus
}
