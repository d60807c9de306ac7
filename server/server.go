// Package server exposes the installer's health, last run and metrics over
// HTTP while it runs on a schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/geometax/refdata/config"
	"github.com/geometax/refdata/installer"
	"github.com/geometax/refdata/interfaces"
	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// Server represents the HTTP server
type Server struct {
	server    *http.Server
	router    chi.Router
	store     interfaces.RunStore
	health    interfaces.HealthChecker
	scheduler interfaces.Scheduler
	limiter   *RateLimiter
	config    *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store interfaces.RunStore, health interfaces.HealthChecker, scheduler interfaces.Scheduler) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:    router,
		store:     store,
		health:    health,
		scheduler: scheduler,
		limiter:   NewRateLimiter(5, 60),
		config:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.limiter.Handler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start(ctx context.Context) error {
	s.limiter.StartCleanup(ctx, 30*time.Minute)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, data, code := s.health.HealthCheck()
	data["status"] = status
	data["uptime"] = formatUptimeHuman(time.Since(s.store.GetServerStartTime()))
	respondWithJSON(w, code, data)
}

// StepData is one step of the last run
type StepData struct {
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusData represents the /status response
type StatusData struct {
	IsRunning  bool       `json:"is_running"`
	LastRun    string     `json:"last_run,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	NextRun    string     `json:"next_run,omitempty"`
	Failed     int        `json:"failed"`
	LayoutErr  string     `json:"layout_error,omitempty"`
	Steps      []StepData `json:"steps"`
	Remodelers *StepData  `json:"remodelers,omitempty"`
}

// GetStatusData summarizes the last recorded run
func (s *Server) GetStatusData() StatusData {
	data := StatusData{
		IsRunning: s.store.IsRunning(),
		Steps:     []StepData{},
	}

	if next := s.scheduler.NextRun(); !next.IsZero() {
		data.NextRun = next.Format(time.RFC3339)
	}

	report, ok := s.store.LastReport()
	if !ok {
		return data
	}

	data.LastRun = report.Finished.Format(time.RFC3339)
	data.Duration = report.Duration().Round(time.Millisecond).String()
	data.Failed = report.Failed()
	if report.LayoutErr != nil {
		data.LayoutErr = report.LayoutErr.Error()
	}

	for _, d := range report.Downloads {
		step := StepData{
			Name:       d.Source.Name,
			URL:        d.Source.URL,
			Path:       d.Source.Path(),
			StatusCode: d.StatusCode,
			Bytes:      d.Bytes,
		}
		if d.Err != nil {
			step.Error = d.Err.Error()
		}
		data.Steps = append(data.Steps, step)
	}

	data.Remodelers = remodelersStep(report)
	return data
}

func remodelersStep(report installer.Report) *StepData {
	if report.LayoutErr != nil {
		return nil
	}
	step := &StepData{Name: "remodelers", Path: report.Remodelers.Path}
	if report.RemodelersErr != nil {
		step.Error = report.RemodelersErr.Error()
	}
	return step
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.GetStatusData())
}
