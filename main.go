package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geometax/refdata/catalog"
	"github.com/geometax/refdata/config"
	"github.com/geometax/refdata/downloader"
	"github.com/geometax/refdata/harmonizome"
	"github.com/geometax/refdata/health"
	"github.com/geometax/refdata/installer"
	"github.com/geometax/refdata/interfaces"
	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
	"github.com/geometax/refdata/remodelers"
	"github.com/geometax/refdata/scheduler"
	"github.com/geometax/refdata/server"
	"github.com/geometax/refdata/state"
)

// staleAfter is how old the data may get before /health reports it
const staleAfter = 25 * time.Hour

func main() {
	os.Exit(run())
}

func run() int {
	dotEnvErr := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 2
	}

	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logging.Close()

	if dotEnvErr != nil {
		logging.Debug("No .env file loaded", "error", dotEnvErr)
	}
	logging.Debug("Configuration loaded", "env", cfg.Env, "data_dir", cfg.DataDir, "set", setEnvVars())

	inst := newInstaller(cfg)

	if !cfg.Scheduled() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report := inst.Run(ctx)
		exportMetrics(cfg)

		if cfg.FailOnError && !report.OK() {
			return 1
		}
		return 0
	}

	if err := serve(cfg, inst); err != nil {
		logging.Error("Scheduled installer stopped", "error", err)
		return 1
	}
	return 0
}

// setEnvVars lists the configuration variables present in the environment
func setEnvVars() []string {
	var set []string
	for _, name := range config.GetEnvVars() {
		if _, ok := os.LookupEnv(name); ok {
			set = append(set, name)
		}
	}
	return set
}

func newInstaller(cfg *config.Config) *installer.Installer {
	client := downloader.NewHTTPClient(cfg.HTTPTimeout)

	api := harmonizome.NewClient(cfg.HarmonizomeBaseURL,
		harmonizome.WithHTTPClient(client),
		harmonizome.WithRateLimit(cfg.APIRateLimit),
		harmonizome.WithUserAgent(cfg.UserAgent),
	)

	opts := remodelers.DefaultOptions()
	opts.KeepPartial = cfg.KeepPartialSynonyms

	return installer.New(
		catalog.DefaultPlan(cfg.DataDir),
		downloader.New(client, cfg.UserAgent),
		api,
		opts,
	)
}

func exportMetrics(cfg *config.Config) {
	if cfg.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logging.Error("Failed to write metrics file", "path", cfg.MetricsFile, "error", err)
	}
}

// serve runs installs on cfg.Schedule and the status server until a
// termination signal arrives. The signal also cancels a run in progress,
// including the first one.
func serve(cfg *config.Config, inst *installer.Installer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore()
	sched := scheduler.NewScheduler(inst, store, cfg.Schedule, func(installer.Report) {
		exportMetrics(cfg)
	})
	srv := server.NewServer(cfg, store, health.NewHealthChecker(store, staleAfter), sched)

	return serveUntilDone(ctx, srv, sched)
}

// statusServer is the part of server.Server serveUntilDone drives
type statusServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func serveUntilDone(ctx context.Context, srv statusServer, sched interfaces.Scheduler) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}

	if err := sched.Start(ctx); err != nil {
		_ = shutdown()
		return err
	}
	defer sched.Stop()

	select {
	case <-ctx.Done():
		logging.Info("Received signal, shutting down")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("status server failed: %w", err)
		}
		return errors.New("status server stopped unexpectedly")
	}

	return shutdown()
}
