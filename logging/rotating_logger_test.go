package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geometax/refdata/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestRotatingWriter(t *testing.T) {
	tempDir := t.TempDir()

	rw := NewRotatingWriter(tempDir, 1, 0)
	defer func() { _ = rw.Close() }()

	testMessage := "Test log message"
	if _, err := rw.Write([]byte(testMessage)); err != nil {
		t.Fatalf("Failed to write to log: %v", err)
	}

	expectedFileName := filepath.Join(tempDir, "install-"+weekKey(time.Now())+".log")
	content, err := os.ReadFile(expectedFileName)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), testMessage) {
		t.Errorf("Log file does not contain test message: %s", string(content))
	}
}

func TestWeekKey(t *testing.T) {
	// 2025-10-07 is in ISO week 41
	testTime := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	if got := weekKey(testTime); got != "2025-W41" {
		t.Errorf("Expected week key 2025-W41, got %s", got)
	}

	// 2027-01-01 still belongs to the last ISO week of 2026
	if got := weekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2026-W53" {
		t.Errorf("Expected week key 2026-W53, got %s", got)
	}
}

func TestRotatingWriterWeekChange(t *testing.T) {
	tempDir := t.TempDir()

	current := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	rw := NewRotatingWriter(tempDir, 4, 0)
	rw.now = func() time.Time { return current }
	defer func() { _ = rw.Close() }()

	if _, err := rw.Write([]byte("week 42\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	current = current.Add(7 * 24 * time.Hour)
	if _, err := rw.Write([]byte("week 43\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for _, name := range []string{"install-2026-W42.log", "install-2026-W43.log"} {
		if _, err := os.Stat(filepath.Join(tempDir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func TestRotatingWriterSizeLimit(t *testing.T) {
	tempDir := t.TempDir()

	fixed := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rw := NewRotatingWriter(tempDir, 4, 16)
	rw.now = func() time.Time { return fixed }
	defer func() { _ = rw.Close() }()

	for i := 0; i < 3; i++ {
		if _, err := rw.Write([]byte("0123456789\n")); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	expected := []string{"install-2026-W42.log", "install-2026-W42_01.log", "install-2026-W42_02.log"}
	for _, name := range expected {
		info, err := os.Stat(filepath.Join(tempDir, name))
		if err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
			continue
		}
		if info.Size() != 11 {
			t.Errorf("Expected %s to hold one line, got %d bytes", name, info.Size())
		}
	}
}

func TestRotatingWriterSkipsFullFiles(t *testing.T) {
	tempDir := t.TempDir()

	fixed := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	full := filepath.Join(tempDir, "install-2026-W42.log")
	if err := os.WriteFile(full, bytes.Repeat([]byte("x"), 32), 0644); err != nil {
		t.Fatalf("Failed to seed log file: %v", err)
	}

	rw := NewRotatingWriter(tempDir, 4, 16)
	rw.now = func() time.Time { return fixed }
	defer func() { _ = rw.Close() }()

	if _, err := rw.Write([]byte("fresh\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "install-2026-W42_01.log"))
	if err != nil {
		t.Fatalf("Expected overflow file: %v", err)
	}
	if string(content) != "fresh\n" {
		t.Errorf("Unexpected overflow content %q", content)
	}
}

func TestCleanup(t *testing.T) {
	tempDir := t.TempDir()

	oldFile := filepath.Join(tempDir, "install-2020-W01.log")
	keepFile := filepath.Join(tempDir, "install-2026-W42.log")
	otherFile := filepath.Join(tempDir, "other.log")
	for _, f := range []string{oldFile, keepFile, otherFile} {
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", f, err)
		}
	}

	old := time.Now().Add(-60 * 24 * time.Hour)
	for _, f := range []string{oldFile, otherFile} {
		if err := os.Chtimes(f, old, old); err != nil {
			t.Fatalf("Failed to age %s: %v", f, err)
		}
	}

	rw := NewRotatingWriter(tempDir, 1, 0)
	deleted, err := rw.Cleanup()
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if deleted != 1 {
		t.Errorf("Expected 1 deleted file, got %d", deleted)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old install log to be removed")
	}
	if _, err := os.Stat(keepFile); err != nil {
		t.Error("Expected recent install log to be kept")
	}
	if _, err := os.Stat(otherFile); err != nil {
		t.Error("Expected unrelated log file to be kept")
	}
}

func TestConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		level    string
		expected slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", slog.LevelInfo},
		{"test is quiet", config.EnvTest, "", slog.LevelError},
		{"test ignores override", config.EnvTest, "debug", slog.LevelError},
		{"prod defaults to warn", config.EnvProduction, "", slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConsoleLogLevel(tt.env, tt.level); got != tt.expected {
				t.Errorf("ConsoleLogLevel(%q, %q) = %v, want %v", tt.env, tt.level, got, tt.expected)
			}
		})
	}
}

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	tempDir := t.TempDir()
	var console bytes.Buffer

	logger, closer := NewLogger(Options{
		Dir:            tempDir,
		Env:            config.EnvDevelopment,
		RetentionWeeks: 4,
		MaxFileSize:    1024 * 1024,
		Console:        &console,
	})

	logger.Info("Downloaded file", "filename", "efo.owl")
	logger.Debug("file only")

	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "filename=efo.owl") {
		t.Errorf("Expected console text output, got %q", console.String())
	}
	if strings.Contains(console.String(), "file only") {
		t.Error("Debug records should not reach the console at info level")
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "install-"+weekKey(time.Now())+".log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"filename":"efo.owl"`) {
		t.Errorf("Expected JSON record in file, got %s", content)
	}
	if !strings.Contains(string(content), "file only") {
		t.Error("Expected debug record in the log file")
	}
}

func TestGlobalLoggingService(t *testing.T) {
	previous := DefaultLoggingService
	defer func() { DefaultLoggingService = previous }()

	tempDir := t.TempDir()
	InitLogger(Options{Dir: tempDir, Env: config.EnvTest, RetentionWeeks: 2, MaxFileSize: 1024 * 1024})

	if DefaultLoggingService == nil {
		t.Fatal("DefaultLoggingService was not initialized")
	}

	Info("Test message from global logger")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "install-"+weekKey(time.Now())+".log"))
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !strings.Contains(string(content), "Test message from global logger") {
		t.Errorf("Global logger did not reach the file: %s", content)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(LoggingMiddleware(logger))
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	if !strings.Contains(out, `"status_code":418`) {
		t.Errorf("Expected status code in log, got %s", out)
	}
	if !strings.Contains(out, `"bytes_written":2`) {
		t.Errorf("Expected bytes written in log, got %s", out)
	}
	if strings.Contains(out, `"path":"/health"`) {
		t.Error("Health probes should only be logged at debug level")
	}
}
