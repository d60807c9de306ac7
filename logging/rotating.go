package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logFilePrefix = "install-"

// RotatingWriter writes to one log file per ISO week, rolling over to a
// numbered file once maxFileSize is reached.
type RotatingWriter struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSeq  int
	currentSize int64

	now         func() time.Time
	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

// NewRotatingWriter creates the writer; no file is opened until the first Write
func NewRotatingWriter(logDir string, retentionWeeks int, maxFileSize int64) *RotatingWriter {
	return &RotatingWriter{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// weekKey returns the ISO week in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func logFileName(week string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s%s.log", logFilePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, seq)
}

// openLocked opens the first file of week at or after seq that still has room.
// Caller must hold mu.
func (w *RotatingWriter) openLocked(week string, seq int) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		w.currentFile = nil
	}

	for {
		path := filepath.Join(w.logDir, logFileName(week, seq))

		var size int64
		if info, err := os.Stat(path); err == nil {
			if w.maxFileSize > 0 && info.Size() >= w.maxFileSize {
				seq++
				continue
			}
			size = info.Size()
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		w.currentFile = file
		w.currentWeek = week
		w.currentSeq = seq
		w.currentSize = size
		return nil
	}
}

// Write implements io.Writer
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	week := weekKey(w.now())
	switch {
	case w.currentFile == nil || week != w.currentWeek:
		if err := w.openLocked(week, 0); err != nil {
			return 0, err
		}
	case w.maxFileSize > 0 && w.currentSize > 0 && w.currentSize+int64(len(p)) > w.maxFileSize:
		if err := w.openLocked(week, w.currentSeq+1); err != nil {
			return 0, err
		}
	}

	n, err := w.currentFile.Write(p)
	w.currentSize += int64(n)
	return n, err
}

// Cleanup removes install-*.log files older than the retention period
func (w *RotatingWriter) Cleanup() (int, error) {
	entries, err := os.ReadDir(w.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := w.now().Add(-w.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(w.logDir, name)); err == nil {
			deleted++
		}
	}

	return deleted, nil
}

// startCleanup runs Cleanup once a day until Close is called
func (w *RotatingWriter) startCleanup() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.cleanupDone = make(chan struct{})

	go func() {
		defer close(w.cleanupDone)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Cleanup(); err != nil {
					// the logger itself may be the broken part
					fmt.Fprintf(os.Stderr, "failed to clean up old logs: %v\n", err)
				}
			}
		}
	}()
}

// Close stops the cleanup loop and closes the current file
func (w *RotatingWriter) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.cleanupDone
		w.cancel = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return nil
	}
	err := w.currentFile.Close()
	w.currentFile = nil
	return err
}
