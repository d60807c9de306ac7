// Package downloader fetches reference files over HTTP and saves them to disk.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/geometax/refdata/catalog"
	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
)

// StatusError is returned when the server answers with anything but 200
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download %s (status code: %d)", e.URL, e.StatusCode)
}

// WriteError wraps failures to store a response body that was received with status 200
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result is the outcome of one download
type Result struct {
	Source     catalog.Source
	StatusCode int // 0 when no response was received
	Bytes      int64
	Duration   time.Duration
	Err        error
}

// OK reports whether the file was written
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome is the metrics label for the result
func (r Result) Outcome() string {
	var statusErr *StatusError
	var writeErr *WriteError
	switch {
	case r.Err == nil:
		return metrics.OutcomeOK
	case errors.As(r.Err, &statusErr):
		return metrics.OutcomeHTTPError
	case errors.As(r.Err, &writeErr):
		return metrics.OutcomeWriteError
	default:
		return metrics.OutcomeNetworkError
	}
}

// NewHTTPClient returns a client that follows redirects. A zero timeout
// leaves requests unbounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// Downloader saves remote files into existing directories
type Downloader struct {
	client    *http.Client
	userAgent string
}

// New creates a Downloader. A nil client uses NewHTTPClient(0).
func New(client *http.Client, userAgent string) *Downloader {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Downloader{client: client, userAgent: userAgent}
}

// Download performs one GET of src.URL. With status 200 the body replaces
// src.Path(); any other status, transport error or write error leaves the
// destination untouched. Errors are logged and returned in the Result, never
// as a panic.
func (d *Downloader) Download(ctx context.Context, src catalog.Source) Result {
	start := time.Now()
	result := d.fetch(ctx, src)
	result.Duration = time.Since(start)

	outcome := result.Outcome()
	metrics.DownloadsTotal.WithLabelValues(src.Name, outcome).Inc()
	metrics.DownloadDuration.WithLabelValues(src.Name).Observe(result.Duration.Seconds())

	switch outcome {
	case metrics.OutcomeOK:
		metrics.DownloadBytesTotal.WithLabelValues(src.Name).Add(float64(result.Bytes))
		logging.Info(fmt.Sprintf("Downloaded and saved %s in %s", src.Filename, src.Dir),
			"source", src.Name, "bytes", result.Bytes, "duration", result.Duration.String())
	case metrics.OutcomeHTTPError:
		logging.Error(fmt.Sprintf("Failed to download %s (Status code: %d)", src.URL, result.StatusCode),
			"source", src.Name)
	default:
		logging.Error(fmt.Sprintf("Error downloading %s", src.URL), "source", src.Name, "error", result.Err)
	}

	return result
}

// DownloadAll downloads sources one after the other, in order
func (d *Downloader) DownloadAll(ctx context.Context, sources []catalog.Source) []Result {
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		results = append(results, d.Download(ctx, src))
	}
	return results
}

func (d *Downloader) fetch(ctx context.Context, src catalog.Source) Result {
	result := Result{Source: src}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		result.Err = fmt.Errorf("failed to create request for %s: %w", src.URL, err)
		return result
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	response, err := d.client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("failed to download %s: %w", src.URL, err)
		return result
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	result.StatusCode = response.StatusCode
	if response.StatusCode != http.StatusOK {
		result.Err = &StatusError{URL: src.URL, StatusCode: response.StatusCode}
		return result
	}

	body := &bodyReader{r: response.Body}
	written, err := saveFile(src.Path(), body)
	if err != nil {
		if body.err != nil {
			result.Err = fmt.Errorf("failed to read %s: %w", src.URL, body.err)
		} else {
			result.Err = &WriteError{Path: src.Path(), Err: err}
		}
		return result
	}

	result.Bytes = written
	return result
}

// bodyReader remembers a read failure so a dropped connection is not
// reported as a write error.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.err = err
	}
	return n, err
}

// saveFile streams r into a temporary file next to path and renames it into
// place, so path only ever holds a complete body.
func saveFile(path string, r io.Reader) (int64, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0644)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}

	return written, nil
}
