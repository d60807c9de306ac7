// Package installer runs one full reference data install: directories,
// factor files, the chromatin remodeler table and ontology files.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/geometax/refdata/catalog"
	"github.com/geometax/refdata/downloader"
	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
	"github.com/geometax/refdata/remodelers"
)

// Banner is printed at the start of every run
const Banner = "GEOMetaX | Installing data..."

// Downloader fetches one source
type Downloader interface {
	Download(ctx context.Context, src catalog.Source) downloader.Result
}

// Report is the outcome of a run, step by step
type Report struct {
	Started       time.Time
	Finished      time.Time
	LayoutErr     error
	Downloads     []downloader.Result
	Remodelers    remodelers.Summary
	RemodelersErr error
}

// Failed counts failed steps; a layout failure counts once
func (r Report) Failed() int {
	failed := 0
	if r.LayoutErr != nil {
		failed++
	}
	for _, d := range r.Downloads {
		if !d.OK() {
			failed++
		}
	}
	if r.RemodelersErr != nil {
		failed++
	}
	return failed
}

// OK reports whether every step succeeded
func (r Report) OK() bool {
	return r.Failed() == 0
}

// Duration of the run
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Installer executes a catalog.Plan
type Installer struct {
	plan       catalog.Plan
	downloader Downloader
	genes      remodelers.GeneSource
	options    remodelers.Options
	out        io.Writer
}

// New creates an Installer
func New(plan catalog.Plan, dl Downloader, genes remodelers.GeneSource, opts remodelers.Options) *Installer {
	return &Installer{
		plan:       plan,
		downloader: dl,
		genes:      genes,
		options:    opts,
		out:        os.Stdout,
	}
}

// SetOutput changes where the banner is printed
func (i *Installer) SetOutput(w io.Writer) {
	i.out = w
}

// Plan returns the plan the installer executes
func (i *Installer) Plan() catalog.Plan {
	return i.plan
}

// Run creates the layout and then, strictly in order, downloads the factor
// files, builds the chromatin remodeler CSV and downloads the ontology files.
// A failed step never stops the steps after it. Only a layout failure ends
// the run early, since nothing could be written.
func (i *Installer) Run(ctx context.Context) Report {
	report := Report{Started: time.Now()}
	fmt.Fprintln(i.out, Banner)
	logging.Debug("Installing reference data", "data_dir", i.plan.Layout.Root)

	defer func() {
		metrics.LastRunTimestamp.Set(float64(report.Finished.Unix()))
		metrics.LastRunFailures.Set(float64(report.Failed()))
	}()

	if err := i.plan.Layout.Ensure(); err != nil {
		logging.Error("Failed to create data directories", "error", err)
		report.LayoutErr = err
		report.Finished = time.Now()
		return report
	}

	for _, src := range i.plan.Factors {
		report.Downloads = append(report.Downloads, i.downloader.Download(ctx, src))
	}

	report.Remodelers, report.RemodelersErr = remodelers.Build(ctx, i.genes, i.plan.RemodelersPath, i.options)

	for _, src := range i.plan.Ontologies {
		report.Downloads = append(report.Downloads, i.downloader.Download(ctx, src))
	}

	report.Finished = time.Now()

	attrs := []any{
		"duration", report.Duration().String(),
		"downloads", len(report.Downloads),
		"remodeler_genes", report.Remodelers.Genes,
		"failed", report.Failed(),
	}
	if report.OK() {
		logging.Info("Install completed", attrs...)
	} else {
		logging.Warn("Install completed with failures", attrs...)
	}

	return report
}
