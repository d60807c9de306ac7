// Package remodelers builds the chromatin remodeler synonym table from a
// Harmonizome gene set.
package remodelers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geometax/refdata/catalog"
	"github.com/geometax/refdata/harmonizome"
	"github.com/geometax/refdata/logging"
	"github.com/geometax/refdata/metrics"
)

// Record is one CSV row
type Record struct {
	ChromatinRemodeler string
	Synonyms           string
}

// GeneSource is the part of the Harmonizome API the fetch needs
type GeneSource interface {
	GeneSet(ctx context.Context, name, library string) ([]harmonizome.Association, error)
	Gene(ctx context.Context, href string) (harmonizome.Gene, error)
}

// Options selects the gene set and the failure policy
type Options struct {
	GeneSet string
	Library string
	// KeepPartial skips genes whose detail request fails instead of
	// abandoning the whole table.
	KeepPartial bool
}

// DefaultOptions fetches the GO "chromatin remodeling" set, all or nothing
func DefaultOptions() Options {
	return Options{
		GeneSet: catalog.RemodelersGeneSet,
		Library: catalog.RemodelersLibrary,
	}
}

// Summary describes what Build did
type Summary struct {
	Path    string
	Genes   int      // rows written
	Skipped []string // symbols dropped with KeepPartial
	Written bool
}

// JoinSynonyms joins synonyms with ", ", giving "" for none
func JoinSynonyms(synonyms []string) string {
	return strings.Join(synonyms, ", ")
}

// Fetch lists the gene set and requests every gene's synonyms, one gene at a
// time in API order. Without KeepPartial the first failure aborts the fetch
// and no records are returned.
func Fetch(ctx context.Context, src GeneSource, opts Options) ([]Record, []string, error) {
	associations, err := src.GeneSet(ctx, opts.GeneSet, opts.Library)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list gene set %q: %w", opts.GeneSet, err)
	}

	logging.Info("Fetched gene set", "gene_set", opts.GeneSet, "library", opts.Library, "genes", len(associations))

	records := make([]Record, 0, len(associations))
	var skipped []string

	for i, association := range associations {
		symbol := association.Gene.Symbol

		gene, err := fetchGene(ctx, src, i, association)
		if err != nil {
			if !opts.KeepPartial || ctx.Err() != nil {
				return nil, nil, err
			}
			logging.Warn("Skipping gene whose details could not be fetched", "symbol", symbol, "error", err)
			skipped = append(skipped, symbol)
			continue
		}

		records = append(records, Record{
			ChromatinRemodeler: symbol,
			Synonyms:           JoinSynonyms(gene.Synonyms),
		})
	}

	return records, skipped, nil
}

func fetchGene(ctx context.Context, src GeneSource, index int, association harmonizome.Association) (harmonizome.Gene, error) {
	if association.Gene.Href == "" {
		return harmonizome.Gene{}, fmt.Errorf("association %d (%s) has no gene href", index, association.Gene.Symbol)
	}

	gene, err := src.Gene(ctx, association.Gene.Href)
	if err != nil {
		return harmonizome.Gene{}, fmt.Errorf("failed to fetch synonyms for %s: %w", association.Gene.Symbol, err)
	}
	return gene, nil
}

// Build fetches the records and writes them to path. When the fetch aborts
// nothing is written and any previous file at path is left as it was.
func Build(ctx context.Context, src GeneSource, path string, opts Options) (Summary, error) {
	summary := Summary{Path: path}

	records, skipped, err := Fetch(ctx, src, opts)
	if err != nil {
		var statusErr *harmonizome.StatusError
		if errors.As(err, &statusErr) {
			logging.Error("Error during API request", "error", err)
		} else {
			logging.Error("An error occurred", "error", err)
		}
		return summary, err
	}
	summary.Skipped = skipped

	if err := WriteCSV(path, records); err != nil {
		logging.Error("An error occurred", "error", err)
		return summary, err
	}

	summary.Genes = len(records)
	summary.Written = true
	metrics.RemodelerGenes.Set(float64(len(records)))

	logging.Info(fmt.Sprintf("Data successfully saved to %s", path), "genes", len(records), "skipped", len(skipped))
	return summary, nil
}
