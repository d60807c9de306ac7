// Package catalog lists the reference files the installer fetches and the
// directory layout they are written to.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

// Directory names under the data root
const (
	UnparsedFactorDir   = "unparsed_factor_data"
	UnparsedOntologyDir = "unparsed_ontology_data"
	ParsedFactorDir     = "parsed_factor_data"
	ParsedOntologyDir   = "parsed_ontology_data"
)

// RemodelersFilename is the CSV built from the Harmonizome gene set
const RemodelersFilename = "chromatin_remodelers.csv"

// Harmonizome gene set used for the chromatin remodeler list
const (
	RemodelersGeneSet = "chromatin remodeling"
	RemodelersLibrary = "GO Biological Process Annotations 2023"
)

// Layout is the on-disk structure rooted at Root
type Layout struct {
	Root string
}

func (l Layout) UnparsedFactor() string   { return filepath.Join(l.Root, UnparsedFactorDir) }
func (l Layout) UnparsedOntology() string { return filepath.Join(l.Root, UnparsedOntologyDir) }
func (l Layout) ParsedFactor() string     { return filepath.Join(l.Root, ParsedFactorDir) }
func (l Layout) ParsedOntology() string   { return filepath.Join(l.Root, ParsedOntologyDir) }

// Dirs returns the four directories in creation order
func (l Layout) Dirs() []string {
	return []string{l.UnparsedFactor(), l.UnparsedOntology(), l.ParsedFactor(), l.ParsedOntology()}
}

// Ensure creates every directory of the layout, parents included.
// Directories that already exist are left alone.
func (l Layout) Ensure() error {
	for _, dir := range l.Dirs() {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Source is one file to download: where it comes from and where it goes
type Source struct {
	Name     string
	URL      string
	Dir      string
	Filename string
}

// Path is the destination file path
func (s Source) Path() string {
	return filepath.Join(s.Dir, s.Filename)
}

// Plan is everything one install run does, in order
type Plan struct {
	Layout         Layout
	Factors        []Source
	RemodelersPath string
	Ontologies     []Source
}

// Sources returns the factor downloads followed by the ontology downloads
func (p Plan) Sources() []Source {
	sources := make([]Source, 0, len(p.Factors)+len(p.Ontologies))
	sources = append(sources, p.Factors...)
	return append(sources, p.Ontologies...)
}

// DefaultPlan is the fixed set of public reference files under root
func DefaultPlan(root string) Plan {
	layout := Layout{Root: root}

	return Plan{
		Layout: layout,
		Factors: []Source{
			{
				Name:     "ncbi_gene_info",
				URL:      "https://ftp.ncbi.nih.gov/gene/DATA/gene_info.gz",
				Dir:      layout.UnparsedFactor(),
				Filename: "gene_info.gz",
			},
			{
				Name:     "animaltfdb_human_tf",
				URL:      "https://guolab.wchscu.cn/AnimalTFDB4_static/download/TF_list_final/Homo_sapiens_TF",
				Dir:      layout.UnparsedFactor(),
				Filename: "Homo_sapiens_TF.csv",
			},
		},
		RemodelersPath: filepath.Join(layout.ParsedFactor(), RemodelersFilename),
		Ontologies: []Source{
			{
				Name:     "cellosaurus",
				URL:      "https://ftp.expasy.org/databases/cellosaurus/cellosaurus.txt",
				Dir:      layout.UnparsedOntology(),
				Filename: "cellosaurus.txt",
			},
			{
				Name:     "efo",
				URL:      "https://github.com/EBISPOT/efo/releases/download/current/efo.owl",
				Dir:      layout.UnparsedOntology(),
				Filename: "efo.owl",
			},
			{
				Name:     "uberon",
				URL:      "http://purl.obolibrary.org/obo/uberon/uberon-full.json",
				Dir:      layout.UnparsedOntology(),
				Filename: "uberon-full.json",
			},
		},
	}
}
