package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutEnsureIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "data")
	layout := Layout{Root: root}

	for i := 0; i < 2; i++ {
		if err := layout.Ensure(); err != nil {
			t.Fatalf("Ensure run %d failed: %v", i+1, err)
		}
	}

	for _, name := range []string{UnparsedFactorDir, UnparsedOntologyDir, ParsedFactorDir, ParsedOntologyDir} {
		info, err := os.Stat(filepath.Join(root, name))
		if err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", name)
		}
	}
}

func TestLayoutEnsureFailsOnFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, UnparsedFactorDir), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	if err := (Layout{Root: root}).Ensure(); err == nil {
		t.Error("Expected an error when a directory name is taken by a file")
	}
}

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan("data")

	if len(plan.Factors) != 2 {
		t.Fatalf("Expected 2 factor sources, got %d", len(plan.Factors))
	}
	if len(plan.Ontologies) != 3 {
		t.Fatalf("Expected 3 ontology sources, got %d", len(plan.Ontologies))
	}

	expected := []string{
		filepath.Join("data", UnparsedFactorDir, "gene_info.gz"),
		filepath.Join("data", UnparsedFactorDir, "Homo_sapiens_TF.csv"),
		filepath.Join("data", UnparsedOntologyDir, "cellosaurus.txt"),
		filepath.Join("data", UnparsedOntologyDir, "efo.owl"),
		filepath.Join("data", UnparsedOntologyDir, "uberon-full.json"),
	}

	sources := plan.Sources()
	if len(sources) != len(expected) {
		t.Fatalf("Expected %d sources, got %d", len(expected), len(sources))
	}
	for i, src := range sources {
		if src.Path() != expected[i] {
			t.Errorf("Source %d: expected path %s, got %s", i, expected[i], src.Path())
		}
		if src.URL == "" || src.Name == "" {
			t.Errorf("Source %d is missing a URL or name: %+v", i, src)
		}
	}

	if plan.RemodelersPath != filepath.Join("data", ParsedFactorDir, RemodelersFilename) {
		t.Errorf("Unexpected remodelers path %s", plan.RemodelersPath)
	}
}
