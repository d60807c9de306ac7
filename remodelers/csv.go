package remodelers

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/runes"
)

// Header is the first CSV row
var Header = []string{"chromatin_remodeler", "synonyms"}

var validUTF8 = runes.ReplaceIllFormed()

// WriteCSV writes the header and one row per record to path as UTF-8 with
// CRLF line endings. Valid text is written unchanged; ill-formed UTF-8 is
// replaced with U+FFFD so the file is always valid UTF-8. The file is
// replaced atomically.
func WriteCSV(path string, records []Record) (err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	w.UseCRLF = true

	if err = w.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{validUTF8.String(r.ChromatinRemodeler), validUTF8.String(r.Synonyms)}
		if err = w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", r.ChromatinRemodeler, err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}
