package crawler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CheckpointWriter persists each page's newly discovered, detail-enriched
// offers to durable per-page artifacts before the crawl continues, so a
// crash loses at most the in-flight page.
type CheckpointWriter struct {
	dir       string
	sessionID string
}

// NewCheckpointWriter creates a writer rooted at outputDir/progress.
func NewCheckpointWriter(outputDir, sessionID string) (*CheckpointWriter, error) {
	dir := filepath.Join(outputDir, "progress")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointWriter{dir: dir, sessionID: sessionID}, nil
}

// WritePage writes one page's offers as a CSV file with the fixed column
// order and a JSON file with the same field set.
func (w *CheckpointWriter) WritePage(items []JobPosting, page int) error {
	base := fmt.Sprintf("educarriere_new_page_%d_%s", page, w.sessionID)

	if err := w.writeCSV(items, filepath.Join(w.dir, base+".csv")); err != nil {
		return err
	}
	return w.writeJSON(items, filepath.Join(w.dir, base+".json"))
}

func (w *CheckpointWriter) writeCSV(items []JobPosting, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint CSV: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(FieldColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range items {
		if err := cw.Write(items[i].Record()); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush checkpoint CSV: %w", err)
	}
	return nil
}

func (w *CheckpointWriter) writeJSON(items []JobPosting, path string) error {
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint JSON: %w", err)
	}
	return nil
}
