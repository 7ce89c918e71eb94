package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names inside the report directory.
const (
	MarkdownFile   = "DISCOVERY_REPORT.md"
	NightsCSVFile  = "nightly_counts.csv"
	ObjectsCSVFile = "top_objects.csv"
)

// WriteFiles renders the report and writes the markdown and CSV outputs
// into outputDir, creating it if needed.
func WriteFiles(outputDir string, r *Report) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	md := RenderMarkdown(r)
	if err := os.WriteFile(filepath.Join(outputDir, MarkdownFile), []byte(md), 0644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}

	nightsCSV := RenderNightsCSV(r.Nights)
	if err := os.WriteFile(filepath.Join(outputDir, NightsCSVFile), []byte(nightsCSV), 0644); err != nil {
		return fmt.Errorf("write nightly counts: %w", err)
	}

	objectsCSV := RenderObjectsCSV(r.TopObjects)
	if err := os.WriteFile(filepath.Join(outputDir, ObjectsCSVFile), []byte(objectsCSV), 0644); err != nil {
		return fmt.Errorf("write top objects: %w", err)
	}
	return nil
}
