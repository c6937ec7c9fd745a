// Package export writes a finished run to disk in three shapes: the full tree
// as JSON, the flattened records as CSV (the original spreadsheet columns),
// and a per-section Markdown report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/medline/expocrawl/internal/archive"
	"github.com/medline/expocrawl/pkg/models"
)

// WriteAll exports run.json, records.csv and report.md under dir.
func WriteAll(dir string, run *models.CrawlRun) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := WriteJSON(filepath.Join(dir, "run.json"), run); err != nil {
		return err
	}
	if err := WriteCSV(filepath.Join(dir, "records.csv"), run); err != nil {
		return err
	}
	if err := WriteReport(filepath.Join(dir, "report.md"), run); err != nil {
		return err
	}

	log.Info().Str("dir", dir).Str("run_id", run.ID).Msg("Run exported")
	return nil
}

// WriteJSON writes the full tree, indented.
func WriteJSON(path string, run *models.CrawlRun) error {
	content, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON export: %w", err)
	}
	return nil
}

// csvHeader matches the original spreadsheet columns.
var csvHeader = []string{
	"Section", "Subcategory", "Entry", "Product Name", "Manufacturer",
	"Price", "Currency", "Model", "Features", "Image Src", "Link",
}

// WriteCSV flattens every record into one row with its hierarchy path.
func WriteCSV(path string, run *models.CrawlRun) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range archive.FlattenRecords(run) {
		rec := row.Record
		image := rec.TileImage.Src
		if image == "" && len(rec.Images) > 0 {
			image = rec.Images[0]
		}
		line := []string{
			row.Section, row.Subcategory, row.Entry,
			rec.Title, rec.Manufacturer.Name,
			rec.Price, rec.Currency, rec.Model,
			strings.Join(rec.Features, "; "),
			image, rec.DetailURL,
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
