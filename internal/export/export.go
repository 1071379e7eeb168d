// Package export writes scrape results to local files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

// Format selects the output encoding.
type Format string

// Supported output formats.
const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unknown export format %q", name)
	}
}

var columns = []string{"id", "kind", "title", "year", "genres", "rating", "description", "poster", "runtime", "source_url", "fetched_at"}

// Write encodes items in the given format at path.
func Write(items []catalog.ContentItem, format Format, path string) error {
	switch format {
	case FormatJSON:
		return writeJSON(items, path)
	case FormatCSV:
		return writeCSV(items, path)
	case FormatExcel:
		return writeExcel(items, path)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSON(items []catalog.ContentItem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeCSV(items []catalog.ContentItem, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range items {
		if err := w.Write(row(item)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeExcel(items []catalog.ContentItem, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Catalog"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, item := range items {
		values := row(item)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func row(item catalog.ContentItem) []string {
	year := ""
	if item.Year != nil {
		year = strconv.Itoa(*item.Year)
	}
	rating := ""
	if item.Rating != nil {
		rating = strconv.FormatFloat(*item.Rating, 'f', 1, 64)
	}
	return []string{
		item.ID,
		string(item.Kind),
		item.Title,
		year,
		strings.Join(item.Genres, "|"),
		rating,
		item.Description,
		item.Poster,
		item.Runtime,
		item.SourceURL,
		item.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
