package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names a catalog source must provide
const (
	ColumnProductName = "Product_Name"
	ColumnCategory    = "Category"
	ColumnColor       = "Color"
	ColumnSize        = "Size"
	ColumnMaterial    = "Material"
)

var requiredColumns = []string{
	ColumnProductName,
	ColumnCategory,
	ColumnColor,
	ColumnSize,
	ColumnMaterial,
}

// ErrMissingColumn is wrapped by DataLoadError when the header lacks a required column
var ErrMissingColumn = errors.New("missing required column")

// DataLoadError reports a catalog that could not be read. No partial catalog accompanies it.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("catalog load failed: %v", e.Err)
	}
	return fmt.Sprintf("catalog load failed (%s): %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Item is one product row. Items are never modified after Load returns them.
type Item struct {
	RowIndex    int    `json:"row_index"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Material    string `json:"material"`
	FeatureText string `json:"feature_text"`
}

// FeatureText joins the categorical attributes with single spaces, casing untouched
func FeatureText(category, color, size, material string) string {
	return category + " " + color + " " + size + " " + material
}

// Load decodes a CSV catalog with a header row. Row order becomes RowIndex.
func Load(r io.Reader) ([]Item, error) {
	return load(r, "")
}

// LoadFile reads a CSV catalog from disk
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Err: err}
	}
	defer f.Close()

	return load(f, path)
}

func load(r io.Reader, source string) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			err = errors.New("empty source: no header row")
		}
		return nil, &DataLoadError{Source: source, Err: err}
	}

	columns, err := locateColumns(header)
	if err != nil {
		return nil, &DataLoadError{Source: source, Err: err}
	}

	items := make([]Item, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Source: source, Err: err}
		}

		// ReuseRecord shares the backing slice, the strings themselves are safe to keep
		item := Item{
			RowIndex:    len(items),
			ProductName: record[columns[ColumnProductName]],
			Category:    record[columns[ColumnCategory]],
			Color:       record[columns[ColumnColor]],
			Size:        record[columns[ColumnSize]],
			Material:    record[columns[ColumnMaterial]],
		}
		item.FeatureText = FeatureText(item.Category, item.Color, item.Size, item.Material)
		items = append(items, item)
	}

	return items, nil
}

// locateColumns maps each required column to its position in the header
func locateColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	columns := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = pos
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}
