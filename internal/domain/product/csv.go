package product

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{"ID", "Name", "Description", "Price", "Category", "In Stock"}

// WriteCSV exports the catalog in the admin spreadsheet format.
func WriteCSV(w io.Writer, products []Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range products {
		inStock := "No"
		if p.InStock {
			inStock = "Yes"
		}
		record := []string{
			p.ID,
			p.Name,
			p.Description,
			strconv.FormatFloat(p.Price, 'f', 2, 64),
			p.Category,
			inStock,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DescriptionUpdate pairs a product id with its replacement description.
type DescriptionUpdate struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// ParseDescriptionCSV reads an exported sheet back in and returns the
// description changes for products that exist in the catalog. Rows for
// unknown ids and rows without a description are skipped.
func ParseDescriptionCSV(r io.Reader, products []Product) ([]DescriptionUpdate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	descIndex := -1
	for i, h := range records[0] {
		if strings.Contains(strings.ToLower(h), "description") {
			descIndex = i
			break
		}
	}
	if descIndex == -1 {
		return nil, fmt.Errorf("CSV has no description column")
	}

	known := make(map[string]string, len(products))
	for _, p := range products {
		known[p.ID] = p.Description
	}

	var updates []DescriptionUpdate
	for _, record := range records[1:] {
		if len(record) <= descIndex {
			continue
		}
		id := record[0]
		current, ok := known[id]
		if !ok {
			continue
		}
		desc := record[descIndex]
		if desc == "" || desc == current {
			continue
		}
		updates = append(updates, DescriptionUpdate{ID: id, Description: desc})
	}
	return updates, nil
}

// UpdateDescriptions applies parsed description changes.
func (s *Service) UpdateDescriptions(ctx context.Context, updates []DescriptionUpdate) error {
	for _, u := range updates {
		if err := s.Update(ctx, u.ID, map[string]any{"description": u.Description}); err != nil {
			return err
		}
	}
	return nil
}
