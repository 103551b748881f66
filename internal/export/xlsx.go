// Package export writes the visible dashboard page as a downloadable file.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"products-dashboard/internal/models"
	"products-dashboard/internal/viewstate"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetName = "Products"
)

var columns = []struct {
	name  string
	width float64
}{
	{"ID", 10},
	{"Title", 40},
	{"Price", 12},
	{"Category", 20},
	{"Description", 60},
	{"Images", 60},
}

// FileName returns products_page_<page>_<unixmillis>.<ext>
func FileName(page int, ext string, now time.Time) string {
	return fmt.Sprintf("products_page_%d_%d.%s", page, now.UnixMilli(), ext)
}

// ContentType maps an export format to its MIME type
func ContentType(format string) (string, error) {
	switch format {
	case FormatCSV:
		return ContentTypeCSV, nil
	case FormatXLSX:
		return ContentTypeXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteXLSX writes items as a single-sheet workbook with the same columns as
// the CSV export. Price is stored as a number.
func WriteXLSX(w io.Writer, items []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, col.name); err != nil {
			return fmt.Errorf("failed to write header %s: %w", col.name, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", col.name, err)
		}

		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, colName, colName, col.width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", colName, err)
		}
	}

	for r, p := range items {
		row := r + 2
		values := []interface{}{
			p.ID.String(),
			p.Title,
			p.Price.Float64(),
			p.CategoryName(),
			p.Description,
			strings.Join(p.Images, viewstate.ImageSeparator),
		}
		if n, ok := p.ID.Int(); ok {
			values[0] = n
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
