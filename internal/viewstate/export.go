package viewstate

import (
	"strings"

	"products-dashboard/internal/models"
)

// ExportHeader is the first line of every CSV export
const ExportHeader = "ID,Title,Price,Category,Description,Images"

// ImageSeparator joins image URLs inside the Images field
const ImageSeparator = "; "

// ExportCurrentPage renders the visible page, and only the visible page, as CSV
func (c *Controller) ExportCurrentPage() string {
	var b strings.Builder
	b.WriteString(ExportHeader)
	b.WriteByte('\n')
	for _, p := range c.visibleSlice() {
		b.WriteString(strings.Join(ExportRecord(p), ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// ExportRecord returns the CSV fields of one product. Text fields are always
// quote-wrapped; price and integer ids are bare.
func ExportRecord(p models.Product) []string {
	id := p.ID.String()
	if _, ok := p.ID.Int(); !ok {
		id = quoteField(id)
	}
	return []string{
		id,
		quoteField(p.Title),
		p.Price.String(),
		quoteField(p.CategoryName()),
		quoteField(p.Description),
		quoteField(strings.Join(p.Images, ImageSeparator)),
	}
}

func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
