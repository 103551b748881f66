package viewstate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"products-dashboard/internal/models"
)

// ErrUnknownSortColumn is returned for a column the table cannot sort by
var ErrUnknownSortColumn = errors.New("unknown sort column")

// Direction of the active sort
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Column identifies a sortable table column
type Column string

const (
	ColumnID         Column = "id"
	ColumnTitle      Column = "title"
	ColumnPrice      Column = "price"
	ColumnCategory   Column = "category"
	ColumnSlug       Column = "slug"
	ColumnCreationAt Column = "creationAt"
	ColumnUpdatedAt  Column = "updatedAt"
)

var comparators = map[Column]func(a, b models.Product) int{
	ColumnID:    compareIDs,
	ColumnTitle: compareTitles,
	ColumnPrice: func(a, b models.Product) int {
		return cmp.Compare(a.Price.Float64(), b.Price.Float64())
	},
	ColumnCategory: func(a, b models.Product) int {
		return strings.Compare(a.CategoryName(), b.CategoryName())
	},
	ColumnSlug: func(a, b models.Product) int {
		return strings.Compare(a.Slug, b.Slug)
	},
	ColumnCreationAt: func(a, b models.Product) int {
		return compareTimes(a.CreationAt, b.CreationAt)
	},
	ColumnUpdatedAt: func(a, b models.Product) int {
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	},
}

// ParseColumn validates a column name coming from the UI
func ParseColumn(name string) (Column, error) {
	col := Column(name)
	if _, ok := comparators[col]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSortColumn, name)
	}
	return col, nil
}

// Columns lists the sortable columns
func Columns() []Column {
	return []Column{ColumnID, ColumnTitle, ColumnPrice, ColumnCategory, ColumnSlug, ColumnCreationAt, ColumnUpdatedAt}
}

// sortProducts stable-sorts items in place. Equal keys keep their relative
// order in both directions.
func sortProducts(items []models.Product, col Column, dir Direction) {
	compare, ok := comparators[col]
	if !ok {
		return
	}
	slices.SortStableFunc(items, func(a, b models.Product) int {
		if dir == Descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func compareIDs(a, b models.Product) int {
	an, aok := a.ID.Int()
	bn, bok := b.ID.Int()
	if aok && bok {
		return cmp.Compare(an, bn)
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

func compareTitles(a, b models.Product) int {
	return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

// nil timestamps sort first
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}
