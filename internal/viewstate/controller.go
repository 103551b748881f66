// Package viewstate keeps the dashboard's search, sort and pagination state
// consistent with the product dataset it is browsing.
package viewstate

import (
	"errors"
	"fmt"
	"strings"

	"products-dashboard/internal/models"
)

// DefaultItemsPerPage is used when no page size option is given
const DefaultItemsPerPage = 10

// ErrInvalidPageSize is returned for a non-positive page size
var ErrInvalidPageSize = errors.New("items per page must be positive")

// Renderer receives the view after every state change
type Renderer func(PageView)

// PageView is the visible slice plus the metadata needed to draw the table
type PageView struct {
	Items      []models.Product      `json:"items"`
	Pagination models.PaginationInfo `json:"pagination"`
	Search     string                `json:"search"`
	Sort       models.SortState      `json:"sort"`
}

// Summary renders "<from>-<to> of <total>"
func (v PageView) Summary() string {
	return fmt.Sprintf("%d-%d of %d", v.Pagination.From, v.Pagination.To, v.Pagination.Total)
}

// SortIndicator returns "asc" or "desc" for the active column and "" otherwise
func (v PageView) SortIndicator(column string) string {
	if v.Sort.Column != column {
		return ""
	}
	return v.Sort.Direction
}

// SortIndicators maps every sortable column to its indicator
func (v PageView) SortIndicators() map[string]string {
	out := make(map[string]string, len(comparators))
	for _, col := range Columns() {
		out[string(col)] = v.SortIndicator(string(col))
	}
	return out
}

// Option configures a Controller
type Option func(*Controller)

// WithItemsPerPage sets the initial page size. Non-positive values are ignored.
func WithItemsPerPage(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.defaultItemsPerPage = n
		}
	}
}

// WithRenderer registers a renderer at construction time
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		c.Subscribe(r)
	}
}

// Controller owns the view state of one dashboard.
//
// Every exported operation recomputes in the same order: mutate the source,
// filter, sort, clamp the page, slice, build pagination metadata, notify
// renderers. A Controller is not safe for concurrent use.
type Controller struct {
	allProducts      []models.Product
	filteredProducts []models.Product
	currentPage      int
	itemsPerPage     int
	searchTerm       string
	sortColumn       Column
	sortDirection    Direction
	currentProduct   *models.Product

	defaultItemsPerPage int
	renderers           []Renderer
}

// New creates a controller with an empty dataset
func New(opts ...Option) *Controller {
	c := &Controller{defaultItemsPerPage: DefaultItemsPerPage}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset returns the controller to its initial state. Renderers stay registered.
func (c *Controller) Reset() {
	c.allProducts = []models.Product{}
	c.filteredProducts = []models.Product{}
	c.currentPage = 1
	c.itemsPerPage = c.defaultItemsPerPage
	c.searchTerm = ""
	c.sortColumn = ""
	c.sortDirection = Ascending
	c.currentProduct = nil
}

// Subscribe registers a renderer. Nil renderers are ignored.
func (c *Controller) Subscribe(r Renderer) {
	if r != nil {
		c.renderers = append(c.renderers, r)
	}
}

// Load replaces the dataset. The active search term and sort are kept.
func (c *Controller) Load(products []models.Product) PageView {
	c.allProducts = models.CloneProducts(products)
	c.currentPage = 1
	c.recompute()
	return c.render()
}

// ApplySearch filters by a case-insensitive substring of the title
func (c *Controller) ApplySearch(term string) PageView {
	c.searchTerm = term
	c.currentPage = 1
	c.recompute()
	return c.render()
}

// ApplySort sorts by column, flipping the direction when the column is
// already active. The current page is kept.
func (c *Controller) ApplySort(column string) (PageView, error) {
	col, err := ParseColumn(column)
	if err != nil {
		return c.View(), err
	}
	if c.sortColumn == col {
		if c.sortDirection == Ascending {
			c.sortDirection = Descending
		} else {
			c.sortDirection = Ascending
		}
	} else {
		c.sortColumn = col
		c.sortDirection = Ascending
	}
	c.recompute()
	return c.render(), nil
}

// SetItemsPerPage changes the page size and returns to page 1
func (c *Controller) SetItemsPerPage(n int) (PageView, error) {
	if n < 1 {
		return c.View(), fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	c.itemsPerPage = n
	c.currentPage = 1
	c.recompute()
	return c.render(), nil
}

// GoToPage moves to page. Out-of-range pages leave the state untouched,
// return false and notify nobody.
func (c *Controller) GoToPage(page int) (PageView, bool) {
	if page < 1 || page > c.TotalPages() {
		return c.View(), false
	}
	c.currentPage = page
	return c.render(), true
}

// ViewDetail opens the product with the given id
func (c *Controller) ViewDetail(id models.ProductID) (models.Product, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	p := c.allProducts[idx].Clone()
	c.currentProduct = &p
	return p.Clone(), nil
}

// ApplyUpdate replaces the record with the given id by a server-confirmed
// version, keeping its position in the dataset.
func (c *Controller) ApplyUpdate(id models.ProductID, updated models.Product) (PageView, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return c.View(), fmt.Errorf("%w: %s", models.ErrProductNotFound, id)
	}
	record := updated.Clone()
	if record.ID == "" {
		record.ID = c.allProducts[idx].ID
	}
	c.allProducts[idx] = record
	if c.currentProduct != nil && c.currentProduct.ID.Equal(id) {
		p := record.Clone()
		c.currentProduct = &p
	}
	c.recompute()
	return c.render(), nil
}

// ApplyCreate prepends a server-confirmed record. The current page is kept,
// so the new record is only visible if it lands on it.
func (c *Controller) ApplyCreate(record models.Product) PageView {
	c.allProducts = append([]models.Product{record.Clone()}, c.allProducts...)
	c.recompute()
	return c.render()
}

// View returns the current view without notifying renderers
func (c *Controller) View() PageView {
	items := models.CloneProducts(c.visibleSlice())
	return PageView{
		Items:      items,
		Pagination: c.paginationInfo(),
		Search:     c.searchTerm,
		Sort:       c.sortState(),
	}
}

// VisibleItems returns a copy of the current page's products
func (c *Controller) VisibleItems() []models.Product {
	return models.CloneProducts(c.visibleSlice())
}

// AllProducts returns a copy of the dataset in insertion order
func (c *Controller) AllProducts() []models.Product {
	return models.CloneProducts(c.allProducts)
}

// FilteredProducts returns a copy of the filtered and sorted dataset
func (c *Controller) FilteredProducts() []models.Product {
	return models.CloneProducts(c.filteredProducts)
}

// CurrentProduct returns the product open in the detail view
func (c *Controller) CurrentProduct() (models.Product, bool) {
	if c.currentProduct == nil {
		return models.Product{}, false
	}
	return c.currentProduct.Clone(), true
}

func (c *Controller) CurrentPage() int { return c.currentPage }

func (c *Controller) ItemsPerPage() int { return c.itemsPerPage }

func (c *Controller) SearchTerm() string { return c.searchTerm }

func (c *Controller) SortColumn() Column { return c.sortColumn }

func (c *Controller) SortDirection() Direction { return c.sortDirection }

// TotalPages returns the number of pages of the filtered dataset
func (c *Controller) TotalPages() int {
	return TotalPages(len(c.filteredProducts), c.itemsPerPage)
}

func (c *Controller) recompute() {
	term := strings.ToLower(c.searchTerm)
	filtered := make([]models.Product, 0, len(c.allProducts))
	for _, p := range c.allProducts {
		if term == "" || strings.Contains(strings.ToLower(p.Title), term) {
			filtered = append(filtered, p)
		}
	}
	if c.sortColumn != "" {
		sortProducts(filtered, c.sortColumn, c.sortDirection)
	}
	c.filteredProducts = filtered
	c.clampPage()
}

func (c *Controller) clampPage() {
	last := max(1, c.TotalPages())
	if c.currentPage > last {
		c.currentPage = last
	}
	if c.currentPage < 1 {
		c.currentPage = 1
	}
}

func (c *Controller) visibleSlice() []models.Product {
	start := (c.currentPage - 1) * c.itemsPerPage
	if start >= len(c.filteredProducts) {
		return nil
	}
	end := min(start+c.itemsPerPage, len(c.filteredProducts))
	return c.filteredProducts[start:end]
}

func (c *Controller) paginationInfo() models.PaginationInfo {
	total := len(c.filteredProducts)
	pages := c.TotalPages()
	info := models.PaginationInfo{
		Page:        c.currentPage,
		Limit:       c.itemsPerPage,
		Total:       total,
		TotalPages:  pages,
		HasNext:     c.currentPage < pages,
		HasPrevious: c.currentPage > 1,
		Window:      PaginationWindow(c.currentPage, pages),
	}
	if total > 0 {
		info.From = (c.currentPage-1)*c.itemsPerPage + 1
		info.To = min(c.currentPage*c.itemsPerPage, total)
	}
	return info
}

func (c *Controller) sortState() models.SortState {
	if c.sortColumn == "" {
		return models.SortState{}
	}
	return models.SortState{Column: string(c.sortColumn), Direction: string(c.sortDirection)}
}

func (c *Controller) indexOf(id models.ProductID) int {
	for i, p := range c.allProducts {
		if p.ID.Equal(id) {
			return i
		}
	}
	return -1
}

func (c *Controller) render() PageView {
	view := c.View()
	for _, r := range c.renderers {
		r(view)
	}
	return view
}
