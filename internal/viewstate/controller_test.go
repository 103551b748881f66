package viewstate

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"products-dashboard/internal/models"
)

// catalog builds n products with ids 1..n. Products 4, 12 and 20 are lamps.
func catalog(n int) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 1; i <= n; i++ {
		title := fmt.Sprintf("Item %02d", i)
		switch i {
		case 4, 12, 20:
			title = fmt.Sprintf("Desk Lamp %d", i)
		}
		products = append(products, models.Product{
			ID:       models.ProductID(strconv.Itoa(i)),
			Title:    title,
			Price:    models.Price(float64(100 - i)),
			Category: &models.Category{ID: "1", Name: "Home"},
			Images:   []string{fmt.Sprintf("https://img.example/%d.png", i)},
		})
	}
	return products
}

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID.String()
	}
	return out
}

func titles(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Title
	}
	return out
}

// assertInvariants checks the relationship between the dataset, the filtered
// view and the current page after any operation.
func assertInvariants(t *testing.T, c *Controller) {
	t.Helper()

	expected := New(WithItemsPerPage(c.ItemsPerPage()))
	expected.Load(c.AllProducts())
	expected.ApplySearch(c.SearchTerm())
	if c.SortColumn() != "" {
		_, err := expected.ApplySort(string(c.SortColumn()))
		require.NoError(t, err)
		if c.SortDirection() == Descending {
			_, err = expected.ApplySort(string(c.SortColumn()))
			require.NoError(t, err)
		}
	}
	assert.Equal(t, ids(expected.FilteredProducts()), ids(c.FilteredProducts()))

	last := max(1, c.TotalPages())
	assert.GreaterOrEqual(t, c.CurrentPage(), 1)
	assert.LessOrEqual(t, c.CurrentPage(), last)
}

// ===========================================
// Load
// ===========================================

func TestLoad_ClonesInputAndResetsPage(t *testing.T) {
	c := New()
	input := catalog(25)
	c.Load(input)
	c.GoToPage(3)

	input[0].Title = "mutated"
	view := c.Load(input)

	assert.Equal(t, 1, view.Pagination.Page)
	assert.Equal(t, "mutated", c.AllProducts()[0].Title)

	input[0].Title = "mutated again"
	assert.Equal(t, "mutated", c.AllProducts()[0].Title)
	assertInvariants(t, c)
}

func TestLoad_KeepsSearchAndSort(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.ApplySearch("lamp")
	_, err := c.ApplySort("price")
	require.NoError(t, err)

	view := c.Load(catalog(25))

	assert.Equal(t, "lamp", view.Search)
	assert.Equal(t, models.SortState{Column: "price", Direction: "asc"}, view.Sort)
	assert.Equal(t, []string{"20", "12", "4"}, ids(view.Items))
	assertInvariants(t, c)
}

// ===========================================
// Search
// ===========================================

func TestApplySearch_CaseInsensitiveTitleMatch(t *testing.T) {
	c := New()
	c.Load(catalog(25))

	view := c.ApplySearch("LaMp")

	assert.Equal(t, []string{"4", "12", "20"}, ids(c.FilteredProducts()))
	assert.Equal(t, 3, view.Pagination.Total)
	assertInvariants(t, c)
}

func TestApplySearch_MatchesTitleOnly(t *testing.T) {
	c := New()
	products := catalog(3)
	products[0].Description = "a lamp in disguise"
	c.Load(products)

	c.ApplySearch("disguise")

	assert.Empty(t, c.FilteredProducts())
}

func TestApplySearch_EmptyTermRestoresAll(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.ApplySearch("lamp")

	c.ApplySearch("")

	assert.Equal(t, ids(c.AllProducts()), ids(c.FilteredProducts()))
}

func TestApplySearch_ResetsPage(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(3)

	view := c.ApplySearch("item")

	assert.Equal(t, 1, view.Pagination.Page)
}

// ===========================================
// Sort
// ===========================================

func TestApplySort_ToggleRule(t *testing.T) {
	c := New()
	c.Load(catalog(5))

	view, err := c.ApplySort("title")
	require.NoError(t, err)
	assert.Equal(t, models.SortState{Column: "title", Direction: "asc"}, view.Sort)

	view, err = c.ApplySort("title")
	require.NoError(t, err)
	assert.Equal(t, models.SortState{Column: "title", Direction: "desc"}, view.Sort)

	view, err = c.ApplySort("price")
	require.NoError(t, err)
	assert.Equal(t, models.SortState{Column: "price", Direction: "asc"}, view.Sort)
}

func TestApplySort_PriceIsNumeric(t *testing.T) {
	c := New()
	c.Load([]models.Product{
		{ID: "1", Title: "a", Price: 100},
		{ID: "2", Title: "b", Price: 9.5},
		{ID: "3", Title: "c", Price: 20},
	})

	_, err := c.ApplySort("price")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3", "1"}, ids(c.FilteredProducts()))

	_, err = c.ApplySort("price")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2"}, ids(c.FilteredProducts()))
}

func TestApplySort_TitleIsCaseInsensitive(t *testing.T) {
	c := New()
	c.Load([]models.Product{
		{ID: "1", Title: "banana"},
		{ID: "2", Title: "Apple"},
		{ID: "3", Title: "cherry"},
	})

	_, err := c.ApplySort("title")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "banana", "cherry"}, titles(c.FilteredProducts()))

	_, err = c.ApplySort("title")
	require.NoError(t, err)
	assert.Equal(t, []string{"cherry", "banana", "Apple"}, titles(c.FilteredProducts()))
}

func TestApplySort_IDIsNumericWhenPossible(t *testing.T) {
	c := New()
	c.Load([]models.Product{{ID: "10"}, {ID: "9"}, {ID: "100"}})

	_, err := c.ApplySort("id")
	require.NoError(t, err)

	assert.Equal(t, []string{"9", "10", "100"}, ids(c.FilteredProducts()))
}

func TestApplySort_IsStableInBothDirections(t *testing.T) {
	c := New()
	c.Load([]models.Product{
		{ID: "1", Title: "x", Price: 5},
		{ID: "2", Title: "y", Price: 1},
		{ID: "3", Title: "z", Price: 5},
		{ID: "4", Title: "w", Price: 1},
	})

	_, err := c.ApplySort("price")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(c.FilteredProducts()))

	_, err = c.ApplySort("price")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "2", "4"}, ids(c.FilteredProducts()))
}

func TestApplySort_Idempotent(t *testing.T) {
	a := New()
	a.Load(catalog(25))
	_, err := a.ApplySort("category")
	require.NoError(t, err)
	once := ids(a.FilteredProducts())

	// re-sorting the already sorted sequence with the same key must not move anything
	items := a.FilteredProducts()
	sortProducts(items, ColumnCategory, Ascending)
	assert.Equal(t, once, ids(items))
}

func TestApplySort_KeepsPage(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(2)

	view, err := c.ApplySort("title")
	require.NoError(t, err)

	assert.Equal(t, 2, view.Pagination.Page)
	assertInvariants(t, c)
}

func TestApplySort_UnknownColumn(t *testing.T) {
	c := New()
	c.Load(catalog(5))
	before := ids(c.FilteredProducts())

	_, err := c.ApplySort("weight")

	assert.ErrorIs(t, err, ErrUnknownSortColumn)
	assert.Equal(t, Column(""), c.SortColumn())
	assert.Equal(t, before, ids(c.FilteredProducts()))
}

// ===========================================
// Page size and navigation
// ===========================================

func TestSetItemsPerPage_ResetsPage(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(3)

	view, err := c.SetItemsPerPage(5)
	require.NoError(t, err)

	assert.Equal(t, 1, view.Pagination.Page)
	assert.Equal(t, 5, view.Pagination.TotalPages)
	assert.Len(t, view.Items, 5)
}

func TestSetItemsPerPage_RejectsNonPositive(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(2)

	_, err := c.SetItemsPerPage(0)

	assert.ErrorIs(t, err, ErrInvalidPageSize)
	assert.Equal(t, DefaultItemsPerPage, c.ItemsPerPage())
	assert.Equal(t, 2, c.CurrentPage())
}

func TestGoToPage_OutOfRangeIsNoop(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(2)

	renders := 0
	c.Subscribe(func(PageView) { renders++ })

	for _, page := range []int{0, -1, c.TotalPages() + 1, 1000} {
		before := c.View()
		after, changed := c.GoToPage(page)
		assert.False(t, changed, "page %d", page)
		assert.Equal(t, before, after)
		assert.Equal(t, 2, c.CurrentPage())
	}
	assert.Zero(t, renders)
}

func TestGoToPage_EveryValidPage(t *testing.T) {
	c := New()
	c.Load(catalog(25))

	for page := 1; page <= c.TotalPages(); page++ {
		view, changed := c.GoToPage(page)
		assert.True(t, changed)
		assert.Equal(t, page, view.Pagination.Page)
	}
}

func TestGoToPage_EmptyDataset(t *testing.T) {
	c := New()

	_, changed := c.GoToPage(1)

	assert.False(t, changed)
	assert.Equal(t, 1, c.CurrentPage())
	view := c.View()
	assert.False(t, view.Pagination.HasPrevious)
	assert.False(t, view.Pagination.HasNext)
	assert.Empty(t, view.Pagination.Window)
	assert.Equal(t, "0-0 of 0", view.Summary())
}

// ===========================================
// Detail view
// ===========================================

func TestViewDetail(t *testing.T) {
	c := New()
	c.Load(catalog(5))

	p, err := c.ViewDetail("3")
	require.NoError(t, err)
	assert.Equal(t, "Item 03", p.Title)

	current, ok := c.CurrentProduct()
	assert.True(t, ok)
	assert.Equal(t, models.ProductID("3"), current.ID)

	p, err = c.ViewDetail("4.0")
	require.NoError(t, err)
	assert.Equal(t, models.ProductID("4"), p.ID)
}

func TestViewDetail_NotFound(t *testing.T) {
	c := New()
	c.Load(catalog(5))
	_, err := c.ViewDetail("2")
	require.NoError(t, err)

	_, err = c.ViewDetail("99")

	assert.ErrorIs(t, err, models.ErrProductNotFound)
	current, _ := c.CurrentProduct()
	assert.Equal(t, models.ProductID("2"), current.ID)
}

// ===========================================
// Mutations
// ===========================================

func TestApplyUpdate_ReplacesInPlace(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	before := c.AllProducts()

	_, err := c.ApplyUpdate("7", models.Product{ID: "7", Title: "Renamed", Price: 1})
	require.NoError(t, err)

	after := c.AllProducts()
	require.Len(t, after, len(before))
	for i := range after {
		if i == 6 {
			assert.Equal(t, "Renamed", after[i].Title)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
	assertInvariants(t, c)
}

func TestApplyUpdate_ToleratesIDRepresentation(t *testing.T) {
	c := New()
	c.Load(catalog(5))

	_, err := c.ApplyUpdate(models.NormalizeID("3.0"), models.Product{Title: "Three"})
	require.NoError(t, err)

	p, err := c.ViewDetail("3")
	require.NoError(t, err)
	assert.Equal(t, "Three", p.Title)
}

func TestApplyUpdate_ReappliesFilterAndSort(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.ApplySearch("lamp")
	_, err := c.ApplySort("price")
	require.NoError(t, err)

	// item 5 now matches the filter and is the cheapest lamp
	view, err := c.ApplyUpdate("5", models.Product{ID: "5", Title: "Floor Lamp", Price: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"5", "20", "12", "4"}, ids(view.Items))
	assertInvariants(t, c)
}

func TestApplyUpdate_RefreshesCurrentProduct(t *testing.T) {
	c := New()
	c.Load(catalog(5))
	_, err := c.ViewDetail("2")
	require.NoError(t, err)

	_, err = c.ApplyUpdate("2", models.Product{ID: "2", Title: "Fresh"})
	require.NoError(t, err)

	current, _ := c.CurrentProduct()
	assert.Equal(t, "Fresh", current.Title)
}

func TestApplyUpdate_NotFoundLeavesStateUnchanged(t *testing.T) {
	c := New()
	c.Load(catalog(5))
	before := c.AllProducts()

	_, err := c.ApplyUpdate("99", models.Product{ID: "99", Title: "Ghost"})

	assert.ErrorIs(t, err, models.ErrProductNotFound)
	assert.Equal(t, before, c.AllProducts())
}

func TestApplyUpdate_ClampsPageWhenFilteredSetShrinks(t *testing.T) {
	c := New(WithItemsPerPage(1))
	c.Load(catalog(25))
	c.ApplySearch("lamp")
	c.GoToPage(3)

	view, err := c.ApplyUpdate("20", models.Product{ID: "20", Title: "Chair"})
	require.NoError(t, err)

	assert.Equal(t, 2, view.Pagination.Page)
	assert.Equal(t, 2, view.Pagination.TotalPages)
	assertInvariants(t, c)
}

func TestApplyCreate_Prepends(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.GoToPage(2)

	view := c.ApplyCreate(models.Product{ID: "26", Title: "Brand New"})

	all := c.AllProducts()
	assert.Len(t, all, 26)
	assert.Equal(t, models.ProductID("26"), all[0].ID)
	assert.Equal(t, 2, view.Pagination.Page)
	assertInvariants(t, c)
}

func TestApplyCreate_HiddenByActiveFilter(t *testing.T) {
	c := New()
	c.Load(catalog(25))
	c.ApplySearch("lamp")

	view := c.ApplyCreate(models.Product{ID: "26", Title: "Sofa"})

	assert.Equal(t, []string{"4", "12", "20"}, ids(view.Items))
	assert.Len(t, c.AllProducts(), 26)
}

// ===========================================
// Renderers and reset
// ===========================================

func TestRenderersReceiveEveryChange(t *testing.T) {
	var seen []PageView
	c := New(WithRenderer(func(v PageView) { seen = append(seen, v) }))

	c.Load(catalog(25))
	c.ApplySearch("lamp")
	_, _ = c.SetItemsPerPage(0)
	c.GoToPage(5)

	require.Len(t, seen, 2)
	assert.Equal(t, 25, seen[0].Pagination.Total)
	assert.Equal(t, 3, seen[1].Pagination.Total)
}

func TestReset(t *testing.T) {
	c := New(WithItemsPerPage(20))
	c.Load(catalog(25))
	c.ApplySearch("lamp")
	_, _ = c.SetItemsPerPage(5)

	c.Reset()

	assert.Empty(t, c.AllProducts())
	assert.Equal(t, "", c.SearchTerm())
	assert.Equal(t, 20, c.ItemsPerPage())
	assert.Equal(t, 1, c.CurrentPage())
}

// ===========================================
// End to end
// ===========================================

func TestEndToEnd_LoadPaginateSearch(t *testing.T) {
	c := New(WithItemsPerPage(10))

	view := c.Load(catalog(25))

	assert.Equal(t, 3, view.Pagination.TotalPages)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, ids(view.Items))
	assert.Equal(t, "1-10 of 25", view.Summary())
	assert.Equal(t, []int{1, 2, 3}, view.Pagination.Window)
	assert.False(t, view.Pagination.HasPrevious)
	assert.True(t, view.Pagination.HasNext)

	view, _ = c.GoToPage(3)
	assert.Equal(t, "21-25 of 25", view.Summary())
	assert.False(t, view.Pagination.HasNext)

	view = c.ApplySearch("lamp")
	assert.Equal(t, 1, view.Pagination.TotalPages)
	assert.Equal(t, 1, view.Pagination.Page)
	assert.Equal(t, "1-3 of 3", view.Summary())
}
