package viewstate

// MaxVisiblePages bounds the page-number strip
const MaxVisiblePages = 5

// PaginationWindow returns the page numbers to display, centered on current
// when possible and always MaxVisiblePages long when total allows it.
func PaginationWindow(current, total int) []int {
	if total < 1 {
		return []int{}
	}
	start := max(1, current-MaxVisiblePages/2)
	end := min(total, start+MaxVisiblePages-1)
	if end-start < MaxVisiblePages-1 {
		start = max(1, end-MaxVisiblePages+1)
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// TotalPages returns ceil(count/perPage)
func TotalPages(count, perPage int) int {
	if perPage < 1 || count < 1 {
		return 0
	}
	return (count + perPage - 1) / perPage
}
