package models

// SearchRequest sets the title filter. An empty term clears it.
type SearchRequest struct {
	Term string `json:"term"`
}

type SortRequest struct {
	Column string `json:"column" binding:"required"`
}

type PageSizeRequest struct {
	ItemsPerPage *int `json:"itemsPerPage" binding:"required"`
}

type PageRequest struct {
	Page *int `json:"page" binding:"required"`
}

type EditFormResponse struct {
	Success bool     `json:"success"`
	Data    EditForm `json:"data"`
}

