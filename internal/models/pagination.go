package models

import "math"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 5

// PageWindow is the limit/offset pair for one page of results.
type PageWindow struct {
	Page   int
	Size   int
	Offset int
}

// NewPageWindow clamps the requested page to 1 and derives the offset. Pages
// past the end are allowed and simply return no rows. The page is capped so
// that offset+size never overflows int.
func NewPageWindow(requestedPage, pageSize int) PageWindow {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if requestedPage < 1 {
		requestedPage = 1
	}
	if maxPage := math.MaxInt / pageSize; requestedPage > maxPage {
		requestedPage = maxPage
	}
	return PageWindow{
		Page:   requestedPage,
		Size:   pageSize,
		Offset: (requestedPage - 1) * pageSize,
	}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination describes window within a result set of total rows.
func NewPagination(window PageWindow, total int) *Pagination {
	pages := 0
	if window.Size > 0 {
		pages = (total + window.Size - 1) / window.Size
	}
	return &Pagination{
		Page:       window.Page,
		PageSize:   window.Size,
		TotalCount: total,
		TotalPages: pages,
	}
}
