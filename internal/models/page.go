package models

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// ClampPaging normalizes page and size: page is at least 1, size defaults to [DefaultPageSize] and is kept within [1, MaxPageSize].
func ClampPaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// Offset is the number of rows to skip for the page.
func Offset(page, size int) int {
	return (page - 1) * size
}
