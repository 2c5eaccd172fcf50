package domain

// Pagination
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(limit, offset int, total int64) Pagination {
	if limit <= 0 {
		limit = 1
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: offset/limit + 1, Limit: limit, TotalItems: total, TotalPages: pages}
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Data []T        `json:"data"`
	Meta Pagination `json:"meta"`
}
