package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads the page and limite query params. Pages are
// 1-based; anything out of range falls back to the first page at the
// default size.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()

	size, _ := strconv.Atoi(q.Get("limite"))
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	return PaginationParams{
		Limit:  size,
		Offset: (page - 1) * size,
	}
}
