package shared

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/learnhub/learnhub/internal/platform/httpx"
)

// Page size bounds for list endpoints.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a window of a listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// Limit returns the SQL LIMIT for the window.
func (p PageRequest) Limit() int {
	return p.PageSize
}

// Offset returns the SQL OFFSET for the window.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePageRequest reads page and page_size query parameters. A malformed
// page number is a 404, an oversized page_size is clamped.
func ParsePageRequest(r *http.Request) (PageRequest, error) {
	req := PageRequest{Page: 1, PageSize: DefaultPageSize}
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return PageRequest{}, fmt.Errorf("%w: invalid page", httpx.ErrNotFound)
		}
		req.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			req.PageSize = min(size, MaxPageSize)
		}
	}
	return req, nil
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Count      int `json:"count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(req PageRequest, total int) Pagination {
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(req.PageSize)))
	return Pagination{Page: req.Page, PageSize: req.PageSize, Count: total, TotalPages: totalPages}
}

// Page is a paginated listing response.
type Page[T any] struct {
	Pagination
	Results []T `json:"results"`
}

// NewPage wraps items with pagination metadata. Results is never nil.
func NewPage[T any](req PageRequest, total int, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Pagination: NewPagination(req, total), Results: items}
}
