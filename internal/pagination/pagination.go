package pagination

import (
	"fmt"
	"math"
	"net/http"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is the page/limit pair bound from the request query string
type Query struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Normalize clamps the query to sane bounds
func (q *Query) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
}

// Meta describes the pagination state of a response
type Meta struct {
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalItems   int64 `json:"totalItems"`
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
}

// Links are the navigation URLs for a paginated response
type Links struct {
	First   string `json:"first"`
	Last    string `json:"last"`
	Current string `json:"current"`
	Next    string `json:"next"`
	Prev    string `json:"prev"`
}

// Paginated is the envelope returned by every list endpoint
type Paginated[T any] struct {
	Data  []T   `json:"data"`
	Meta  Meta  `json:"meta"`
	Links Links `json:"links"`
}

// Paginate runs the given query with offset/limit applied and builds the
// meta block and navigation links from the request URL. The query must
// already carry its model and filters; next/prev clamp at the first and
// last page.
func Paginate[T any](query *gorm.DB, r *http.Request, q Query) (*Paginated[T], error) {
	q.Normalize()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	items := make([]T, 0, q.Limit)
	if err := query.
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(q.Limit)))
	nextPage := q.Page
	if q.Page != totalPages {
		nextPage = q.Page + 1
	}
	prevPage := q.Page
	if q.Page != 1 {
		prevPage = q.Page - 1
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.Path)
	link := func(page int) string {
		return fmt.Sprintf("%s?limit=%d&page=%d", base, q.Limit, page)
	}

	return &Paginated[T]{
		Data: items,
		Meta: Meta{
			ItemsPerPage: q.Limit,
			TotalItems:   total,
			CurrentPage:  q.Page,
			TotalPages:   totalPages,
		},
		Links: Links{
			First:   link(1),
			Last:    link(totalPages),
			Current: link(q.Page),
			Next:    link(nextPage),
			Prev:    link(prevPage),
		},
	}, nil
}
