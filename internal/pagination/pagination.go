package pagination

import (
	"net/http"
	"strconv"
)

// Default pagination values
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Response headers carrying page metadata. List bodies stay plain JSON arrays.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderTotalPages = "X-Total-Pages"
	HeaderPage       = "X-Page"
	HeaderPerPage    = "X-Per-Page"
)

// Params represents pagination query parameters
type Params struct {
	Page  int // 1-based
	Limit int
}

// Meta describes one page of a larger result.
type Meta struct {
	CurrentPage  int
	PerPage      int
	TotalPages   int
	TotalRecords int
}

// FromRequest reads page and limit from the query string. The second result is
// false when the client asked for neither, meaning the full list is wanted.
func FromRequest(r *http.Request) (Params, bool) {
	q := r.URL.Query()
	if !q.Has("page") && !q.Has("limit") {
		return Params{}, false
	}

	p := Params{Page: DefaultPage, Limit: DefaultLimit}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = n
	}
	p.Validate()
	return p, true
}

// Validate ensures pagination parameters are valid and sets defaults if needed
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset returns the SQL OFFSET for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta builds the page metadata for a result of totalRecords rows.
func (p Params) Meta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit // Ceiling division
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
	}
}

// WriteHeaders sets the pagination response headers. Call before WriteHeader.
func (m Meta) WriteHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set(HeaderTotalCount, strconv.Itoa(m.TotalRecords))
	h.Set(HeaderTotalPages, strconv.Itoa(m.TotalPages))
	h.Set(HeaderPage, strconv.Itoa(m.CurrentPage))
	h.Set(HeaderPerPage, strconv.Itoa(m.PerPage))
}
