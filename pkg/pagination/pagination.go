package pagination

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	// MaxPage bounds page so the computed offset cannot overflow.
	MaxPage = 1_000_000
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest extracts 1-based page and per_page from the query string.
// Invalid or out-of-range values fall back to defaults; pages beyond MaxPage
// are clamped to it.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = min(v, MaxPage)
		}
	}

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// TotalPages returns ceil(total / perPage).
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage > 0 {
		pages++
	}
	return pages
}

// WriteHeaders sets X-Total-Count, X-Total-Pages and a Link header with
// rel="prev"/rel="next" entries. Nothing is written for an empty collection.
// Links are built from r's URL with every original query parameter kept and
// page replaced.
func WriteHeaders(w http.ResponseWriter, r *http.Request, total int, p Params) {
	if total == 0 {
		return
	}

	maxPages := TotalPages(total, p.PerPage)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Total-Pages", strconv.Itoa(maxPages))

	var links []string
	if p.Page > 1 {
		prev := p.Page - 1
		if prev > maxPages {
			prev = maxPages
		}
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(r, prev)))
	}
	if maxPages > p.Page {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(r, p.Page+1)))
	}
	if len(links) > 0 {
		w.Header().Set("Link", strings.Join(links, ", "))
	}
}

func pageURL(r *http.Request, page int) string {
	u := url.URL{Path: r.URL.Path}
	if r.Host != "" {
		u.Host = r.Host
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
