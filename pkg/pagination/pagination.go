package pagination

import (
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page based pagination inputs from controllers or services.
// Pages are 1-indexed.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps page and limit into their valid ranges.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset returns the row offset of the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages returns how many pages of limit rows hold total rows.
func TotalPages(total int64, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Sort is an ordering over a whitelisted column.
type Sort struct {
	Column string
	Desc   bool
}

// Clause renders the ORDER BY fragment.
func (s Sort) Clause() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// ParseSort reads "field:dir" where field is a key of columns and dir is asc
// or desc. An empty value returns fallback.
func ParseSort(value string, columns map[string]string, fallback Sort) (Sort, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	field, dir, _ := strings.Cut(value, ":")
	column, ok := columns[strings.TrimSpace(field)]
	if !ok {
		return Sort{}, fmt.Errorf("unsupported sort field %q", field)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return Sort{Column: column}, nil
	case "desc":
		return Sort{Column: column, Desc: true}, nil
	default:
		return Sort{}, fmt.Errorf("unsupported sort direction %q", dir)
	}
}
