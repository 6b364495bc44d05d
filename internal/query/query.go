// Package query builds typed list filters for gorm queries. Columns are
// checked against a whitelist before any SQL is produced.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Predicate is one supported filter: Eq, Contains, In, Since or Until.
type Predicate interface {
	column() string
	apply(db *gorm.DB) *gorm.DB
}

type Eq struct {
	Column string
	Value  any
}

func (p Eq) column() string { return p.Column }
func (p Eq) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.Column+" = ?", p.Value)
}

// Contains is a case-insensitive substring match.
type Contains struct {
	Column string
	Value  string
}

func (p Contains) column() string { return p.Column }
func (p Contains) apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER("+p.Column+") LIKE ?", "%"+strings.ToLower(p.Value)+"%")
}

type In struct {
	Column string
	Values []uint
}

func (p In) column() string { return p.Column }
func (p In) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.Column+" IN ?", p.Values)
}

type Since struct {
	Column string
	Time   time.Time
}

func (p Since) column() string { return p.Column }
func (p Since) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.Column+" >= ?", p.Time)
}

type Until struct {
	Column string
	Time   time.Time
}

func (p Until) column() string { return p.Column }
func (p Until) apply(db *gorm.DB) *gorm.DB {
	return db.Where(p.Column+" <= ?", p.Time)
}

type Criteria struct {
	allowed map[string]struct{}
	preds   []Predicate
	Page    Page
}

// New returns empty criteria accepting predicates on the given columns only.
func New(columns ...string) *Criteria {
	allowed := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return &Criteria{allowed: allowed}
}

func (c *Criteria) Where(p Predicate) error {
	if _, ok := c.allowed[p.column()]; !ok {
		return fmt.Errorf("filter on %q is not supported", p.column())
	}
	c.preds = append(c.preds, p)
	return nil
}

func (c *Criteria) Len() int { return len(c.preds) }

// Apply adds the predicates (not the page) to db.
func (c *Criteria) Apply(db *gorm.DB) *gorm.DB {
	for _, p := range c.preds {
		db = p.apply(db)
	}
	return db
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page is 1-based. The zero value means "no paging".
type Page struct {
	Number int
	Size   int
}

func (p Page) Apply(db *gorm.DB) *gorm.DB {
	if p.Number <= 0 {
		return db
	}
	return db.Offset((p.Number - 1) * p.Size).Limit(p.Size)
}

// ParsePage reads ?page=&page_size=. An empty page disables paging.
func ParsePage(pageStr, sizeStr string) (Page, error) {
	if pageStr == "" {
		return Page{}, nil
	}
	n, err := strconv.Atoi(pageStr)
	if err != nil || n < 1 {
		return Page{}, fmt.Errorf("invalid page %q", pageStr)
	}
	size := DefaultPageSize
	if sizeStr != "" {
		size, err = strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			return Page{}, fmt.Errorf("invalid page_size %q", sizeStr)
		}
		if size > MaxPageSize {
			size = MaxPageSize
		}
	}
	return Page{Number: n, Size: size}, nil
}

// ParseID parses a positive id; empty input returns nil.
func ParseID(s string) (*uint, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("invalid id %q", s)
	}
	id := uint(v)
	return &id, nil
}
