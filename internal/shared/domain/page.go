package domain

import "strings"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// SortOrder is the direction of a list sort.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder accepts asc/desc in any case; anything else sorts descending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(s, "asc") {
		return SortAsc
	}
	return SortDesc
}

// Page selects a window of a list by offset.
type Page struct {
	Start int
	Limit int
}

// Normalized clamps Start to zero and Limit to (0, MaxPageLimit].
func (p Page) Normalized() Page {
	if p.Start < 0 {
		p.Start = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Next returns the page that follows p.
func (p Page) Next() Page {
	return Page{Start: p.Start + p.Limit, Limit: p.Limit}
}
