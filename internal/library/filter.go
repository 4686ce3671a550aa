package library

import (
	"strings"

	"github.com/matsen/paperchat/internal/reference"
)

// Filter selects papers by tag, author and year. The zero Filter matches
// every paper; set criteria are combined with AND.
type Filter struct {
	Tag     string
	Authors []string // "Last", "First Last" or "Last, First"
	Since   int      // Earliest year, 0 for none
}

// Apply returns the papers matching f, preserving order.
func (f Filter) Apply(papers []reference.Paper) []reference.Paper {
	queries := make([]reference.Author, 0, len(f.Authors))
	for _, a := range f.Authors {
		if q := reference.ParseAuthor(a); q.Last != "" {
			queries = append(queries, q)
		}
	}

	var out []reference.Paper
	for _, p := range papers {
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		if f.Since > 0 && p.Year < f.Since {
			continue
		}
		if !allAuthorsMatch(queries, p.Authors) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// allAuthorsMatch reports whether every query matches at least one author.
func allAuthorsMatch(queries, authors []reference.Author) bool {
	for _, q := range queries {
		found := false
		for _, a := range authors {
			if authorMatches(q, a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// authorMatches compares last names exactly and first names by prefix,
// ignoring case. "Tim Yu" matches "Timothy C Yu"; "Yu" does not match "Yujia".
func authorMatches(q, a reference.Author) bool {
	if !strings.EqualFold(q.Last, a.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(a.First), strings.ToLower(q.First))
}
