// Package reference defines the core domain types for saved papers.
package reference

import (
	"strings"
	"time"
)

// Paper represents a scholarly document the assistant can answer questions about.
// Full text is derived on demand and never stored on the Paper itself.
type Paper struct {
	// Identity
	ID string `json:"arxiv_id"` // Stable external identifier (arXiv id)

	// Metadata
	Title    string   `json:"title"`
	Authors  []Author `json:"authors"`
	Abstract string   `json:"abstract"`
	Year     int      `json:"year,omitempty"`

	// Locations
	URL    string `json:"url,omitempty"`     // Abstract page
	PDFURL string `json:"pdf_url,omitempty"` // PDF source (URL or local path)

	// Bookkeeping
	Tags    []string  `json:"tags"`
	SavedAt time.Time `json:"saved_at"`
}

// Author represents a paper author.
type Author struct {
	First string `json:"first"` // First/given name(s)
	Last  string `json:"last"`  // Last/family name
}

// ParseAuthor splits a display name such as "Jane Q. Doe" into an Author.
// A "Last, First" form is also accepted. Single-word names become Last.
func ParseAuthor(name string) Author {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Author{}
	}

	if last, first, ok := strings.Cut(name, ","); ok {
		return Author{First: strings.TrimSpace(first), Last: strings.TrimSpace(last)}
	}

	idx := strings.LastIndex(name, " ")
	if idx == -1 {
		return Author{Last: name}
	}
	return Author{First: name[:idx], Last: name[idx+1:]}
}

// ParseAuthors parses a list of display names, dropping empty entries.
func ParseAuthors(names []string) []Author {
	authors := make([]Author, 0, len(names))
	for _, n := range names {
		a := ParseAuthor(n)
		if a.Last == "" {
			continue
		}
		authors = append(authors, a)
	}
	return authors
}

// FullName returns the author's name in "First Last" order.
func (a Author) FullName() string {
	if a.First == "" {
		return a.Last
	}
	return a.First + " " + a.Last
}

// AuthorNames joins the authors' full names with ", ".
// Returns fallback when there are no authors.
func AuthorNames(authors []Author, fallback string) string {
	if len(authors) == 0 {
		return fallback
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.FullName()
	}
	return strings.Join(names, ", ")
}

// HasTag reports whether the paper carries the given tag.
func (p Paper) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
