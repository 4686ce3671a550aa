// Package arxiv resolves arXiv identifiers and scrapes abstract pages for paper metadata.
package arxiv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// BaseURL is the arXiv site root.
	BaseURL = "https://arxiv.org"
)

var (
	// pathPattern matches /abs/<id> or /pdf/<id> with optional version and .pdf suffix.
	pathPattern = regexp.MustCompile(`/(?:abs|pdf)/(.+?)(?:v\d+)?(?:\.pdf)?/?$`)

	// newStylePattern matches YYMM.NNNN(N) identifiers (2007 onward).
	newStylePattern = regexp.MustCompile(`^(\d{2})(\d{2})\.\d{4,5}$`)

	// oldStylePattern matches archive/YYMMNNN identifiers (before 2007).
	oldStylePattern = regexp.MustCompile(`^[a-z\-]+(?:\.[A-Z]{2})?/(\d{2})\d{5}$`)

	versionSuffix = regexp.MustCompile(`v\d+$`)
)

// ParseID extracts a bare arXiv identifier from an id, "arXiv:" prefixed id,
// or an abs/pdf URL. Version suffixes are stripped.
func ParseID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty arXiv identifier")
	}

	if len(s) > 6 && strings.EqualFold(s[:6], "arxiv:") {
		s = s[6:]
	}

	if strings.Contains(s, "://") || strings.HasPrefix(s, "arxiv.org") {
		m := pathPattern.FindStringSubmatch(stripQuery(s))
		if m == nil {
			return "", fmt.Errorf("not an arXiv abs or pdf URL: %s", s)
		}
		s = m[1]
	}

	s = versionSuffix.ReplaceAllString(s, "")
	if !newStylePattern.MatchString(s) && !oldStylePattern.MatchString(s) {
		return "", fmt.Errorf("invalid arXiv identifier: %s", s)
	}
	return s, nil
}

// AbsURL returns the abstract page URL for an identifier.
func AbsURL(id string) string {
	return BaseURL + "/abs/" + id
}

// PDFURL returns the PDF URL for an identifier.
func PDFURL(id string) string {
	return BaseURL + "/pdf/" + id + ".pdf"
}

// YearFromID derives the submission year encoded in an identifier.
// Returns 0 when the identifier carries no year.
func YearFromID(id string) int {
	var yy string
	if m := newStylePattern.FindStringSubmatch(id); m != nil {
		yy = m[1]
	} else if m := oldStylePattern.FindStringSubmatch(id); m != nil {
		yy = m[1]
	} else {
		return 0
	}

	n, err := strconv.Atoi(yy)
	if err != nil {
		return 0
	}
	// arXiv started in 1991; two-digit years below that belong to the 2000s.
	if n >= 91 {
		return 1900 + n
	}
	return 2000 + n
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i != -1 {
		return s[:i]
	}
	return s
}
