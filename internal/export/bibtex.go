// Package export renders saved papers as BibTeX.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/reference"
)

// ToBibTeX converts a paper to an arXiv-style @misc entry.
func ToBibTeX(p reference.Paper) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@misc{%s,\n", CitationKey(p)))

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}

	if year := paperYear(p); year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", year))
	}

	b.WriteString(fmt.Sprintf("  eprint = {%s},\n", p.ID))
	b.WriteString("  archivePrefix = {arXiv},\n")

	url := p.URL
	if url == "" {
		url = arxiv.AbsURL(p.ID)
	}
	b.WriteString(fmt.Sprintf("  url = {%s},\n", url))

	// Abstract (optional, if present)
	if p.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(p.Abstract)))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple papers to BibTeX format.
func ToBibTeXList(papers []reference.Paper) string {
	var entries []string
	for _, p := range papers {
		entries = append(entries, ToBibTeX(p))
	}
	return strings.Join(entries, "\n")
}

// CitationKey builds a key from the first author's last name, the year and
// the first significant title word, e.g. "lovelace2024graph". Papers without
// authors get "arxiv" plus the id.
func CitationKey(p reference.Paper) string {
	if len(p.Authors) == 0 || keyPart(p.Authors[0].Last) == "" {
		return "arxiv" + keyPart(p.ID)
	}
	key := keyPart(p.Authors[0].Last)
	if year := paperYear(p); year > 0 {
		key += fmt.Sprint(year)
	}
	return key + firstTitleWord(p.Title)
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true, "for": true,
	"in": true, "to": true, "and": true, "with": true, "towards": true,
}

func firstTitleWord(title string) string {
	for _, w := range strings.Fields(title) {
		w = keyPart(w)
		if w != "" && !stopWords[w] {
			return w
		}
	}
	return ""
}

// keyPart lowercases s and keeps only ASCII letters and digits.
func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func paperYear(p reference.Paper) int {
	if p.Year > 0 {
		return p.Year
	}
	return arxiv.YearFromID(p.ID)
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []reference.Author) string {
	var formatted []string
	for _, a := range authors {
		if a.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		} else {
			formatted = append(formatted, a.Last)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
