// Package importer reads papers saved by other tools into the library.
package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/reference"
)

// PapersKey is the storage key under which the browser extension keeps papers.
const PapersKey = "arxiv_papers"

// FlexibleTime can unmarshal from an RFC 3339 string or a Unix millisecond
// number.
type FlexibleTime struct {
	time.Time
}

func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			f.Time = time.Time{}
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		f.Time = t.UTC()
		return nil
	}

	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		f.Time = time.UnixMilli(ms).UTC()
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleTime", string(data))
}

// ExtensionPaper is one paper from a browser-extension storage export.
type ExtensionPaper struct {
	ArxivID  string       `json:"arxivId"`
	Title    string       `json:"title"`
	Authors  []string     `json:"authors"`
	Abstract string       `json:"abstract"`
	PDFURL   string       `json:"pdfUrl"`
	URL      string       `json:"url"`
	SavedAt  FlexibleTime `json:"savedAt"`
	Tags     []string     `json:"tags"`
}

// ParseExtensionExport parses a browser-extension storage export. The input is
// either the whole storage object, with papers under PapersKey, or the papers
// map on its own. Papers are returned in id order; entries that cannot be
// converted are reported in the error slice and skipped.
func ParseExtensionExport(data []byte) ([]reference.Paper, []error) {
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, []error{err}
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var papers []reference.Paper
	var errs []error
	for _, k := range keys {
		p, err := extensionPaperToPaper(k, entries[k])
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", k, err))
			continue
		}
		papers = append(papers, p)
	}
	return papers, errs
}

func decodeEntries(data []byte) (map[string]ExtensionPaper, error) {
	var storage map[string]json.RawMessage
	if err := json.Unmarshal(data, &storage); err != nil {
		return nil, fmt.Errorf("parsing extension export: %w", err)
	}
	raw, ok := storage[PapersKey]
	if !ok {
		raw = data
	}
	var entries map[string]ExtensionPaper
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", PapersKey, err)
	}
	return entries, nil
}

// extensionPaperToPaper converts an export entry, keyed by its arXiv id, to a Paper.
func extensionPaperToPaper(key string, e ExtensionPaper) (reference.Paper, error) {
	rawID := e.ArxivID
	if rawID == "" {
		rawID = key
	}
	id, err := arxiv.ParseID(rawID)
	if err != nil {
		return reference.Paper{}, err
	}
	if strings.TrimSpace(e.Title) == "" {
		return reference.Paper{}, fmt.Errorf("missing required field 'title'")
	}

	p := reference.Paper{
		ID:       id,
		Title:    strings.TrimSpace(e.Title),
		Authors:  reference.ParseAuthors(e.Authors),
		Abstract: strings.TrimSpace(e.Abstract),
		Year:     arxiv.YearFromID(id),
		URL:      e.URL,
		PDFURL:   e.PDFURL,
		Tags:     e.Tags,
		SavedAt:  e.SavedAt.Time,
	}
	if p.URL == "" {
		p.URL = arxiv.AbsURL(id)
	}
	if p.PDFURL == "" {
		p.PDFURL = arxiv.PDFURL(id)
	}
	return p, nil
}
