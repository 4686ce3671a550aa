// Package library keeps the saved-paper collection and its tags.
package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matsen/paperchat/internal/reference"
	"github.com/matsen/paperchat/internal/storage"
)

// ErrPaperNotFound is returned when a paper id is not in the library.
var ErrPaperNotFound = errors.New("paper not found")

// errNoChange aborts an Update without writing.
var errNoChange = errors.New("no change")

// TagResult reports the outcome of a tag operation.
type TagResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Library stores papers in the papers namespace of a storage.DB.
type Library struct {
	db  *storage.DB
	now func() time.Time
}

// New creates a Library backed by db.
func New(db *storage.DB) *Library {
	return &Library{db: db, now: time.Now}
}

// Save inserts p or merges it into the stored record. Non-empty fields of p
// win; SavedAt is kept from the first save; tags are kept unless p.Tags is
// non-nil.
func (l *Library) Save(ctx context.Context, p reference.Paper) (reference.Paper, error) {
	if strings.TrimSpace(p.ID) == "" {
		return reference.Paper{}, fmt.Errorf("paper has no id")
	}

	var saved reference.Paper
	err := storage.UpdateAs(ctx, l.db, storage.NamespacePapers, p.ID, func(existing reference.Paper, exists bool) (reference.Paper, error) {
		if !exists {
			existing = reference.Paper{ID: p.ID}
		}
		saved = merge(existing, p, l.now())
		return saved, nil
	})
	if err != nil {
		return reference.Paper{}, fmt.Errorf("saving paper %s: %w", p.ID, err)
	}
	return saved, nil
}

func merge(existing, p reference.Paper, now time.Time) reference.Paper {
	out := existing
	if p.Title != "" {
		out.Title = p.Title
	}
	if len(p.Authors) > 0 {
		out.Authors = p.Authors
	}
	if p.Abstract != "" {
		out.Abstract = p.Abstract
	}
	if p.Year != 0 {
		out.Year = p.Year
	}
	if p.URL != "" {
		out.URL = p.URL
	}
	if p.PDFURL != "" {
		out.PDFURL = p.PDFURL
	}
	if p.Tags != nil {
		out.Tags = dedupe(p.Tags)
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.SavedAt.IsZero() {
		out.SavedAt = p.SavedAt
	}
	if out.SavedAt.IsZero() {
		out.SavedAt = now.UTC()
	}
	return out
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Get returns the paper with the given id.
func (l *Library) Get(ctx context.Context, id string) (reference.Paper, error) {
	p, err := storage.GetAs[reference.Paper](ctx, l.db, storage.NamespacePapers, id)
	if storage.IsNotFound(err) {
		return reference.Paper{}, fmt.Errorf("%w: %s", ErrPaperNotFound, id)
	}
	return p, err
}

// List returns every saved paper ordered by id.
func (l *Library) List(ctx context.Context) ([]reference.Paper, error) {
	all, err := storage.AllAs[reference.Paper](ctx, l.db, storage.NamespacePapers)
	if err != nil {
		return nil, err
	}
	papers := make([]reference.Paper, 0, len(all))
	for _, p := range all {
		papers = append(papers, p)
	}
	sort.Slice(papers, func(i, j int) bool {
		return papers[i].ID < papers[j].ID
	})
	return papers, nil
}

// AddTag adds tag to a saved paper. Adding an existing tag or tagging an
// unknown paper is reported in the result, not as an error.
func (l *Library) AddTag(ctx context.Context, id, tag string) (TagResult, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return TagResult{Message: "Tag is empty"}, nil
	}

	result := TagResult{Success: true, Message: "Tag added successfully"}
	err := storage.UpdateAs(ctx, l.db, storage.NamespacePapers, id, func(p reference.Paper, exists bool) (reference.Paper, error) {
		if !exists {
			result = TagResult{Message: "Paper not found"}
			return p, errNoChange
		}
		if p.HasTag(tag) {
			result = TagResult{Message: "Tag already exists"}
			return p, errNoChange
		}
		p.Tags = append(p.Tags, tag)
		return p, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return TagResult{}, fmt.Errorf("tagging %s: %w", id, err)
	}
	return result, nil
}

// RemoveTag removes tag from a saved paper.
func (l *Library) RemoveTag(ctx context.Context, id, tag string) (TagResult, error) {
	result := TagResult{Success: true, Message: "Tag removed successfully"}
	err := storage.UpdateAs(ctx, l.db, storage.NamespacePapers, id, func(p reference.Paper, exists bool) (reference.Paper, error) {
		if !exists || len(p.Tags) == 0 {
			result = TagResult{Message: "Paper not found or has no tags"}
			return p, errNoChange
		}
		kept := p.Tags[:0:0]
		for _, t := range p.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(p.Tags) {
			result = TagResult{Message: "Tag not found"}
			return p, errNoChange
		}
		p.Tags = kept
		return p, nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return TagResult{}, fmt.Errorf("untagging %s: %w", id, err)
	}
	return result, nil
}

// TagCounts returns the number of papers carrying each tag.
func (l *Library) TagCounts(ctx context.Context) (map[string]int, error) {
	papers, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range papers {
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	return counts, nil
}

// Import saves each paper, merging with existing records, and returns the
// number imported.
func (l *Library) Import(ctx context.Context, papers []reference.Paper) (int, error) {
	n := 0
	for _, p := range papers {
		if _, err := l.Save(ctx, p); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
