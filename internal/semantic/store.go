// Package semantic holds embedding vectors in memory and ranks them by
// cosine similarity.
package semantic

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNegativeLimit is returned when a query limit is negative.
var ErrNegativeLimit = errors.New("limit must be non-negative")

// Metadata is free-form string metadata stored with a document vector.
type Metadata map[string]string

// ChunkEntry is one indexed chunk of a paper.
type ChunkEntry struct {
	PaperID    string    `json:"paper_id"`
	ChunkIndex int       `json:"chunk_index"`
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}

// ID returns the composite chunk id.
func (e ChunkEntry) ID() string {
	return ChunkID(e.PaperID, e.ChunkIndex)
}

// ChunkID returns the id of chunk index of paperID.
func ChunkID(paperID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", paperID, index)
}

// Result is a document found by Query.
type Result struct {
	ID         string   `json:"id"`
	Similarity float32  `json:"similarity"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// ChunkResult is a chunk found by QueryChunks. Vector is omitted.
type ChunkResult struct {
	ID         string  `json:"id"`
	PaperID    string  `json:"paper_id"`
	ChunkIndex int     `json:"chunk_index"`
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

type docEntry struct {
	vector []float32
	meta   Metadata
}

// collection is an insertion-ordered map. Replacing a key keeps its position.
type collection[T any] struct {
	index map[string]int
	keys  []string
	items []T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{index: make(map[string]int)}
}

func (c *collection[T]) put(key string, v T) {
	if i, ok := c.index[key]; ok {
		c.items[i] = v
		return
	}
	c.index[key] = len(c.items)
	c.keys = append(c.keys, key)
	c.items = append(c.items, v)
}

func (c *collection[T]) get(key string) (T, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// removeIf deletes matching items and returns the number removed.
func (c *collection[T]) removeIf(match func(T) bool) int {
	keys, items := c.keys[:0], c.items[:0]
	removed := 0
	for i, item := range c.items {
		if match(item) {
			delete(c.index, c.keys[i])
			removed++
			continue
		}
		c.index[c.keys[i]] = len(items)
		keys = append(keys, c.keys[i])
		items = append(items, item)
	}
	clear(c.keys[len(keys):])
	clear(c.items[len(items):])
	c.keys, c.items = keys, items
	return removed
}

// Store holds whole-paper vectors and per-paper chunk vectors. It is safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   *collection[docEntry]
	chunks *collection[ChunkEntry]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		docs:   newCollection[docEntry](),
		chunks: newCollection[ChunkEntry](),
	}
}

// Put inserts or replaces a whole-paper vector.
func (s *Store) Put(id string, vector []float32, meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.put(id, docEntry{vector: vector, meta: meta})
}

// PutChunk inserts or replaces a chunk vector under its composite id.
func (s *Store) PutChunk(entry ChunkEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks.put(entry.ID(), entry)
}

// HasPaper reports whether a whole-paper vector exists for id.
func (s *Store) HasPaper(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs.get(id)
	return ok
}

// Len returns the number of whole-paper vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs.items)
}

// ChunkCount returns the number of chunks held for paperID.
func (s *Store) ChunkCount(paperID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.chunks.items {
		if e.PaperID == paperID {
			n++
		}
	}
	return n
}

// RemovePaperChunks drops every chunk of paperID and returns how many were removed.
func (s *Store) RemovePaperChunks(paperID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks.removeIf(func(e ChunkEntry) bool {
		return e.PaperID == paperID
	})
}

// Query ranks whole-paper vectors against query. A zero limit returns all.
func (s *Store) Query(query []float32, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, ErrNegativeLimit
	}

	s.mu.RLock()
	results := make([]Result, len(s.docs.items))
	for i, d := range s.docs.items {
		results[i] = Result{
			ID:         s.docs.keys[i],
			Similarity: CosineSimilarity(query, d.vector),
			Metadata:   d.meta,
		}
	}
	s.mu.RUnlock()

	return rank(results, func(r Result) float32 { return r.Similarity }, limit), nil
}

// QueryChunks ranks the chunks of paperID against query. A zero limit returns all.
func (s *Store) QueryChunks(query []float32, paperID string, limit int) ([]ChunkResult, error) {
	if limit < 0 {
		return nil, ErrNegativeLimit
	}

	s.mu.RLock()
	var results []ChunkResult
	for _, e := range s.chunks.items {
		if e.PaperID != paperID {
			continue
		}
		results = append(results, ChunkResult{
			ID:         e.ID(),
			PaperID:    e.PaperID,
			ChunkIndex: e.ChunkIndex,
			PageNumber: e.PageNumber,
			Text:       e.Text,
			Similarity: CosineSimilarity(query, e.Vector),
		})
	}
	s.mu.RUnlock()

	return rank(results, func(r ChunkResult) float32 { return r.Similarity }, limit), nil
}

// Rehydrate loads vectors read back from durable storage. Documents are
// inserted in id order and chunks in (paper, chunk index) order so that
// tie-breaking does not depend on map iteration.
func (s *Store) Rehydrate(docs map[string][]float32, chunks []ChunkEntry) {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sorted := append([]ChunkEntry(nil), chunks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PaperID != sorted[j].PaperID {
			return sorted[i].PaperID < sorted[j].PaperID
		}
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.docs.put(id, docEntry{vector: docs[id]})
	}
	for _, e := range sorted {
		s.chunks.put(e.ID(), e)
	}
}
