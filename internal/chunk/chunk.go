// Package chunk splits page-tagged text into overlapping, page-addressable
// chunks for embedding.
package chunk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/paperchat/internal/reference"
)

// Default window parameters, in characters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

var pageMarker = regexp.MustCompile(`\[Page (\d+)\]\n`)

// Chunk is a window of a single page's text. StartChar and EndChar are
// character offsets into the trimmed page text.
type Chunk struct {
	PageNumber int    `json:"page_number"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"text"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// Page is one page recovered from page-tagged text.
type Page struct {
	Number int
	Text   string
}

// Chunker slides a fixed-size window with fixed overlap across each page.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. The overlap must be smaller than the window size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a Chunker with a 1000 character window and 200 character overlap.
func Default() *Chunker {
	return &Chunker{size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the window size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive windows on a page.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into chunks. Index runs across the whole document. Text
// with no page markers or only blank pages yields no chunks. A page stops at
// the first window that reaches its end, so a page no longer than the window
// is a single chunk with no trailing overlap-only window.
func (c *Chunker) Chunk(text string) []Chunk {
	var chunks []Chunk
	index := 0
	step := c.size - c.overlap

	for _, page := range ParsePages(text) {
		runes := []rune(page.Text)
		for start := 0; start < len(runes); start += step {
			end := min(start+c.size, len(runes))
			chunks = append(chunks, Chunk{
				PageNumber: page.Number,
				Index:      index,
				Text:       string(runes[start:end]),
				StartChar:  start,
				EndChar:    end,
			})
			index++
			if end == len(runes) {
				break
			}
		}
	}
	return chunks
}

// ParsePages recovers (page number, text) pairs in the order they appear.
// Pages whose text is blank after trimming are skipped. Text before the first
// marker is ignored.
func ParsePages(text string) []Page {
	locs := pageMarker.FindAllStringSubmatchIndex(text, -1)
	var pages []Page
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])
		if body == "" {
			continue
		}
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n <= 0 {
			continue
		}
		pages = append(pages, Page{Number: n, Text: body})
	}
	return pages
}

// FormatForEmbedding renders the text sent to the embedding model for a chunk.
func FormatForEmbedding(c Chunk, paper reference.Paper) string {
	return fmt.Sprintf("Paper: %s\nAuthors: %s\nPage: %d\nContent: %s",
		paper.Title, reference.AuthorNames(paper.Authors, ""), c.PageNumber, c.Text)
}
