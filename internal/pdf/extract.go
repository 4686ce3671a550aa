// Package pdf turns PDF sources into page-tagged plain text.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/matsen/paperchat/internal/logging"
	"github.com/phuslu/log"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// Options controls a single extraction.
type Options struct {
	// MaxPages caps the number of pages processed; 0 means all pages.
	MaxPages int
}

// PageResult is the outcome of extracting one page.
type PageResult struct {
	Number int
	Text   string
	Err    error
}

// Extractor fetches PDFs and renders them as page-tagged text of the form
// "\n[Page N]\n<text>" per page.
type Extractor struct {
	fetcher *Fetcher
	parser  Parser
	logger  *log.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithFetcher sets the source fetcher.
func WithFetcher(f *Fetcher) ExtractorOption {
	return func(e *Extractor) {
		e.fetcher = f
	}
}

// WithParser sets the PDF parser.
func WithParser(p Parser) ExtractorOption {
	return func(e *Extractor) {
		e.parser = p
	}
}

// WithLogger sets the logger used for per-page failures and progress.
func WithLogger(l *log.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor creates an Extractor backed by ledongthuc/pdf.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		fetcher: NewFetcher(nil, ""),
		parser:  LedongthucParser{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDiscard(e.logger)
	return e
}

// Extract fetches source and returns its page-tagged text.
func (e *Extractor) Extract(ctx context.Context, source string, opts Options) (string, error) {
	data, err := e.fetcher.Fetch(ctx, source)
	if err != nil {
		return "", err
	}
	e.logger.Debug().Str("source", source).Int("bytes", len(data)).Msg("PDF fetched")

	return e.ExtractBytes(ctx, source, data, opts)
}

// ExtractBytes renders already-loaded PDF bytes. source is used for error
// context only.
func (e *Extractor) ExtractBytes(ctx context.Context, source string, data []byte, opts Options) (string, error) {
	if e.parser == nil {
		return "", NewError(ReasonWorkerInitFailed, source, fmt.Errorf("no PDF parser configured"))
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", NewError(ReasonInvalidPDF, source, fmt.Errorf("missing %%PDF- header"))
	}

	doc, err := e.parser.Open(data)
	if err != nil {
		return "", NewError(ReasonInvalidPDF, source, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	limit := total
	if opts.MaxPages > 0 && opts.MaxPages < total {
		limit = opts.MaxPages
	}
	e.logger.Debug().Int("pages", limit).Int("total_pages", total).Msg("extracting PDF pages")

	var b strings.Builder
	extracted := 0
	for res := range Pages(doc, limit) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if res.Err != nil {
			e.logger.Warn().Str("source", source).Int("page", res.Number).Err(res.Err).Msg("skipping page")
			continue
		}
		fmt.Fprintf(&b, "\n[Page %d]\n%s", res.Number, res.Text)
		if res.Text != "" {
			extracted++
		}
		if res.Number%10 == 0 {
			e.logger.Debug().Int("page", res.Number).Int("pages", limit).Msg("extraction progress")
		}
	}

	if extracted == 0 {
		return "", NewError(ReasonNoText, source, nil)
	}

	if limit < total {
		fmt.Fprintf(&b, "\n\n%s", TruncationNote(limit, total))
	}
	return b.String(), nil
}

// Pages yields the results for pages 1..limit in ascending order. A failing
// page yields a result with Err set and iteration continues.
func Pages(doc Document, limit int) iter.Seq[PageResult] {
	return func(yield func(PageResult) bool) {
		for n := 1; n <= limit; n++ {
			text, err := doc.PageText(n)
			res := PageResult{Number: n, Err: err}
			if err == nil {
				res.Text = NormalizeText(text)
			}
			if !yield(res) {
				return
			}
		}
	}
}

// NormalizeText joins the whitespace-separated fragments of a page with single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// TruncationNote is appended when fewer than all pages were processed.
func TruncationNote(processed, total int) string {
	return fmt.Sprintf("[Note: Only first %d pages extracted for faster processing. Full PDF has %d pages.]", processed, total)
}
