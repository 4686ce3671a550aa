// Package content reconciles PDF full text with the HTML abstract of a paper
// and records where the winning text came from.
package content

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matsen/paperchat/internal/logging"
	"github.com/matsen/paperchat/internal/pdf"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/phuslu/log"
)

// DefaultFastModePages is the page budget used in fast mode.
const DefaultFastModePages = 10

// Notes inserted into reconciled text when the PDF could not be used alone.
const (
	LimitedNote = "\n\n[Note: Full PDF extraction was limited. Using abstract from HTML.]\n\n"
	FailedNote  = "\n\n[Note: PDF extraction failed. Using abstract and metadata from HTML page.]"
)

// Source labels the provenance of extracted text.
type Source string

const (
	SourcePDF      Source = "pdf"
	SourceHTML     Source = "html"
	SourceCombined Source = "combined"
)

// Extracted is the reconciled text of one paper.
// HasFullPDF implies Source == SourcePDF and that no pages were truncated.
type Extracted struct {
	FullText   string `json:"full_text"`
	Source     Source `json:"source"`
	HasFullPDF bool   `json:"has_full_pdf"`
}

// Record marks a paper whose text has been extracted, chunked and embedded.
// Its presence is what prevents re-extraction.
type Record struct {
	ChunkCount  int       `json:"chunk_count"`
	ExtractedAt time.Time `json:"extracted_at"`
	Source      Source    `json:"source"`
	HasFullPDF  bool      `json:"has_full_pdf"`
}

// TextExtractor produces page-tagged text from a PDF source.
type TextExtractor interface {
	Extract(ctx context.Context, source string, opts pdf.Options) (string, error)
}

// Options controls a single reconciliation.
type Options struct {
	// FastMode caps PDF extraction at the reconciler's page budget.
	FastMode bool
}

// Reconciler decides between PDF text and the HTML abstract.
type Reconciler struct {
	extractor     TextExtractor
	fastModePages int
	logger        *log.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithFastModePages overrides the fast-mode page budget.
func WithFastModePages(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.fastModePages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// NewReconciler creates a Reconciler over the given extractor.
func NewReconciler(extractor TextExtractor, opts ...Option) *Reconciler {
	r := &Reconciler{
		extractor:     extractor,
		fastModePages: DefaultFastModePages,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger)
	return r
}

// Reconcile extracts pdfURL and reconciles the result with the paper's
// HTML-derived abstract. It fails with pdf.ReasonNoContentAvailable only when
// neither source yields content.
func (r *Reconciler) Reconcile(ctx context.Context, pdfURL string, paper reference.Paper, opts Options) (Extracted, error) {
	var extractOpts pdf.Options
	if opts.FastMode {
		extractOpts.MaxPages = r.fastModePages
	}

	pdfText, pdfErr := r.extractor.Extract(ctx, pdfURL, extractOpts)
	if pdfErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Extracted{}, ctxErr
		}
		r.logger.Warn().Str("paper", paper.ID).Str("pdf", pdfURL).Err(pdfErr).Msg("PDF extraction failed")
	}

	result, err := Decide(pdfText, pdfErr, HTMLContent(paper), opts.FastMode)
	if err != nil {
		return Extracted{}, pdf.NewError(pdf.ReasonNoContentAvailable, pdfURL, pdfErr)
	}
	return result, nil
}

// errNoContent is returned by Decide when there is nothing to use.
var errNoContent = pdf.NewError(pdf.ReasonNoContentAvailable, "", nil)

// Decide applies the reconciliation policy. Content length is compared in
// characters; PDF text wins only when strictly longer than the HTML content.
func Decide(pdfText string, pdfErr error, htmlContent string, fastMode bool) (Extracted, error) {
	pdfOnly := Extracted{
		FullText:   pdfText,
		Source:     SourcePDF,
		HasFullPDF: !fastMode,
	}
	if fastMode {
		pdfOnly.Source = SourceCombined
	}

	switch {
	case pdfErr == nil && htmlContent == "":
		return pdfOnly, nil
	case pdfErr == nil && utf8.RuneCountInString(pdfText) > utf8.RuneCountInString(htmlContent):
		return pdfOnly, nil
	case pdfErr == nil:
		return Extracted{
			FullText: htmlContent + LimitedNote + pdfText,
			Source:   SourceCombined,
		}, nil
	case htmlContent != "":
		return Extracted{
			FullText: htmlContent + FailedNote,
			Source:   SourceHTML,
		}, nil
	default:
		return Extracted{}, errNoContent
	}
}

// HTMLContent renders the metadata block used as the HTML fallback. It is
// empty when the paper has no abstract.
func HTMLContent(paper reference.Paper) string {
	if strings.TrimSpace(paper.Abstract) == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Title: " + orUnknown(paper.Title) + "\n")
	b.WriteString("Authors: " + reference.AuthorNames(paper.Authors, "") + "\n")
	b.WriteString("ArXiv ID: " + orUnknown(paper.ID) + "\n\n")
	b.WriteString("Abstract:\n" + paper.Abstract + "\n")
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
