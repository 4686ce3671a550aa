package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/matsen/paperchat/internal/pdf"
	"github.com/matsen/paperchat/internal/reference"
)

type stubExtractor struct {
	text    string
	err     error
	gotOpts pdf.Options
	calls   int
}

func (s *stubExtractor) Extract(ctx context.Context, source string, opts pdf.Options) (string, error) {
	s.calls++
	s.gotOpts = opts
	return s.text, s.err
}

// pageDoc implements pdf.Document over numbered pages.
type pageDoc struct{ n int }

func (d pageDoc) NumPage() int { return d.n }
func (d pageDoc) PageText(n int) (string, error) {
	return fmt.Sprintf("page %d body %s", n, strings.Repeat("lorem ", 50)), nil
}
func (d pageDoc) Close() error { return nil }

type pageParser struct{ n int }

func (p pageParser) Open([]byte) (pdf.Document, error) { return pageDoc{n: p.n}, nil }

// bytesExtractor drives a real pdf.Extractor over in-memory bytes.
type bytesExtractor struct {
	e    *pdf.Extractor
	data []byte
}

func (b bytesExtractor) Extract(ctx context.Context, source string, opts pdf.Options) (string, error) {
	return b.e.ExtractBytes(ctx, source, b.data, opts)
}

var testPaper = reference.Paper{
	ID:       "2301.00001",
	Title:    "A Paper",
	Authors:  []reference.Author{{First: "Ada", Last: "Lovelace"}},
	Abstract: "We study things.",
}

func TestDecide(t *testing.T) {
	html := HTMLContent(testPaper)
	long := strings.Repeat("x", len(html)+1)
	short := "tiny"
	fail := pdf.NewError(pdf.ReasonInvalidPDF, "", nil)

	tests := []struct {
		name       string
		pdfText    string
		pdfErr     error
		html       string
		fast       bool
		wantSource Source
		wantFull   bool
		wantText   string
		wantErr    bool
	}{
		{name: "pdf longer", pdfText: long, html: html, wantSource: SourcePDF, wantFull: true, wantText: long},
		{name: "pdf longer fast", pdfText: long, html: html, fast: true, wantSource: SourceCombined, wantText: long},
		{name: "pdf shorter", pdfText: short, html: html, wantSource: SourceCombined, wantText: html + LimitedNote + short},
		{name: "pdf equal length", pdfText: strings.Repeat("y", len(html)), html: html, wantSource: SourceCombined, wantText: html + LimitedNote + strings.Repeat("y", len(html))},
		{name: "no html", pdfText: short, wantSource: SourcePDF, wantFull: true, wantText: short},
		{name: "no html fast", pdfText: short, fast: true, wantSource: SourceCombined, wantText: short},
		{name: "pdf failed html", pdfErr: fail, html: html, wantSource: SourceHTML, wantText: html + FailedNote},
		{name: "pdf failed no html", pdfErr: fail, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(tt.pdfText, tt.pdfErr, tt.html, tt.fast)
			if tt.wantErr {
				if !pdf.IsReason(err, pdf.ReasonNoContentAvailable) {
					t.Fatalf("error = %v, want no-content-available", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if got.Source != tt.wantSource || got.HasFullPDF != tt.wantFull {
				t.Errorf("Decide() = (%s, %v), want (%s, %v)", got.Source, got.HasFullPDF, tt.wantSource, tt.wantFull)
			}
			if got.FullText != tt.wantText {
				t.Errorf("FullText = %q, want %q", got.FullText, tt.wantText)
			}
			if got.HasFullPDF && got.Source != SourcePDF {
				t.Error("HasFullPDF set on non-pdf source")
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	html := HTMLContent(testPaper)
	first, _ := Decide("some pdf text", nil, html, false)
	for i := 0; i < 50; i++ {
		got, _ := Decide("some pdf text", nil, html, false)
		if got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestDecide_CountsCharacters(t *testing.T) {
	// 5 runes, 15 bytes; HTML is 6 bytes.
	got, err := Decide("ééééé", nil, "abcdef", false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != SourceCombined {
		t.Errorf("Source = %s, want combined", got.Source)
	}
}

func TestReconcile_FastModeTwentyPages(t *testing.T) {
	ext := bytesExtractor{
		e:    pdf.NewExtractor(pdf.WithParser(pageParser{n: 20})),
		data: []byte("%PDF-1.7"),
	}
	r := NewReconciler(ext)

	got, err := r.Reconcile(context.Background(), "paper.pdf", testPaper, Options{FastMode: true})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if n := strings.Count(got.FullText, "\n[Page "); n != 10 {
		t.Errorf("pages processed = %d, want 10", n)
	}
	if got.Source != SourceCombined || got.HasFullPDF {
		t.Errorf("got (%s, %v), want (combined, false)", got.Source, got.HasFullPDF)
	}
}

func TestReconcile_FullMode(t *testing.T) {
	stub := &stubExtractor{text: "\n[Page 1]\n" + strings.Repeat("body ", 100)}
	r := NewReconciler(stub, WithFastModePages(4))

	got, err := r.Reconcile(context.Background(), "paper.pdf", testPaper, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if stub.gotOpts.MaxPages != 0 {
		t.Errorf("MaxPages = %d, want 0", stub.gotOpts.MaxPages)
	}
	if got.Source != SourcePDF || !got.HasFullPDF {
		t.Errorf("got (%s, %v), want (pdf, true)", got.Source, got.HasFullPDF)
	}

	if _, err := r.Reconcile(context.Background(), "paper.pdf", testPaper, Options{FastMode: true}); err != nil {
		t.Fatal(err)
	}
	if stub.gotOpts.MaxPages != 4 {
		t.Errorf("fast MaxPages = %d, want 4", stub.gotOpts.MaxPages)
	}
}

func TestReconcile_EmptyPDFNoHTML(t *testing.T) {
	ext := bytesExtractor{
		e:    pdf.NewExtractor(pdf.WithParser(pageParser{n: 0})),
		data: []byte("%PDF-1.7"),
	}
	r := NewReconciler(ext)

	noAbstract := testPaper
	noAbstract.Abstract = ""

	_, err := r.Reconcile(context.Background(), "paper.pdf", noAbstract, Options{})
	if !pdf.IsReason(err, pdf.ReasonNoContentAvailable) {
		t.Fatalf("error = %v, want no-content-available", err)
	}
	if !errors.Is(err, pdf.ErrExtraction) {
		t.Error("expected ErrExtraction")
	}
}

func TestReconcile_PDFFailureFallsBackToHTML(t *testing.T) {
	stub := &stubExtractor{err: pdf.NewError(pdf.ReasonFetchFailed, "x", errors.New("status 404"))}
	r := NewReconciler(stub)

	got, err := r.Reconcile(context.Background(), "x", testPaper, Options{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got.Source != SourceHTML || got.HasFullPDF {
		t.Errorf("got (%s, %v), want (html, false)", got.Source, got.HasFullPDF)
	}
	if !strings.HasSuffix(got.FullText, FailedNote) {
		t.Errorf("missing failure note in %q", got.FullText)
	}
}

func TestHTMLContent(t *testing.T) {
	want := "Title: A Paper\nAuthors: Ada Lovelace\nArXiv ID: 2301.00001\n\nAbstract:\nWe study things.\n"
	if got := HTMLContent(testPaper); got != want {
		t.Errorf("HTMLContent() = %q, want %q", got, want)
	}

	if got := HTMLContent(reference.Paper{Abstract: "abs"}); !strings.HasPrefix(got, "Title: Unknown\nAuthors: \nArXiv ID: Unknown") {
		t.Errorf("HTMLContent() fallbacks = %q", got)
	}
	if got := HTMLContent(reference.Paper{Title: "t"}); got != "" {
		t.Errorf("HTMLContent() without abstract = %q, want empty", got)
	}
}
