package pdf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeDoc struct {
	pages   []string
	failing map[int]bool
	closed  bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) PageText(n int) (string, error) {
	if d.failing[n] {
		return "", fmt.Errorf("bad page %d", n)
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeParser struct {
	doc *fakeDoc
	err error
}

func (p *fakeParser) Open(data []byte) (Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.doc, nil
}

var pdfBytes = []byte("%PDF-1.4\nfake")

func numberedPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("text of page %d", i+1)
	}
	return pages
}

func TestExtractBytes_SkipsFailingPage(t *testing.T) {
	doc := &fakeDoc{
		pages:   []string{"first   page", "second", "third\n page"},
		failing: map[int]bool{2: true},
	}
	e := NewExtractor(WithParser(&fakeParser{doc: doc}))

	got, err := e.ExtractBytes(context.Background(), "test.pdf", pdfBytes, Options{})
	if err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}

	want := "\n[Page 1]\nfirst page\n[Page 3]\nthird page"
	if got != want {
		t.Errorf("ExtractBytes() = %q, want %q", got, want)
	}
	if !doc.closed {
		t.Error("expected document to be closed")
	}
}

func TestExtractBytes_Truncation(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(20)}
	e := NewExtractor(WithParser(&fakeParser{doc: doc}))

	got, err := e.ExtractBytes(context.Background(), "test.pdf", pdfBytes, Options{MaxPages: 10})
	if err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}

	if n := strings.Count(got, "[Page "); n != 10 {
		t.Errorf("page markers = %d, want 10", n)
	}
	if strings.Contains(got, "[Page 11]") {
		t.Error("page 11 should not be extracted")
	}
	wantNote := "\n\n[Note: Only first 10 pages extracted for faster processing. Full PDF has 20 pages.]"
	if !strings.HasSuffix(got, wantNote) {
		t.Errorf("missing truncation note, got tail %q", got[len(got)-80:])
	}
}

func TestExtractBytes_NoNoteWhenAllPagesProcessed(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(5)}
	e := NewExtractor(WithParser(&fakeParser{doc: doc}))

	got, err := e.ExtractBytes(context.Background(), "test.pdf", pdfBytes, Options{MaxPages: 10})
	if err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}
	if strings.Contains(got, "[Note:") {
		t.Errorf("unexpected note in %q", got)
	}
	if !strings.HasPrefix(got, "\n[Page 1]\ntext of page 1") {
		t.Errorf("unexpected prefix %q", got)
	}
}

func TestExtractBytes_Errors(t *testing.T) {
	tests := []struct {
		name   string
		parser Parser
		data   []byte
		want   Reason
	}{
		{
			name:   "not a pdf",
			parser: &fakeParser{doc: &fakeDoc{pages: numberedPages(1)}},
			data:   []byte("<html>nope</html>"),
			want:   ReasonInvalidPDF,
		},
		{
			name:   "parser rejects",
			parser: &fakeParser{err: errors.New("corrupt xref")},
			data:   pdfBytes,
			want:   ReasonInvalidPDF,
		},
		{
			name:   "no parser",
			parser: nil,
			data:   pdfBytes,
			want:   ReasonWorkerInitFailed,
		},
		{
			name:   "empty pages",
			parser: &fakeParser{doc: &fakeDoc{pages: []string{"", "  \n "}}},
			data:   pdfBytes,
			want:   ReasonNoText,
		},
		{
			name:   "zero pages",
			parser: &fakeParser{doc: &fakeDoc{}},
			data:   pdfBytes,
			want:   ReasonNoText,
		},
		{
			name:   "every page fails",
			parser: &fakeParser{doc: &fakeDoc{pages: numberedPages(2), failing: map[int]bool{1: true, 2: true}}},
			data:   pdfBytes,
			want:   ReasonNoText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(WithParser(tt.parser))
			_, err := e.ExtractBytes(context.Background(), "x.pdf", tt.data, Options{})
			if !IsReason(err, tt.want) {
				t.Errorf("error = %v, want reason %s", err, tt.want)
			}
			if !errors.Is(err, ErrExtraction) {
				t.Errorf("errors.Is(err, ErrExtraction) = false for %v", err)
			}
		})
	}
}

func TestExtractBytes_ClosesOnNoText(t *testing.T) {
	doc := &fakeDoc{pages: []string{""}}
	e := NewExtractor(WithParser(&fakeParser{doc: doc}))

	if _, err := e.ExtractBytes(context.Background(), "x.pdf", pdfBytes, Options{}); err == nil {
		t.Fatal("expected error")
	}
	if !doc.closed {
		t.Error("expected document to be closed")
	}
}

func TestExtractBytes_Cancelled(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(3)}
	e := NewExtractor(WithParser(&fakeParser{doc: doc}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ExtractBytes(ctx, "x.pdf", pdfBytes, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if !doc.closed {
		t.Error("expected document to be closed")
	}
}

func TestExtract_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write(pdfBytes)
	}))
	defer srv.Close()

	doc := &fakeDoc{pages: []string{"hello"}}
	e := NewExtractor(
		WithParser(&fakeParser{doc: doc}),
		WithFetcher(NewFetcher(srv.Client(), "")),
	)

	got, err := e.Extract(context.Background(), srv.URL+"/paper.pdf", Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "\n[Page 1]\nhello" {
		t.Errorf("Extract() = %q", got)
	}

	_, err = e.Extract(context.Background(), srv.URL+"/missing.pdf", Options{})
	if !IsReason(err, ReasonFetchFailed) {
		t.Errorf("error = %v, want fetch-failed", err)
	}
}

func TestFetch_SizeLimit(t *testing.T) {
	body := strings.Repeat("x", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		maxSize int64
		wantErr bool
	}{
		{"under limit", 100, false},
		{"exactly at limit", 64, false},
		{"over limit", 63, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(srv.Client(), "")
			f.maxSize = tt.maxSize
			data, err := f.Fetch(context.Background(), srv.URL+"/paper.pdf")
			if tt.wantErr {
				if !IsReason(err, ReasonFetchFailed) {
					t.Fatalf("error = %v, want fetch-failed", err)
				}
				if !strings.Contains(err.Error(), "exceeds size limit") {
					t.Errorf("error = %v, want size limit message", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if string(data) != body {
				t.Errorf("Fetch() returned %d bytes, want %d", len(data), len(body))
			}
		})
	}
}

func TestExtract_LocalFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "paper.pdf"), pdfBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor(
		WithParser(&fakeParser{doc: &fakeDoc{pages: []string{"local"}}}),
		WithFetcher(NewFetcher(nil, dir)),
	)

	got, err := e.Extract(context.Background(), "paper.pdf", Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got != "\n[Page 1]\nlocal" {
		t.Errorf("Extract() = %q", got)
	}

	_, err = e.Extract(context.Background(), "absent.pdf", Options{})
	if !IsReason(err, ReasonFetchFailed) {
		t.Errorf("error = %v, want fetch-failed", err)
	}
}

func TestPages_StopsEarly(t *testing.T) {
	doc := &fakeDoc{pages: numberedPages(5)}
	var seen []int
	for res := range Pages(doc, 5) {
		seen = append(seen, res.Number)
		if res.Number == 2 {
			break
		}
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("seen = %v, want [1 2]", seen)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a  b\nc", "a b c"},
		{"  lead and trail  ", "lead and trail"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
