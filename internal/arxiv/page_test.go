package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const abstractPageHTML = `<!DOCTYPE html>
<html><head>
<meta name="citation_title" content="Meta Title" />
<meta name="citation_author" content="Meta, Author" />
</head>
<body>
<h1 class="title mathjax"><span class="descriptor">Title:</span>Attention Is All You Need</h1>
<div class="authors"><span class="descriptor">Authors:</span>
<a href="/a/vaswani_a_1">Ashish Vaswani</a>, <a href="/a/shazeer_n_1">Noam Shazeer</a>
</div>
<blockquote class="abstract mathjax">
<span class="descriptor">Abstract:</span>The dominant sequence transduction models
are based on complex recurrent networks.
</blockquote>
</body></html>`

const metaOnlyHTML = `<html><head>
<meta name="citation_title" content="Meta Title" />
<meta name="citation_author" content="Doe, Jane" />
<meta name="citation_author" content="Smith, John" />
<meta name="citation_arxiv_id" content="1706.03762" />
<meta name="citation_abstract" content="An abstract from meta tags." />
</head><body></body></html>`

func TestParseAbstractPage_Elements(t *testing.T) {
	paper, err := ParseAbstractPage(strings.NewReader(abstractPageHTML), "https://arxiv.org/abs/1706.03762v7")
	if err != nil {
		t.Fatalf("ParseAbstractPage() error: %v", err)
	}

	if paper.ID != "1706.03762" {
		t.Errorf("ID = %q", paper.ID)
	}
	if paper.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", paper.Title)
	}
	if len(paper.Authors) != 2 || paper.Authors[0].Last != "Vaswani" || paper.Authors[1].First != "Noam" {
		t.Errorf("Authors = %+v", paper.Authors)
	}
	want := "The dominant sequence transduction models are based on complex recurrent networks."
	if paper.Abstract != want {
		t.Errorf("Abstract = %q, want %q", paper.Abstract, want)
	}
	if paper.Year != 2017 {
		t.Errorf("Year = %d, want 2017", paper.Year)
	}
	if paper.PDFURL != "https://arxiv.org/pdf/1706.03762.pdf" {
		t.Errorf("PDFURL = %q", paper.PDFURL)
	}
}

func TestParseAbstractPage_MetaFallback(t *testing.T) {
	paper, err := ParseAbstractPage(strings.NewReader(metaOnlyHTML), "")
	if err != nil {
		t.Fatalf("ParseAbstractPage() error: %v", err)
	}

	if paper.ID != "1706.03762" {
		t.Errorf("ID = %q", paper.ID)
	}
	if paper.Title != "Meta Title" {
		t.Errorf("Title = %q", paper.Title)
	}
	if len(paper.Authors) != 2 || paper.Authors[0].Last != "Doe" || paper.Authors[0].First != "Jane" {
		t.Errorf("Authors = %+v", paper.Authors)
	}
	if paper.Abstract != "An abstract from meta tags." {
		t.Errorf("Abstract = %q", paper.Abstract)
	}
}

func TestParseAbstractPage_NoMetadata(t *testing.T) {
	_, err := ParseAbstractPage(strings.NewReader("<html><body><p>hello</p></body></html>"), "")
	if !errors.Is(err, ErrNoMetadata) {
		t.Errorf("expected ErrNoMetadata, got %v", err)
	}
}

func TestClient_FetchPaper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/abs/1706.03762" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(abstractPageHTML))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	paper, err := client.FetchPaper(context.Background(), "1706.03762")
	if err != nil {
		t.Fatalf("FetchPaper() error: %v", err)
	}
	if paper.ID != "1706.03762" {
		t.Errorf("ID = %q", paper.ID)
	}
	if paper.URL != "https://arxiv.org/abs/1706.03762" {
		t.Errorf("URL should be canonical, got %q", paper.URL)
	}

	if _, err := client.FetchPaper(context.Background(), "9999.99999"); err == nil {
		t.Error("expected error for missing page")
	}
}
