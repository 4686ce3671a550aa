package arxiv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/matsen/paperchat/internal/reference"
)

const (
	// DefaultTimeout is the default HTTP request timeout for abstract pages.
	DefaultTimeout = 30 * time.Second
)

// ErrNoMetadata indicates an abstract page carried no recognizable paper metadata.
var ErrNoMetadata = errors.New("no paper metadata found on page")

// Client fetches arXiv abstract pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom site root (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// NewClient creates a new abstract page client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPaper downloads the abstract page for id and parses its metadata.
func (c *Client) FetchPaper(ctx context.Context, id string) (reference.Paper, error) {
	pageURL := c.baseURL + "/abs/" + id

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return reference.Paper{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reference.Paper{}, fmt.Errorf("fetching abstract page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return reference.Paper{}, fmt.Errorf("abstract page returned status %d", resp.StatusCode)
	}

	paper, err := ParseAbstractPage(resp.Body, pageURL)
	if err != nil {
		return reference.Paper{}, err
	}
	// Canonical locations, independent of the test or mirror base URL.
	paper.URL = AbsURL(paper.ID)
	paper.PDFURL = PDFURL(paper.ID)
	return paper, nil
}

// ParseAbstractPage extracts title, authors and abstract from an arXiv
// abstract page. The visible page elements are preferred; citation_* meta
// tags are used when an element is missing.
func ParseAbstractPage(r io.Reader, pageURL string) (reference.Paper, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return reference.Paper{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var paper reference.Paper

	if id, err := ParseID(pageURL); err == nil {
		paper.ID = id
	} else if id, err := ParseID(metaContent(doc, "citation_arxiv_id")); err == nil {
		paper.ID = id
	}

	paper.Title = stripLabel(doc.Find("h1.title").First().Text(), "Title:")
	if paper.Title == "" {
		paper.Title = metaContent(doc, "citation_title")
	}

	var names []string
	doc.Find(".authors a").Each(func(i int, s *goquery.Selection) {
		names = append(names, strings.TrimSpace(s.Text()))
	})
	if len(names) == 0 {
		doc.Find(`meta[name="citation_author"]`).Each(func(i int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				names = append(names, v)
			}
		})
	}
	paper.Authors = reference.ParseAuthors(names)

	paper.Abstract = stripLabel(doc.Find(".abstract").First().Text(), "Abstract:")
	if paper.Abstract == "" {
		paper.Abstract = metaContent(doc, "citation_abstract")
	}

	if paper.ID == "" && paper.Title == "" && paper.Abstract == "" {
		return reference.Paper{}, ErrNoMetadata
	}

	if paper.ID != "" {
		paper.Year = YearFromID(paper.ID)
		paper.URL = AbsURL(paper.ID)
		paper.PDFURL = PDFURL(paper.ID)
	}
	if paper.Title == "" && paper.ID != "" {
		paper.Title = "arXiv Paper " + paper.ID
	}

	return paper, nil
}

// metaContent returns the trimmed content attribute of the first meta tag with the given name.
func metaContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(v)
}

// stripLabel removes a visible label such as "Abstract:" and collapses whitespace.
func stripLabel(text, label string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, label)
	return strings.Join(strings.Fields(text), " ")
}
