package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single PDF download.
	DefaultFetchTimeout = 2 * time.Minute

	// MaxPDFSize caps the number of bytes read from a PDF source.
	MaxPDFSize = 100 << 20
)

// Fetcher loads PDF bytes from an http(s) URL or a local path.
type Fetcher struct {
	httpClient *http.Client
	root       string
	maxSize    int64
}

// NewFetcher creates a Fetcher. Relative local paths resolve against root.
func NewFetcher(hc *http.Client, root string) *Fetcher {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &Fetcher{httpClient: hc, root: root, maxSize: MaxPDFSize}
}

// Fetch returns the raw bytes of source. Every failure is an ExtractionError
// with ReasonFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, NewError(ReasonFetchFailed, source, fmt.Errorf("no PDF source specified"))
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchHTTP(ctx, source)
	}
	return f.readLocal(source)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(ReasonFetchFailed, url, fmt.Errorf("creating request: %w", err))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, NewError(ReasonFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(ReasonFetchFailed, url, fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, NewError(ReasonFetchFailed, url, fmt.Errorf("reading body: %w", err))
	}
	if int64(len(data)) > f.maxSize {
		return nil, NewError(ReasonFetchFailed, url, fmt.Errorf("PDF exceeds size limit of %d bytes", f.maxSize))
	}
	return data, nil
}

func (f *Fetcher) readLocal(source string) ([]byte, error) {
	path := ResolvePath(f.root, strings.TrimPrefix(source, "file://"))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewError(ReasonFetchFailed, path, fmt.Errorf("PDF not found"))
		}
		return nil, NewError(ReasonFetchFailed, path, err)
	}
	return data, nil
}

// ResolvePath resolves a local PDF path. A leading ~ expands to the home
// directory; relative paths are joined to root when root is set.
func ResolvePath(root, path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	if root != "" && !filepath.IsAbs(path) {
		return filepath.Join(root, path)
	}
	return path
}
