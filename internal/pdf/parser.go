package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// errNullPage is returned for page objects that are missing from the file.
var errNullPage = errors.New("page object is null")

// Parser opens PDF bytes into a page-addressable Document.
type Parser interface {
	Open(data []byte) (Document, error)
}

// Document is an opened PDF. Close releases any parser resources and must be
// called on every path once Open succeeds.
type Document interface {
	// NumPage returns the total number of pages.
	NumPage() int

	// PageText returns the plain text of 1-based page n.
	PageText(n int) (string, error)

	Close() error
}

// LedongthucParser parses PDFs with github.com/ledongthuc/pdf.
type LedongthucParser struct{}

// Open parses data as a PDF. The library panics on some malformed inputs, so
// panics are converted to errors.
func (LedongthucParser) Open(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &ledongthucDocument{r: r}, nil
}

type ledongthucDocument struct {
	r *pdf.Reader
}

func (d *ledongthucDocument) NumPage() int {
	if d.r == nil {
		return 0
	}
	return d.r.NumPage()
}

func (d *ledongthucDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("reading page %d: %v", n, r)
		}
	}()

	page := d.r.Page(n)
	if page.V.IsNull() {
		return "", errNullPage
	}
	return page.GetPlainText(nil)
}

// Close drops the reader; the underlying bytes are owned by the caller.
func (d *ledongthucDocument) Close() error {
	d.r = nil
	return nil
}
