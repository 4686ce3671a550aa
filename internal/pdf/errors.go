package pdf

import (
	"errors"
	"fmt"
)

// Reason classifies why extraction failed.
type Reason string

// Extraction failure reasons.
const (
	ReasonFetchFailed        Reason = "fetch-failed"
	ReasonInvalidPDF         Reason = "invalid-pdf"
	ReasonNoText             Reason = "no-text-image-based"
	ReasonWorkerInitFailed   Reason = "worker-init-failed"
	ReasonNoContentAvailable Reason = "no-content-available"
)

// ErrExtraction is matched by every *ExtractionError via errors.Is.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError reports a whole-document extraction failure.
// Per-page failures are never surfaced as ExtractionError.
type ExtractionError struct {
	Reason Reason
	Source string // PDF URL or path, for context
	Err    error  // Underlying cause, may be nil
}

func (e *ExtractionError) Error() string {
	msg := reasonMessage(e.Reason)
	if e.Source != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Source)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExtraction) true for any ExtractionError.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// NewError builds an ExtractionError.
func NewError(reason Reason, source string, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Source: source, Err: err}
}

// ReasonOf returns the failure reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Reason, true
	}
	return "", false
}

// IsReason reports whether err is an ExtractionError with the given reason.
func IsReason(err error, reason Reason) bool {
	r, ok := ReasonOf(err)
	return ok && r == reason
}

func reasonMessage(r Reason) string {
	switch r {
	case ReasonFetchFailed:
		return "failed to download PDF"
	case ReasonInvalidPDF:
		return "invalid PDF file: the file appears to be corrupted or is not a valid PDF"
	case ReasonNoText:
		return "the PDF appears to be image-based or empty; only text-based PDFs are supported"
	case ReasonWorkerInitFailed:
		return "PDF parser initialization failed"
	case ReasonNoContentAvailable:
		return "unable to extract paper content from PDF or HTML"
	default:
		return "PDF extraction failed"
	}
}
