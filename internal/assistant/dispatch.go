package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matsen/paperchat/internal/chat"
	"github.com/matsen/paperchat/internal/config"
	"github.com/matsen/paperchat/internal/content"
	"github.com/matsen/paperchat/internal/embedding"
	"github.com/matsen/paperchat/internal/library"
	"github.com/matsen/paperchat/internal/pdf"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/matsen/paperchat/internal/storage"
)

// Request is one of the request variants defined in this file.
type Request interface {
	requestType() string
}

// Request type names used in the JSON envelope.
const (
	TypeGetMarker     = "get_marker"
	TypeSavePaper     = "save_paper"
	TypeExtract       = "extract"
	TypeChat          = "chat"
	TypeSearchSimilar = "search_similar"
	TypeAddTag        = "add_tag"
	TypeRemoveTag     = "remove_tag"
	TypeTagCounts     = "tag_counts"
	TypeListPapers    = "list_papers"
	TypeSetCredential = "set_credential"
	TypeSummarize     = "summarize"
	TypeKeywords      = "keywords"
)

// GetMarker asks whether a paper has been extracted.
type GetMarker struct {
	PaperID string `json:"paper_id"`
}

// SavePaper stores a paper and indexes it.
type SavePaper struct {
	Paper reference.Paper `json:"paper"`
}

// Extract indexes a saved paper. Extraction is page-limited unless Full is set.
type Extract struct {
	PaperID string `json:"paper_id"`
	Full    bool   `json:"full,omitempty"`
}

// Chat asks a question about a paper.
type Chat struct {
	Paper   reference.Paper `json:"paper"`
	Message string          `json:"message"`
	History []chat.Message  `json:"history,omitempty"`
}

// SearchSimilar ranks saved papers against a query.
type SearchSimilar struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// AddTag adds a tag to a saved paper.
type AddTag struct {
	PaperID string `json:"paper_id"`
	Tag     string `json:"tag"`
}

// RemoveTag removes a tag from a saved paper.
type RemoveTag struct {
	PaperID string `json:"paper_id"`
	Tag     string `json:"tag"`
}

// TagCounts asks for the number of papers carrying each tag.
type TagCounts struct{}

// ListPapers asks for every saved paper.
type ListPapers struct{}

// SetCredential stores an API key for a provider.
type SetCredential struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// Summarize asks for a summary of a saved paper.
type Summarize struct {
	PaperID string `json:"paper_id"`
}

// Keywords asks for keywords describing a saved paper.
type Keywords struct {
	PaperID string `json:"paper_id"`
}

func (GetMarker) requestType() string     { return TypeGetMarker }
func (SavePaper) requestType() string     { return TypeSavePaper }
func (Extract) requestType() string       { return TypeExtract }
func (Chat) requestType() string          { return TypeChat }
func (SearchSimilar) requestType() string { return TypeSearchSimilar }
func (AddTag) requestType() string        { return TypeAddTag }
func (RemoveTag) requestType() string     { return TypeRemoveTag }
func (TagCounts) requestType() string     { return TypeTagCounts }
func (ListPapers) requestType() string    { return TypeListPapers }
func (SetCredential) requestType() string { return TypeSetCredential }
func (Summarize) requestType() string     { return TypeSummarize }
func (Keywords) requestType() string      { return TypeKeywords }

// TypeOf returns the envelope type name of r.
func TypeOf(r Request) string {
	return r.requestType()
}

// ErrUnknownRequest is returned by DecodeRequest for an unrecognized type.
var ErrUnknownRequest = errors.New("unknown request type")

// DecodeRequest parses a JSON envelope {"type": "...", ...fields}.
func DecodeRequest(data []byte) (Request, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	switch envelope.Type {
	case TypeGetMarker:
		return decode[GetMarker](data)
	case TypeSavePaper:
		return decode[SavePaper](data)
	case TypeExtract:
		return decode[Extract](data)
	case TypeChat:
		return decode[Chat](data)
	case TypeSearchSimilar:
		return decode[SearchSimilar](data)
	case TypeAddTag:
		return decode[AddTag](data)
	case TypeRemoveTag:
		return decode[RemoveTag](data)
	case TypeTagCounts:
		return decode[TagCounts](data)
	case TypeListPapers:
		return decode[ListPapers](data)
	case TypeSetCredential:
		return decode[SetCredential](data)
	case TypeSummarize:
		return decode[Summarize](data)
	case TypeKeywords:
		return decode[Keywords](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, envelope.Type)
	}
}

func decode[T Request](data []byte) (Request, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: malformed request: %w", ErrInvalidRequest, err)
	}
	return v, nil
}

// EncodeRequest renders r as a JSON envelope.
func EncodeRequest(r Request) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(r.requestType())
	return json.Marshal(fields)
}

// Error codes carried by a failed Response.
const (
	CodeUnconfigured   = "unconfigured"
	CodeNotFound       = "not_found"
	CodeInvalidRequest = "invalid_request"
	CodeExtraction     = "extraction_failed"
	CodeStorage        = "storage_unavailable"
	CodeFailed         = "failed"
)

// Response is the result of one dispatched request. Exactly one of Data and
// Error is set.
type Response struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// OK reports whether the request succeeded.
func (r Response) OK() bool {
	return r.Error == ""
}

// MarkerStatus is the payload of a GetMarker response.
type MarkerStatus struct {
	Extracted bool            `json:"extracted"`
	Marker    *content.Record `json:"marker,omitempty"`
}

// ExtractStatus is the payload of an Extract response.
type ExtractStatus struct {
	Success          bool           `json:"success"`
	AlreadyExtracted bool           `json:"already_extracted"`
	ChunkCount       int            `json:"chunk_count"`
	Source           content.Source `json:"source,omitempty"`
	HasFullPDF       bool           `json:"has_full_pdf"`
}

// Dispatch runs req and reports the outcome as a Response. It never fails:
// errors become the Response's Error and Code.
func (s *Service) Dispatch(ctx context.Context, req Request) Response {
	if req == nil {
		return s.failure("", fmt.Errorf("%w: no request", ErrInvalidRequest))
	}
	typ := req.requestType()
	data, err := s.dispatch(ctx, req)
	if err != nil {
		return s.failure(typ, err)
	}
	return Response{Type: typ, Data: data}
}

func (s *Service) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case GetMarker:
		if r.PaperID == "" {
			return nil, fmt.Errorf("%w: paper_id is required", ErrInvalidRequest)
		}
		rec, ok, err := s.Marker(ctx, r.PaperID)
		if err != nil {
			return nil, err
		}
		status := MarkerStatus{Extracted: ok}
		if ok {
			status.Marker = &rec
		}
		return status, nil

	case SavePaper:
		return s.SavePaper(ctx, r.Paper)

	case Extract:
		if r.PaperID == "" {
			return nil, fmt.Errorf("%w: paper_id is required", ErrInvalidRequest)
		}
		paper, err := s.library.Get(ctx, r.PaperID)
		if err != nil {
			return nil, err
		}
		if rec, ok, err := s.Marker(ctx, r.PaperID); err != nil {
			return nil, err
		} else if ok {
			return ExtractStatus{Success: true, AlreadyExtracted: true, ChunkCount: rec.ChunkCount, Source: rec.Source, HasFullPDF: rec.HasFullPDF}, nil
		}
		rec, err := s.ExtractAndIndex(ctx, paper, content.Options{FastMode: !r.Full})
		if err != nil {
			return nil, err
		}
		return ExtractStatus{Success: true, ChunkCount: rec.ChunkCount, Source: rec.Source, HasFullPDF: rec.HasFullPDF}, nil

	case Chat:
		return s.Answer(ctx, r.Paper, r.Message, r.History)

	case SearchSimilar:
		if r.Query == "" {
			return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
		}
		return s.SearchSimilar(ctx, r.Query, r.Limit)

	case AddTag:
		return s.library.AddTag(ctx, r.PaperID, r.Tag)

	case RemoveTag:
		return s.library.RemoveTag(ctx, r.PaperID, r.Tag)

	case TagCounts:
		return s.library.TagCounts(ctx)

	case ListPapers:
		return s.library.List(ctx)

	case SetCredential:
		return s.SetCredential(ctx, r.Provider, r.APIKey)

	case Summarize:
		summary, err := s.Summarize(ctx, r.PaperID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"summary": summary}, nil

	case Keywords:
		keywords, err := s.Keywords(ctx, r.PaperID)
		if err != nil {
			return nil, err
		}
		return map[string][]string{"keywords": keywords}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownRequest, req)
	}
}

func (s *Service) failure(typ string, err error) Response {
	code, msg := s.classify(err)
	return Response{Type: typ, Error: msg, Code: code}
}

// classify maps an error to a response code and user-facing message.
func (s *Service) classify(err error) (string, string) {
	cfg := s.Config()
	switch {
	case chat.IsUnconfigured(err):
		return CodeUnconfigured, config.UnconfiguredMessage(cfg.ChatProvider)
	case embedding.IsUnconfigured(err):
		return CodeUnconfigured, config.UnconfiguredMessage(cfg.EmbeddingProvider)
	case errors.Is(err, library.ErrPaperNotFound):
		return CodeNotFound, err.Error()
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrUnknownRequest), errors.Is(err, config.ErrInvalid):
		return CodeInvalidRequest, err.Error()
	case errors.Is(err, pdf.ErrExtraction):
		return CodeExtraction, err.Error()
	case errors.Is(err, storage.ErrUnavailable):
		return CodeStorage, err.Error()
	default:
		return CodeFailed, err.Error()
	}
}
