package chat

import (
	"context"
	"fmt"

	"github.com/matsen/paperchat/internal/content"
	"github.com/matsen/paperchat/internal/logging"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/matsen/paperchat/internal/semantic"
	"github.com/phuslu/log"
)

// Default generation parameters.
const (
	DefaultTopK        = 3
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// MarkerStore reports whether a paper's text has been extracted and indexed.
type MarkerStore interface {
	Marker(ctx context.Context, paperID string) (content.Record, bool, error)
}

// Indexer extracts, chunks and embeds a paper, writing its marker.
type Indexer interface {
	ExtractAndIndex(ctx context.Context, paper reference.Paper, opts content.Options) (content.Record, error)
}

// Retriever returns the top-k chunks of a paper most similar to query.
type Retriever interface {
	Retrieve(ctx context.Context, paperID, query string, k int) ([]semantic.ChunkResult, error)
}

// ContextMode describes what the system message was built from.
type ContextMode string

const (
	ContextRAG      ContextMode = "rag"
	ContextAbstract ContextMode = "abstract"
)

// Reply is a generated answer and the context it was grounded on.
type Reply struct {
	Response string                 `json:"response"`
	Context  ContextMode            `json:"context"`
	Sources  []semantic.ChunkResult `json:"sources,omitempty"`
}

// Composer answers questions about a paper with retrieval-augmented generation.
type Composer struct {
	generator   Generator
	markers     MarkerStore
	indexer     Indexer
	retriever   Retriever
	topK        int
	temperature float64
	maxTokens   int
	logger      *log.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithTopK sets the number of chunks retrieved per question.
func WithTopK(k int) ComposerOption {
	return func(c *Composer) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ComposerOption {
	return func(c *Composer) {
		c.temperature = t
	}
}

// WithMaxTokens sets the maximum reply length.
func WithMaxTokens(n int) ComposerOption {
	return func(c *Composer) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = l
	}
}

// NewComposer creates a Composer.
func NewComposer(g Generator, markers MarkerStore, indexer Indexer, retriever Retriever, opts ...ComposerOption) *Composer {
	c := &Composer{
		generator:   g,
		markers:     markers,
		indexer:     indexer,
		retriever:   retriever,
		topK:        DefaultTopK,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

type state int

const (
	stateNeedsContext state = iota
	stateRetrieve
	stateExtractThenRetrieve
	stateCompose
	stateGenerate
	stateDone
)

// Answer replies to query about paper given the prior conversation. A paper
// without an extraction marker is extracted first (in fast mode); if that
// fails the answer is grounded on the abstract alone.
func (c *Composer) Answer(ctx context.Context, query string, paper reference.Paper, history []Message) (Reply, error) {
	if !IsConfigured(c.generator) {
		return Reply{}, ErrUnconfigured
	}

	var (
		chunks   []semantic.ChunkResult
		degraded bool
		messages []Message
		reply    Reply
	)

	for st := stateNeedsContext; st != stateDone; {
		switch st {
		case stateNeedsContext:
			_, ok, err := c.markers.Marker(ctx, paper.ID)
			if err != nil {
				return Reply{}, fmt.Errorf("reading extraction marker: %w", err)
			}
			if ok {
				st = stateRetrieve
			} else {
				st = stateExtractThenRetrieve
			}

		case stateExtractThenRetrieve:
			rec, err := c.indexer.ExtractAndIndex(ctx, paper, content.Options{FastMode: true})
			if err != nil {
				if ctx.Err() != nil {
					return Reply{}, ctx.Err()
				}
				c.logger.Warn().Str("paper", paper.ID).Err(err).Msg("extraction failed, answering from abstract")
				degraded = true
				st = stateCompose
				continue
			}
			c.logger.Info().Str("paper", paper.ID).Int("chunks", rec.ChunkCount).Msg("paper indexed for chat")
			st = stateRetrieve

		case stateRetrieve:
			found, err := c.retriever.Retrieve(ctx, paper.ID, query, c.topK)
			if err != nil {
				return Reply{}, fmt.Errorf("retrieving context: %w", err)
			}
			chunks = found
			st = stateCompose

		case stateCompose:
			var system string
			if degraded || len(chunks) == 0 {
				system = AbstractContext(paper)
				reply.Context = ContextAbstract
			} else {
				system = RAGContext(paper, chunks)
				reply.Context = ContextRAG
				reply.Sources = chunks
			}
			messages = make([]Message, 0, len(history)+2)
			messages = append(messages, Message{Role: RoleSystem, Content: system})
			messages = append(messages, history...)
			messages = append(messages, Message{Role: RoleUser, Content: query})
			st = stateGenerate

		case stateGenerate:
			text, err := c.generate(ctx, messages)
			if err != nil {
				return Reply{}, err
			}
			reply.Response = text
			st = stateDone
		}
	}

	return reply, nil
}

func (c *Composer) generate(ctx context.Context, messages []Message) (string, error) {
	return c.generator.Generate(ctx, Request{
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
}

// Summarize asks for a short summary of the paper from its abstract.
func (c *Composer) Summarize(ctx context.Context, paper reference.Paper) (string, error) {
	if !IsConfigured(c.generator) {
		return "", ErrUnconfigured
	}
	return c.generate(ctx, []Message{
		{Role: RoleSystem, Content: generalContext},
		{Role: RoleUser, Content: summaryPrompt(paper)},
	})
}

// Keywords asks for 5-8 keywords describing the paper.
func (c *Composer) Keywords(ctx context.Context, paper reference.Paper) ([]string, error) {
	if !IsConfigured(c.generator) {
		return nil, ErrUnconfigured
	}
	reply, err := c.generate(ctx, []Message{
		{Role: RoleSystem, Content: generalContext},
		{Role: RoleUser, Content: keywordsPrompt(paper)},
	})
	if err != nil {
		return nil, err
	}
	return ParseKeywords(reply), nil
}
