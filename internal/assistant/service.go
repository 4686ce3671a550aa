// Package assistant wires extraction, indexing, retrieval and chat into the
// operations pchat exposes.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matsen/paperchat/internal/arxiv"
	"github.com/matsen/paperchat/internal/chat"
	"github.com/matsen/paperchat/internal/chunk"
	"github.com/matsen/paperchat/internal/config"
	"github.com/matsen/paperchat/internal/content"
	"github.com/matsen/paperchat/internal/embedding"
	"github.com/matsen/paperchat/internal/library"
	"github.com/matsen/paperchat/internal/logging"
	"github.com/matsen/paperchat/internal/pdf"
	"github.com/matsen/paperchat/internal/reference"
	"github.com/matsen/paperchat/internal/semantic"
	"github.com/matsen/paperchat/internal/storage"
	"github.com/phuslu/log"
	"golang.org/x/sync/singleflight"
)

// DefaultSearchLimit is the number of papers SearchSimilar returns by default.
const DefaultSearchLimit = 5

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = errors.New("invalid request")

// EmbedderFunc builds the embedding provider for a configuration.
type EmbedderFunc func(cfg config.Config) (embedding.Provider, error)

// GeneratorFunc builds the chat generator for a configuration.
type GeneratorFunc func(cfg config.Config) (chat.Generator, error)

// Service owns the paper library, the vector store and the providers built
// from the current configuration.
type Service struct {
	db           *storage.DB
	library      *library.Library
	store        *semantic.Store
	extractor    content.TextExtractor
	newEmbedder  EmbedderFunc
	newGenerator GeneratorFunc
	saveSetting  func(key, value string) error
	logger       *log.Logger
	now          func() time.Time
	flight       singleflight.Group

	mu  sync.RWMutex
	rt  components
	cfg config.Config
}

// components holds what is rebuilt on every configuration change.
type components struct {
	batcher    *embedding.Batcher
	generator  chat.Generator
	reconciler *content.Reconciler
	chunker    *chunk.Chunker
	composer   *chat.Composer
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor replaces the PDF text extractor.
func WithExtractor(e content.TextExtractor) Option {
	return func(s *Service) {
		s.extractor = e
	}
}

// WithEmbedderFunc replaces how embedding providers are built.
func WithEmbedderFunc(f EmbedderFunc) Option {
	return func(s *Service) {
		s.newEmbedder = f
	}
}

// WithGeneratorFunc replaces how chat generators are built.
func WithGeneratorFunc(f GeneratorFunc) Option {
	return func(s *Service) {
		s.newGenerator = f
	}
}

// WithSettingSaver persists a configuration key changed through SetCredential.
func WithSettingSaver(f func(key, value string) error) Option {
	return func(s *Service) {
		s.saveSetting = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the time source used for extraction markers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service on db and rehydrates the vector store from it.
func New(ctx context.Context, db *storage.DB, cfg config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		db:           db,
		library:      library.New(db),
		store:        semantic.NewStore(),
		newEmbedder:  DefaultEmbedder,
		newGenerator: DefaultGenerator,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	if s.extractor == nil {
		s.extractor = pdf.NewExtractor(pdf.WithLogger(s.logger))
	}

	if err := s.apply(cfg); err != nil {
		return nil, err
	}
	if err := s.Rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultEmbedder builds the provider named by cfg.EmbeddingProvider.
func DefaultEmbedder(cfg config.Config) (embedding.Provider, error) {
	return embedding.New(embedding.Settings{
		Provider:  cfg.EmbeddingProvider,
		Model:     providerModel(cfg.EmbeddingProvider, cfg.EmbeddingModel, config.Defaults().EmbeddingModel),
		APIKey:    cfg.KeyFor(cfg.EmbeddingProvider),
		OllamaURL: cfg.OllamaURL,
	})
}

// DefaultGenerator builds the generator named by cfg.ChatProvider.
func DefaultGenerator(cfg config.Config) (chat.Generator, error) {
	return chat.New(chat.Settings{
		Provider: cfg.ChatProvider,
		Model:    providerModel(cfg.ChatProvider, cfg.ChatModel, config.Defaults().ChatModel),
		APIKey:   cfg.KeyFor(cfg.ChatProvider),
	})
}

// providerModel drops the OpenAI default model name for other providers so
// they fall back to their own defaults.
func providerModel(provider, model, openAIDefault string) string {
	if provider != config.ProviderOpenAI && model == openAIDefault {
		return ""
	}
	return model
}

func (s *Service) apply(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	embedder, err := s.newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("building embedding provider: %w", err)
	}
	generator, err := s.newGenerator(cfg)
	if err != nil {
		return fmt.Errorf("building chat generator: %w", err)
	}
	chunker, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("building chunker: %w", err)
	}

	rt := components{
		batcher: embedding.NewBatcher(embedder,
			embedding.WithBatchSize(cfg.EmbedBatchSize),
			embedding.WithBatchDelay(cfg.EmbedBatchDelay),
			embedding.WithBatchLogger(s.logger)),
		generator: generator,
		reconciler: content.NewReconciler(s.extractor,
			content.WithFastModePages(cfg.FastModePages),
			content.WithLogger(s.logger)),
		chunker: chunker,
	}
	rt.composer = chat.NewComposer(generator, s, s, s,
		chat.WithTopK(cfg.TopK),
		chat.WithTemperature(cfg.Temperature),
		chat.WithMaxTokens(cfg.MaxTokens),
		chat.WithLogger(s.logger))

	s.mu.Lock()
	s.rt = rt
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *Service) current() components {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rt
}

// Config returns the configuration currently in effect.
func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Library returns the paper library.
func (s *Service) Library() *library.Library {
	return s.library
}

// Rehydrate loads every persisted paper and chunk vector into the in-memory
// store.
func (s *Service) Rehydrate(ctx context.Context) error {
	docs, err := storage.AllAs[[]float32](ctx, s.db, storage.NamespaceEmbeddings)
	if err != nil {
		return fmt.Errorf("loading paper embeddings: %w", err)
	}
	chunkMap, err := storage.AllAs[semantic.ChunkEntry](ctx, s.db, storage.NamespaceChunks)
	if err != nil {
		return fmt.Errorf("loading chunk vectors: %w", err)
	}
	chunks := make([]semantic.ChunkEntry, 0, len(chunkMap))
	for _, c := range chunkMap {
		chunks = append(chunks, c)
	}
	s.store.Rehydrate(docs, chunks)
	s.logger.Debug().Int("papers", len(docs)).Int("chunks", len(chunks)).Msg("vector store rehydrated")
	return nil
}

// Marker returns the extraction marker of a paper, if it has one.
func (s *Service) Marker(ctx context.Context, paperID string) (content.Record, bool, error) {
	rec, err := storage.GetAs[content.Record](ctx, s.db, storage.NamespaceMarkers, paperID)
	if storage.IsNotFound(err) {
		return content.Record{}, false, nil
	}
	if err != nil {
		return content.Record{}, false, err
	}
	return rec, true, nil
}

// Text returns the reconciled full text stored for a paper.
func (s *Service) Text(ctx context.Context, paperID string) (content.Extracted, error) {
	return storage.GetAs[content.Extracted](ctx, s.db, storage.NamespaceTexts, paperID)
}

// ExtractAndIndex reconciles, chunks and embeds a paper, then writes its
// marker. Concurrent calls for the same paper share one run. Existing chunks
// are replaced only once the new ones are embedded.
func (s *Service) ExtractAndIndex(ctx context.Context, paper reference.Paper, opts content.Options) (content.Record, error) {
	if paper.ID == "" {
		return content.Record{}, fmt.Errorf("%w: paper has no id", ErrInvalidRequest)
	}
	v, err, _ := s.flight.Do(paper.ID, func() (any, error) {
		return s.extractAndIndex(ctx, paper, opts)
	})
	if err != nil {
		return content.Record{}, err
	}
	return v.(content.Record), nil
}

func (s *Service) extractAndIndex(ctx context.Context, paper reference.Paper, opts content.Options) (content.Record, error) {
	rt := s.current()
	if !embedding.IsConfigured(rt.batcher.Provider()) {
		return content.Record{}, embedding.ErrUnconfigured
	}

	pdfURL := paper.PDFURL
	if pdfURL == "" {
		pdfURL = arxiv.PDFURL(paper.ID)
	}

	extracted, err := rt.reconciler.Reconcile(ctx, pdfURL, paper, opts)
	if err != nil {
		return content.Record{}, fmt.Errorf("extracting %s: %w", paper.ID, err)
	}
	if err := s.db.Put(ctx, storage.NamespaceTexts, paper.ID, extracted); err != nil {
		return content.Record{}, fmt.Errorf("saving text of %s: %w", paper.ID, err)
	}

	chunks := rt.chunker.Chunk(extracted.FullText)
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = chunk.FormatForEmbedding(c, paper)
	}
	vectors, err := rt.batcher.EmbedBatch(ctx, inputs)
	if err != nil {
		return content.Record{}, fmt.Errorf("embedding chunks of %s: %w", paper.ID, err)
	}

	if _, err := s.db.DeletePrefix(ctx, storage.NamespaceChunks, paper.ID+"_chunk_"); err != nil {
		return content.Record{}, fmt.Errorf("clearing chunks of %s: %w", paper.ID, err)
	}
	s.store.RemovePaperChunks(paper.ID)
	for i, c := range chunks {
		entry := semantic.ChunkEntry{
			PaperID:    paper.ID,
			ChunkIndex: c.Index,
			PageNumber: c.PageNumber,
			Text:       c.Text,
			Vector:     vectors[i].Vector,
		}
		if err := s.db.Put(ctx, storage.NamespaceChunks, entry.ID(), entry); err != nil {
			return content.Record{}, fmt.Errorf("saving chunk %s: %w", entry.ID(), err)
		}
		s.store.PutChunk(entry)
	}

	rec := content.Record{
		ChunkCount:  len(chunks),
		ExtractedAt: s.now().UTC(),
		Source:      extracted.Source,
		HasFullPDF:  extracted.HasFullPDF,
	}
	if err := s.db.Put(ctx, storage.NamespaceMarkers, paper.ID, rec); err != nil {
		return content.Record{}, fmt.Errorf("saving marker of %s: %w", paper.ID, err)
	}

	s.logger.Info().
		Str("paper", paper.ID).
		Int("chunks", rec.ChunkCount).
		Str("source", string(rec.Source)).
		Bool("has_full_pdf", rec.HasFullPDF).
		Msg("paper indexed")
	return rec, nil
}

// Retrieve returns the k chunks of paperID most similar to query.
func (s *Service) Retrieve(ctx context.Context, paperID, query string, k int) ([]semantic.ChunkResult, error) {
	rt := s.current()
	vec, err := rt.batcher.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.store.QueryChunks(vec.Vector, paperID, k)
}

// PaperEmbeddingText is the text embedded for a whole paper.
func PaperEmbeddingText(p reference.Paper) string {
	return fmt.Sprintf("Title: %s\nAuthors: %s\nAbstract: %s",
		p.Title, reference.AuthorNames(p.Authors, ""), p.Abstract)
}

func (s *Service) embedPaper(ctx context.Context, rt components, p reference.Paper) error {
	vec, err := rt.batcher.Embed(ctx, PaperEmbeddingText(p))
	if err != nil {
		return fmt.Errorf("embedding paper %s: %w", p.ID, err)
	}
	if err := s.db.Put(ctx, storage.NamespaceEmbeddings, p.ID, vec.Vector); err != nil {
		return fmt.Errorf("saving embedding of %s: %w", p.ID, err)
	}
	s.store.Put(p.ID, vec.Vector, semantic.Metadata{"title": p.Title})
	return nil
}

// SaveResult reports what SavePaper did beyond storing the record.
type SaveResult struct {
	Paper      reference.Paper `json:"paper"`
	Embedded   bool            `json:"embedded"`
	Extraction *content.Record `json:"extraction,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// SavePaper stores p and, when an embedding provider is configured, embeds
// the paper and extracts its full text if it has no marker yet. Embedding and
// extraction failures are reported as warnings; only storage failures fail
// the call.
func (s *Service) SavePaper(ctx context.Context, p reference.Paper) (SaveResult, error) {
	if p.ID == "" {
		return SaveResult{}, fmt.Errorf("%w: paper has no id", ErrInvalidRequest)
	}
	saved, err := s.library.Save(ctx, p)
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{Paper: saved}

	rt := s.current()
	if !embedding.IsConfigured(rt.batcher.Provider()) {
		return result, nil
	}

	if err := s.embedPaper(ctx, rt, saved); err != nil {
		s.logger.Warn().Str("paper", saved.ID).Err(err).Msg("paper embedding failed")
		result.Warnings = append(result.Warnings, err.Error())
	} else {
		result.Embedded = true
	}

	_, indexed, err := s.Marker(ctx, saved.ID)
	if err != nil {
		return result, err
	}
	if !indexed {
		rec, err := s.ExtractAndIndex(ctx, saved, content.Options{})
		if err != nil {
			s.logger.Warn().Str("paper", saved.ID).Err(err).Msg("extraction on save failed")
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Extraction = &rec
		}
	}
	return result, nil
}

// SimilarPaper is a saved paper and its similarity to a search query.
type SimilarPaper struct {
	reference.Paper
	Similarity float32 `json:"similarity"`
}

// SearchSimilar ranks saved papers against query. Papers whose record is
// missing are skipped. A non-positive limit selects DefaultSearchLimit.
func (s *Service) SearchSimilar(ctx context.Context, query string, limit int) ([]SimilarPaper, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	rt := s.current()
	vec, err := rt.batcher.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	ranked, err := s.store.Query(vec.Vector, 0)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarPaper, 0, limit)
	for _, r := range ranked {
		if len(out) == limit {
			break
		}
		p, err := s.library.Get(ctx, r.ID)
		if errors.Is(err, library.ErrPaperNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, SimilarPaper{Paper: p, Similarity: r.Similarity})
	}
	return out, nil
}

// resolvePaper fills a paper given only by id from the library.
func (s *Service) resolvePaper(ctx context.Context, p reference.Paper) (reference.Paper, error) {
	if p.ID == "" {
		return reference.Paper{}, fmt.Errorf("%w: paper has no id", ErrInvalidRequest)
	}
	if p.Title != "" || p.Abstract != "" {
		return p, nil
	}
	return s.library.Get(ctx, p.ID)
}

// Answer replies to message about paper. A paper given only by id is looked
// up in the library.
func (s *Service) Answer(ctx context.Context, paper reference.Paper, message string, history []chat.Message) (chat.Reply, error) {
	if message == "" {
		return chat.Reply{}, fmt.Errorf("%w: empty message", ErrInvalidRequest)
	}
	p, err := s.resolvePaper(ctx, paper)
	if err != nil {
		return chat.Reply{}, err
	}
	return s.current().composer.Answer(ctx, message, p, history)
}

// Summarize returns a model-written summary of a saved paper.
func (s *Service) Summarize(ctx context.Context, paperID string) (string, error) {
	p, err := s.resolvePaper(ctx, reference.Paper{ID: paperID})
	if err != nil {
		return "", err
	}
	return s.current().composer.Summarize(ctx, p)
}

// Keywords returns model-suggested keywords for a saved paper.
func (s *Service) Keywords(ctx context.Context, paperID string) ([]string, error) {
	p, err := s.resolvePaper(ctx, reference.Paper{ID: paperID})
	if err != nil {
		return nil, err
	}
	return s.current().composer.Keywords(ctx, p)
}

// BackfillReport counts the work done by Reconfigure.
type BackfillReport struct {
	Embedded  int `json:"embedded"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
}

// Reconfigure replaces the providers with ones built from cfg, then embeds
// and extracts saved papers that lack a vector or a marker. Per-paper
// failures are logged and counted.
func (s *Service) Reconfigure(ctx context.Context, cfg config.Config) (BackfillReport, error) {
	if err := s.apply(cfg); err != nil {
		return BackfillReport{}, err
	}
	return s.backfill(ctx)
}

func (s *Service) backfill(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport
	rt := s.current()
	if !embedding.IsConfigured(rt.batcher.Provider()) {
		return report, nil
	}

	papers, err := s.library.List(ctx)
	if err != nil {
		return report, err
	}
	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !s.store.HasPaper(p.ID) {
			if err := s.embedPaper(ctx, rt, p); err != nil {
				s.logger.Warn().Str("paper", p.ID).Err(err).Msg("backfill embedding failed")
				report.Failed++
			} else {
				report.Embedded++
			}
		}
		_, indexed, err := s.Marker(ctx, p.ID)
		if err != nil {
			return report, err
		}
		if indexed {
			continue
		}
		if _, err := s.ExtractAndIndex(ctx, p, content.Options{}); err != nil {
			s.logger.Warn().Str("paper", p.ID).Err(err).Msg("backfill extraction failed")
			report.Failed++
		} else {
			report.Extracted++
		}
	}
	s.logger.Info().Int("embedded", report.Embedded).Int("extracted", report.Extracted).Int("failed", report.Failed).Msg("backfill finished")
	return report, nil
}

// SetCredential stores an API key for provider, persists the configuration
// and reconfigures the service.
func (s *Service) SetCredential(ctx context.Context, provider, apiKey string) (BackfillReport, error) {
	key, ok := config.CredentialKey(provider)
	if !ok {
		return BackfillReport{}, fmt.Errorf("%w: provider %q takes no API key", ErrInvalidRequest, provider)
	}
	cfg := s.Config()
	if err := cfg.Set(key, apiKey); err != nil {
		return BackfillReport{}, err
	}
	if s.saveSetting != nil {
		if err := s.saveSetting(key, apiKey); err != nil {
			return BackfillReport{}, fmt.Errorf("saving %s: %w", key, err)
		}
	}
	return s.Reconfigure(ctx, cfg)
}
