package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/matsen/paperchat/internal/logging"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
)

// Default batching parameters.
const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 100 * time.Millisecond
)

// Batcher embeds many texts through a Provider. Texts are embedded in
// fixed-size groups; a group's members are requested concurrently and groups
// run one after another with a delay in between.
type Batcher struct {
	provider Provider
	size     int
	delay    time.Duration
	logger   *log.Logger
}

// BatchOption configures a Batcher.
type BatchOption func(*Batcher)

// WithBatchSize sets the group size.
func WithBatchSize(n int) BatchOption {
	return func(b *Batcher) {
		if n > 0 {
			b.size = n
		}
	}
}

// WithBatchDelay sets the pause between groups.
func WithBatchDelay(d time.Duration) BatchOption {
	return func(b *Batcher) {
		if d >= 0 {
			b.delay = d
		}
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *log.Logger) BatchOption {
	return func(b *Batcher) {
		b.logger = l
	}
}

// NewBatcher creates a Batcher over p.
func NewBatcher(p Provider, opts ...BatchOption) *Batcher {
	b := &Batcher{
		provider: p,
		size:     DefaultBatchSize,
		delay:    DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDiscard(b.logger)
	return b
}

// Provider returns the underlying provider.
func (b *Batcher) Provider() Provider {
	return b.provider
}

// Embed embeds a single text.
func (b *Batcher) Embed(ctx context.Context, text string) (Embedding, error) {
	if !IsConfigured(b.provider) {
		return Embedding{}, ErrUnconfigured
	}
	return b.provider.Embed(ctx, text)
}

// EmbedBatch returns one embedding per text, in input order. Any failure
// fails the whole call and no embeddings are returned.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if !IsConfigured(b.provider) {
		return nil, ErrUnconfigured
	}

	out := make([]Embedding, len(texts))
	groups := (len(texts) + b.size - 1) / b.size

	for g := 0; g < groups; g++ {
		if g > 0 && b.delay > 0 {
			if err := sleep(ctx, b.delay); err != nil {
				return nil, err
			}
		}

		start := g * b.size
		end := min(start+b.size, len(texts))

		eg, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			eg.Go(func() error {
				emb, err := b.provider.Embed(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("embedding text %d: %w", i, err)
				}
				out[i] = emb
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		b.logger.Debug().Int("group", g+1).Int("groups", groups).Int("done", end).Msg("embedded batch group")
	}

	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
