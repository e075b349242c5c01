// Package embedding batches texts into bounded embedding requests, retries
// transient failures and reassembles the vectors in input order.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"papereval/internal/providers"
	"papereval/internal/retry"

	"golang.org/x/sync/errgroup"
)

// ErrEmbeddingGeneration matches every GenerationError via errors.Is.
var ErrEmbeddingGeneration = errors.New("embedding generation failed")

// GenerationError is returned once a batch has used up its retry budget or hit
// a failure that retrying cannot fix.
type GenerationError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("embedding batch %d failed after %d attempt(s): %v", e.Batch, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrEmbeddingGeneration }

type Options struct {
	Operation    string
	MaxBatchSize int
	Concurrency  int
	Timeout      time.Duration
	Dimension    int
	Retry        retry.Policy
	// OnBatch is called after each batch completes with the number of finished batches.
	OnBatch func(done, total int)
	Logger  *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Operation:    "embed",
		MaxBatchSize: 100,
		Concurrency:  1,
		Timeout:      60 * time.Second,
		Retry:        retry.DefaultPolicy(),
	}
}

type Client struct {
	provider providers.EmbeddingProvider
	opts     Options
	log      *slog.Logger
	lastInfo atomic.Value
}

func NewClient(p providers.EmbeddingProvider, opts Options) *Client {
	def := DefaultOptions()
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = def.MaxBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	if opts.Operation == "" {
		opts.Operation = def.Operation
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{provider: p, opts: opts, log: log.With("component", "embedding")}
}

// ProviderInfo describes the provider that served the most recent batch.
func (c *Client) ProviderInfo() providers.ProviderInfo {
	info, _ := c.lastInfo.Load().(providers.ProviderInfo)
	return info
}

// Embed returns one vector per text, in the same order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	total := (len(texts) + c.opts.MaxBatchSize - 1) / c.opts.MaxBatchSize
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for b := 0; b < total; b++ {
		start := b * c.opts.MaxBatchSize
		end := min(start+c.opts.MaxBatchSize, len(texts))
		batch := b
		g.Go(func() error {
			vecs, err := c.embedBatch(gctx, batch, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			n := int(done.Add(1))
			if c.opts.OnBatch != nil {
				c.opts.OnBatch(n, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single text as a one-item batch.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embedBatch(ctx context.Context, batch int, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := retry.Do(ctx, c.opts.Retry, retryable(ctx), func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
		got, info, err := c.provider.Embed(callCtx, providers.EmbedRequest{
			Operation: c.opts.Operation,
			Inputs:    texts,
			Dimension: c.opts.Dimension,
		})
		if err == nil {
			err = validate(got, len(texts))
		}
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				err = fmt.Errorf("embedding request timed out after %s: %w", c.opts.Timeout, context.DeadlineExceeded)
			}
			c.log.Warn("embedding attempt failed",
				"batch", batch, "attempt", attempt, "size", len(texts),
				"provider", info.Name, "error_type", providers.ClassifyError(err), "err", err)
			return err
		}
		c.lastInfo.Store(info)
		vecs = got
		return nil
	})
	if err != nil {
		var ex *retry.ExhaustedError
		attempts := 0
		if errors.As(err, &ex) {
			attempts, err = ex.Attempts, ex.Err
		}
		return nil, &GenerationError{Batch: batch, Attempts: attempts, Err: err}
	}
	return vecs, nil
}

// retryable keeps retrying timeouts of a single attempt but stops once the
// caller's own context is done.
func retryable(parent context.Context) func(error) bool {
	return func(err error) bool {
		if parent.Err() != nil {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		return providers.Retryable(err)
	}
}

func validate(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("malformed embedding response: got %d vectors for %d inputs", len(vecs), want)
	}
	dim := -1
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("malformed embedding response: empty vector at %d", i)
		}
		if dim >= 0 && len(v) != dim {
			return fmt.Errorf("malformed embedding response: vector %d has %d dims, want %d", i, len(v), dim)
		}
		dim = len(v)
	}
	return nil
}
