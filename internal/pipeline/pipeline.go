// Package pipeline assembles the embedding client, query resolver and
// evaluator from configuration. The worker and the CLI share it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"papereval/internal/config"
	"papereval/internal/embedding"
	"papereval/internal/evaluation"
	"papereval/internal/providers"
	"papereval/internal/retrieval"
	"papereval/internal/vector"
)

type Pipeline struct {
	Embedder  *embedding.Client
	Resolver  *retrieval.Resolver
	LLM       *providers.Caller
	Evaluator *evaluation.Evaluator
}

type Options struct {
	// OnBatch reports embedding progress while an index is built.
	OnBatch func(done, total int)
	// Audit observes every LLM call.
	Audit  func(ctx context.Context, rec providers.CallRecord)
	Logger *slog.Logger
}

func New(cfg config.Config, embed providers.EmbeddingProvider, llm providers.LLMProvider, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := cfg.Retrieval
	emb := embedding.NewClient(embed, embedding.Options{
		Operation:    "embed",
		MaxBatchSize: r.MaxBatchSize,
		Concurrency:  r.EmbedConcurrency,
		Timeout:      r.EmbedTimeout,
		Dimension:    cfg.EmbedDim,
		Retry:        r.EmbedRetry,
		OnBatch:      opts.OnBatch,
		Logger:       log,
	})
	resolver := retrieval.NewResolver(emb, retrieval.DefaultRegistry(r.Heuristics), retrieval.Options{
		DefaultK:  r.TopK,
		OverFetch: r.OverFetch,
	})
	caller := providers.NewCaller(llm, r.LLM, log)
	if opts.Audit != nil {
		caller.WithAudit(opts.Audit)
	}
	return &Pipeline{
		Embedder: emb,
		Resolver: resolver,
		LLM:      caller,
		Evaluator: evaluation.New(resolver, caller, evaluation.Options{
			TopK:             r.TopK,
			QueryConcurrency: r.QueryConcurrency,
			TailoredCriteria: r.LLM.TailoredCriteria,
			Logger:           log,
		}),
	}
}

// BuildIndex embeds chunks and returns the paper's semantic index.
func (p *Pipeline) BuildIndex(ctx context.Context, chunks []vector.Chunk) (*vector.Index, error) {
	idx, err := vector.Build(ctx, p.Embedder, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

// EmbeddingVersion names the model that produced a set of vectors so stored
// chunks are only ever compared with queries from the same model.
func EmbeddingVersion(providerRef string, dim int) string {
	return fmt.Sprintf("%s:%d", providerRef, dim)
}
