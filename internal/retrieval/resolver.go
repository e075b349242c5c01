// Package retrieval answers typed queries against a semantic index: it
// over-fetches by similarity, re-scores with the heuristic registered for the
// query type and keeps the best k.
package retrieval

import (
	"context"
	"fmt"

	"papereval/internal/vector"
)

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options tunes a Resolver. Zero values select k=5 and a 2x over-fetch.
type Options struct {
	DefaultK  int
	OverFetch int
}

// Resolver ranks index passages for typed queries.
type Resolver struct {
	embedder QueryEmbedder
	registry *Registry
	opts     Options
}

// NewResolver falls back to an empty registry when r is nil, so every query
// type ranks by similarity alone.
func NewResolver(e QueryEmbedder, r *Registry, opts Options) *Resolver {
	if opts.DefaultK <= 0 {
		opts.DefaultK = 5
	}
	if opts.OverFetch < 1 {
		opts.OverFetch = 2
	}
	if r == nil {
		r = NewRegistry()
	}
	return &Resolver{embedder: e, registry: r, opts: opts}
}

// Resolve returns at most k passages for text, ranked by the final score of
// qt's heuristic. k <= 0 selects the configured default.
func (r *Resolver) Resolve(ctx context.Context, idx *vector.Index, text string, qt QueryType, k int) ([]vector.RankedPassage, error) {
	if idx.Len() == 0 {
		return nil, vector.ErrEmptyIndex
	}
	if k <= 0 {
		k = r.opts.DefaultK
	}
	q, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	expanded := min(k*r.opts.OverFetch, idx.Len())
	pool, err := idx.Search(q, max(expanded, k))
	if err != nil {
		return nil, err
	}
	h := r.registry.Lookup(qt)
	for i := range pool {
		c, _ := idx.Chunk(pool[i].ChunkID)
		pool[i].Score = h.Score(Candidate{
			Chunk:          c,
			Similarity:     pool[i].Similarity,
			DocumentLength: idx.DocumentLength(),
		})
	}
	vector.SortPassages(pool)
	if len(pool) > k {
		pool = pool[:k]
	}
	return pool, nil
}

// Passage is a ranked hit with its chunk attached.
type Passage struct {
	vector.RankedPassage
	Chunk vector.Chunk `json:"chunk"`
}

func Hydrate(idx *vector.Index, ranked []vector.RankedPassage) []Passage {
	out := make([]Passage, 0, len(ranked))
	for _, r := range ranked {
		c, ok := idx.Chunk(r.ChunkID)
		if !ok {
			continue
		}
		out = append(out, Passage{RankedPassage: r, Chunk: c})
	}
	return out
}
