// Package vector holds the per-document semantic index: chunk texts paired
// with their embeddings, searched by cosine similarity.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

const epsilon = 1e-10

// Chunk is a contiguous segment of a document. Start and End are rune offsets.
type Chunk struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Start int    `json:"start_offset"`
	End   int    `json:"end_offset"`
	Title string `json:"title,omitempty"`
}

// RankedPassage is one search hit. Score equals Similarity until a
// heuristic adjusts it.
type RankedPassage struct {
	ChunkID    int     `json:"chunk_id"`
	Similarity float64 `json:"similarity_score"`
	Score      float64 `json:"final_score"`
}

// Embedder turns texts into vectors, one per text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is immutable once built and safe for concurrent readers.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
	norms   []float64
	pos     map[int]int
	dim     int
	docLen  int
}

// Build embeds every chunk and returns the finished index. Any embedding
// failure fails the whole build.
func Build(ctx context.Context, e Embedder, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return &Index{pos: map[int]int{}}, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("chunk %d: %w", c.ID, ErrBlankChunk)
		}
		texts[i] = c.Text
	}
	if _, err := positions(chunks); err != nil {
		return nil, err
	}
	vectors, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return New(chunks, vectors)
}

// New assembles an index from chunks and vectors that were embedded earlier.
func New(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	pos, err := positions(chunks)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		chunks:  append([]Chunk(nil), chunks...),
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float64, len(vectors)),
		pos:     pos,
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		}
		if len(v) == 0 || len(v) != idx.dim {
			return nil, &DimensionMismatchError{Want: idx.dim, Got: len(v)}
		}
		idx.vectors[i] = append([]float32(nil), v...)
		idx.norms[i] = norm(v)
		if chunks[i].End > idx.docLen {
			idx.docLen = chunks[i].End
		}
	}
	return idx, nil
}

func positions(chunks []Chunk) (map[int]int, error) {
	pos := make(map[int]int, len(chunks))
	for i, c := range chunks {
		if _, dup := pos[c.ID]; dup {
			return nil, fmt.Errorf("duplicate chunk id %d", c.ID)
		}
		pos[c.ID] = i
	}
	return pos, nil
}

// Len is the number of indexed chunks.
func (x *Index) Len() int { return len(x.chunks) }

// Dim is the shared vector length, zero for an empty index.
func (x *Index) Dim() int { return x.dim }

// DocumentLength is the largest chunk end offset.
func (x *Index) DocumentLength() int { return x.docLen }

// At returns the i-th chunk in document order and its vector.
func (x *Index) At(i int) (Chunk, []float32) {
	return x.chunks[i], x.vectors[i]
}

// Chunks returns a copy of the chunks in document order.
func (x *Index) Chunks() []Chunk {
	return append([]Chunk(nil), x.chunks...)
}

// Chunk looks a chunk up by id.
func (x *Index) Chunk(id int) (Chunk, bool) {
	i, ok := x.pos[id]
	if !ok {
		return Chunk{}, false
	}
	return x.chunks[i], true
}

// Search ranks every chunk against query and returns the best min(k, Len()).
func (x *Index) Search(query []float32, k int) ([]RankedPassage, error) {
	if len(x.chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != x.dim {
		return nil, &DimensionMismatchError{Want: x.dim, Got: len(query)}
	}
	qn := norm(query)
	out := make([]RankedPassage, len(x.chunks))
	for i, v := range x.vectors {
		sim := dot(query, v) / ((qn + epsilon) * (x.norms[i] + epsilon))
		out[i] = RankedPassage{ChunkID: x.chunks[i].ID, Similarity: sim, Score: sim}
	}
	SortPassages(out)
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// SortPassages orders by Score descending, lower chunk id first on ties.
func SortPassages(ps []RankedPassage) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Score != ps[j].Score {
			return ps[i].Score > ps[j].Score
		}
		return ps[i].ChunkID < ps[j].ChunkID
	})
}

// CosineSimilarity of a and b, in [-1, 1]. Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return dot(a, b) / ((norm(a) + epsilon) * (norm(b) + epsilon))
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}
