package retrieval

import (
	"context"
	"errors"
	"testing"

	"papereval/internal/config"
	"papereval/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedQuery struct {
	vec   []float32
	err   error
	calls int
}

func (f *fixedQuery) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

// paperIndex lays out ten 100-rune chunks. Vectors put chunk i at a
// decreasing angle from the query axis so similarity falls with i.
func paperIndex(t *testing.T, texts map[int]string) *vector.Index {
	t.Helper()
	chunks := make([]vector.Chunk, 10)
	vectors := make([][]float32, 10)
	for i := range chunks {
		text := "plain prose without anything special"
		if s, ok := texts[i]; ok {
			text = s
		}
		chunks[i] = vector.Chunk{ID: i, Text: text, Start: i * 100, End: (i + 1) * 100}
		vectors[i] = []float32{1, float32(i) * 0.1}
	}
	idx, err := vector.New(chunks, vectors)
	require.NoError(t, err)
	return idx
}

func ids(ps []vector.RankedPassage) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ChunkID
	}
	return out
}

func TestResolveUnregisteredTypeMatchesSearch(t *testing.T) {
	idx := paperIndex(t, map[int]string{3: "p < 0.05 with n = 40"})
	q := &fixedQuery{vec: []float32{0.2, 1}}
	r := NewResolver(q, DefaultRegistry(config.DefaultRetrieval().Heuristics), Options{OverFetch: 3})

	for _, qt := range []QueryType{"made_up", Limitations, Significance, Generic} {
		got, err := r.Resolve(context.Background(), idx, "anything", qt, 4)
		require.NoError(t, err)
		want, err := idx.Search(q.vec, 4)
		require.NoError(t, err)
		assert.Equal(t, want, got, "type %s", qt)
	}
}

func TestResolveResearchQuestionFavoursEarlyChunks(t *testing.T) {
	idx := paperIndex(t, nil)
	// Query is closest to the last chunks.
	q := &fixedQuery{vec: []float32{0.1, 1}}
	r := NewResolver(q, DefaultRegistry(config.Heuristics{PositionalCutoff: 0.2, PositionalBoost: 10}), Options{OverFetch: 10})

	plain, err := r.Resolve(context.Background(), idx, "what is asked", Generic, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 8, 7}, ids(plain))

	boosted, err := r.Resolve(context.Background(), idx, "what is the research question", ResearchQuestion, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 9}, ids(boosted))
	assert.Greater(t, boosted[0].Score, boosted[0].Similarity)
}

func TestResolveStatisticsBoost(t *testing.T) {
	idx := paperIndex(t, map[int]string{5: "The effect held (p < 0.01, 95% CI 1.2 to 2.3, n = 120)."})
	q := &fixedQuery{vec: []float32{0.1, 1}}
	r := NewResolver(q, DefaultRegistry(config.Heuristics{StatisticsBoost: 1.5}), Options{OverFetch: 2})

	got, err := r.Resolve(context.Background(), idx, "which tests were run", Statistics, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got[0].ChunkID)
	assert.InDelta(t, got[0].Similarity*1.5, got[0].Score, 1e-12)
}

func TestResolveOverFetchIsBounded(t *testing.T) {
	idx := paperIndex(t, map[int]string{0: "p < 0.001"})
	q := &fixedQuery{vec: []float32{0.1, 1}}
	// Chunk 0 ranks last by similarity; a pool of k*2 = 4 never reaches it.
	r := NewResolver(q, DefaultRegistry(config.Heuristics{StatisticsBoost: 100}), Options{OverFetch: 2})
	got, err := r.Resolve(context.Background(), idx, "stats", Statistics, 2)
	require.NoError(t, err)
	assert.NotContains(t, ids(got), 0)

	r = NewResolver(q, DefaultRegistry(config.Heuristics{StatisticsBoost: 100}), Options{OverFetch: 50})
	got, err = r.Resolve(context.Background(), idx, "stats", Statistics, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got[0].ChunkID)
	assert.Len(t, got, 2)
}

func TestResolveCustomHeuristic(t *testing.T) {
	idx := paperIndex(t, nil)
	reg := NewRegistry()
	reg.Register("reverse", HeuristicFunc(func(c Candidate) float64 { return -c.Similarity }))
	r := NewResolver(&fixedQuery{vec: []float32{0.1, 1}}, reg, Options{OverFetch: 10})
	got, err := r.Resolve(context.Background(), idx, "q", "reverse", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids(got))
}

func TestResolveErrors(t *testing.T) {
	boom := errors.New("embedding generation failed")
	idx := paperIndex(t, nil)
	r := NewResolver(&fixedQuery{err: boom}, nil, Options{})
	_, err := r.Resolve(context.Background(), idx, "q", Generic, 2)
	require.ErrorIs(t, err, boom)

	empty, err := vector.New(nil, nil)
	require.NoError(t, err)
	q := &fixedQuery{vec: []float32{1}}
	_, err = NewResolver(q, nil, Options{}).Resolve(context.Background(), empty, "q", Generic, 2)
	require.ErrorIs(t, err, vector.ErrEmptyIndex)
	require.Zero(t, q.calls)

	_, err = NewResolver(&fixedQuery{vec: []float32{1, 2, 3}}, nil, Options{}).Resolve(context.Background(), idx, "q", Generic, 2)
	var dm *vector.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
}

func TestResolveDefaultK(t *testing.T) {
	idx := paperIndex(t, nil)
	r := NewResolver(&fixedQuery{vec: []float32{1, 0}}, nil, Options{DefaultK: 4})
	got, err := r.Resolve(context.Background(), idx, "q", Generic, 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestInferQueryType(t *testing.T) {
	cases := map[string]QueryType{
		"What methods does this paper use?":                      Methodology,
		"How does the paper analyze data?":                       Statistics,
		"What limitations or threats to validity are discussed?": Limitations,
		"How reliable are the results in this paper?":            Results,
		"What is the main contribution of this paper?":           ResearchQuestion,
		"What is the potential impact of this research?":         Significance,
		"How does this paper compare to related work?":           Generic,
	}
	for q, want := range cases {
		assert.Equal(t, want, InferQueryType(q), q)
	}
}

func TestHydrate(t *testing.T) {
	idx := paperIndex(t, map[int]string{2: "second"})
	ps := Hydrate(idx, []vector.RankedPassage{{ChunkID: 2, Similarity: 0.5, Score: 0.5}, {ChunkID: 99}})
	require.Len(t, ps, 1)
	assert.Equal(t, "second", ps[0].Chunk.Text)
}
