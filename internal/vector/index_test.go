package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableEmbedder answers from a fixed text -> vector table.
type tableEmbedder struct {
	table map[string][]float32
	calls int
	err   error
}

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.table[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func chunksOf(texts ...string) []Chunk {
	out := make([]Chunk, len(texts))
	off := 0
	for i, t := range texts {
		out[i] = Chunk{ID: i, Text: t, Start: off, End: off + len(t)}
		off += len(t)
	}
	return out
}

func buildFixture(t *testing.T) *Index {
	t.Helper()
	e := &tableEmbedder{table: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {0.7, 0.7, 0},
		"delta": {0, 0, 1},
	}}
	idx, err := Build(context.Background(), e, chunksOf("alpha", "beta", "gamma", "delta"))
	require.NoError(t, err)
	return idx
}

func TestBuildPreservesOrder(t *testing.T) {
	ids := []int{7, 3, 11, 0, 5}
	chunks := make([]Chunk, len(ids))
	table := map[string][]float32{}
	for i, id := range ids {
		text := fmt.Sprintf("chunk-%d", id)
		chunks[i] = Chunk{ID: id, Text: text}
		table[text] = []float32{float32(id), 1}
	}
	idx, err := Build(context.Background(), &tableEmbedder{table: table}, chunks)
	require.NoError(t, err)
	require.Equal(t, len(ids), idx.Len())
	for i, id := range ids {
		c, v := idx.At(i)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, float32(id), v[0])
	}
}

func TestBuildRejectsBlankChunk(t *testing.T) {
	e := &tableEmbedder{table: map[string][]float32{"a": {1}}}
	_, err := Build(context.Background(), e, []Chunk{{ID: 0, Text: "a"}, {ID: 1, Text: "  \n"}})
	require.ErrorIs(t, err, ErrBlankChunk)
	require.Zero(t, e.calls)
}

func TestBuildPropagatesEmbedderError(t *testing.T) {
	boom := errors.New("embedding backend down")
	idx, err := Build(context.Background(), &tableEmbedder{err: boom}, chunksOf("a"))
	require.ErrorIs(t, err, boom)
	require.Nil(t, idx)
}

func TestBuildRejectsRaggedVectors(t *testing.T) {
	e := &tableEmbedder{table: map[string][]float32{"a": {1, 0}, "b": {1, 0, 0}}}
	_, err := Build(context.Background(), e, chunksOf("a", "b"))
	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	require.Equal(t, 2, dm.Want)
	require.Equal(t, 3, dm.Got)
}

func TestCosineSimilarityBounds(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{-1, -2, -3},
		{0, 0, 0},
		{1e-8, 0, 0},
		{1e6, -3e5, 2},
		{0.3, 0.3, 0.3},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			s := CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, s, -1.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
	assert.InDelta(t, 1.0, CosineSimilarity(vectors[0], vectors[0]), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity(vectors[0], vectors[1]), 1e-6)
	assert.Equal(t, 0.0, CosineSimilarity(vectors[2], vectors[0]))
}

func TestSearchRanksAndIsDeterministic(t *testing.T) {
	idx := buildFixture(t)
	q := []float32{1, 0.1, 0}
	first, err := idx.Search(q, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 0, first[0].ChunkID)
	assert.Equal(t, 2, first[1].ChunkID)
	assert.Equal(t, 1, first[2].ChunkID)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
	second, err := idx.Search(q, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchTieBreaksByLowerID(t *testing.T) {
	e := &tableEmbedder{table: map[string][]float32{
		"x": {0, 1}, "y": {1, 0}, "z": {1, 0},
	}}
	chunks := []Chunk{{ID: 9, Text: "x"}, {ID: 4, Text: "z"}, {ID: 2, Text: "y"}}
	idx, err := Build(context.Background(), e, chunks)
	require.NoError(t, err)
	got, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, got[0].Similarity, got[1].Similarity)
	assert.Equal(t, 2, got[0].ChunkID)
	assert.Equal(t, 4, got[1].ChunkID)
}

func TestSearchKBound(t *testing.T) {
	idx := buildFixture(t)
	for _, k := range []int{1, 2, 4, 5, 100} {
		got, err := idx.Search([]float32{0, 0, 1}, k)
		require.NoError(t, err)
		assert.Len(t, got, int(math.Min(float64(k), 4)))
	}
	_, err := idx.Search([]float32{0, 0, 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearchDimensionMismatch(t *testing.T) {
	const n = 3
	chunks := make([]Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = Chunk{ID: i, Text: fmt.Sprintf("c%d", i)}
		vectors[i] = make([]float32, 1536)
		vectors[i][i] = 1
	}
	idx, err := New(chunks, vectors)
	require.NoError(t, err)
	_, err = idx.Search(make([]float32, 768), 2)
	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 1536, dm.Want)
	assert.Equal(t, 768, dm.Got)
}

func TestSearchEmptyIndex(t *testing.T) {
	e := &tableEmbedder{}
	idx, err := Build(context.Background(), e, nil)
	require.NoError(t, err)
	require.Zero(t, e.calls)
	_, err = idx.Search([]float32{1}, 1)
	require.ErrorIs(t, err, ErrEmptyIndex)
}

func TestLiteralRoundTrip(t *testing.T) {
	v := []float32{0.25, -1, 3.5e-7}
	got, err := ParseLiteral(ToLiteral(v))
	require.NoError(t, err)
	require.Equal(t, v, got)

	_, err = ParseLiteral("0.1,0.2")
	require.Error(t, err)
}
