package embedcache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"papereval/internal/embedding"
	"papereval/internal/providers"
	"papereval/internal/retry"

	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	inputs [][]string
}

func (c *countingProvider) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	c.inputs = append(c.inputs, req.Inputs)
	out := make([][]float32, len(req.Inputs))
	for i, in := range req.Inputs {
		out[i] = []float32{float32(len(in)), 0.5}
	}
	return out, providers.ProviderInfo{Name: "counting"}, nil
}

func TestProviderServesHitsFromCache(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	upstream := &countingProvider{}
	p := Wrap(upstream, store, "test-model")
	ctx := context.Background()

	first, _, err := p.Embed(ctx, providers.EmbedRequest{Inputs: []string{"a", "bb"}, Dimension: 2})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0.5}, {2, 0.5}}, first)

	second, info, err := p.Embed(ctx, providers.EmbedRequest{Inputs: []string{"bb", "ccc", "a"}, Dimension: 2})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2, 0.5}, {3, 0.5}, {1, 0.5}}, second)
	require.Equal(t, "counting", info.Name)
	require.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, upstream.inputs)

	third, info, err := p.Embed(ctx, providers.EmbedRequest{Inputs: []string{"ccc"}, Dimension: 2})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{3, 0.5}}, third)
	require.Equal(t, "cache", info.Name)
	require.Len(t, upstream.inputs, 2)
}

func TestCacheKeyIncludesModel(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("m1", 2, []string{"x"}, [][]float32{{1, 2}}))
	got, err := store.Lookup("m2", 2, []string{"x"})
	require.NoError(t, err)
	require.Nil(t, got[0])
	got, err = store.Lookup("m1", 2, []string{"x"})
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, got[0])
}

// scriptedProvider answers call n with responses[n], repeating the last one.
type scriptedProvider struct {
	calls     int
	responses [][][]float32
}

func (s *scriptedProvider) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	r := s.responses[min(s.calls, len(s.responses)-1)]
	s.calls++
	return r, providers.ProviderInfo{Name: "scripted"}, nil
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMalformedResponseIsRetriedUpstream(t *testing.T) {
	store := openStore(t)
	up := &scriptedProvider{responses: [][][]float32{
		{{1, 2}, {3}},
		{{1, 2}, {3, 4}},
	}}
	client := embedding.NewClient(Wrap(up, store, "m"), embedding.Options{
		Dimension: 2,
		Retry:     retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	got, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 2}, {3, 4}}, got)
	require.Equal(t, 2, up.calls)

	cached, err := store.Lookup("m", 2, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 2}, {3, 4}}, cached)
}

func TestMalformedResponseIsNotCached(t *testing.T) {
	cases := map[string][][]float32{
		"short":  {{1, 2}},
		"empty":  {{1, 2}, {}},
		"ragged": {{1, 2}, {3}},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			store := openStore(t)
			p := Wrap(&scriptedProvider{responses: [][][]float32{resp}}, store, "m")

			_, _, err := p.Embed(context.Background(), providers.EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 2})
			require.Error(t, err)
			require.Contains(t, err.Error(), "malformed embedding response")

			cached, err := store.Lookup("m", 2, []string{"a", "b"})
			require.NoError(t, err)
			require.Equal(t, [][]float32{nil, nil}, cached)
		})
	}
}

func TestFreshVectorsMustMatchCachedDimension(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Put("m", 0, []string{"a"}, [][]float32{{1, 2, 3}}))
	p := Wrap(&scriptedProvider{responses: [][][]float32{{{4, 5}}}}, store, "m")

	_, _, err := p.Embed(context.Background(), providers.EmbedRequest{Inputs: []string{"a", "b"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "vector 0 has 2 dims, want 3")
}
