// Package embedcache persists embeddings in a local bbolt file so repeated
// runs over the same paper skip the remote embedding call.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"papereval/internal/providers"

	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(model string, dim int, text string) []byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00", model, dim)
	h.Write([]byte(text))
	return h.Sum(nil)
}

// Lookup returns the cached vector for each text, nil where absent.
func (s *Store) Lookup(model string, dim int, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for i, t := range texts {
			if raw := b.Get(key(model, dim, t)); len(raw) >= 4 {
				out[i] = decode(raw)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) Put(model string, dim int, texts []string, vectors [][]float32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for i, t := range texts {
			if err := b.Put(key(model, dim, t), encode(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func encode(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decode(raw []byte) []float32 {
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}

// Provider serves cache hits locally and forwards only the misses.
type Provider struct {
	next  providers.EmbeddingProvider
	store *Store
	model string
}

// Wrap caches next under model, which should name the upstream embedding model.
func Wrap(next providers.EmbeddingProvider, store *Store, model string) *Provider {
	return &Provider{next: next, store: store, model: model}
}

func (p *Provider) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	cached, err := p.store.Lookup(p.model, req.Dimension, req.Inputs)
	if err != nil {
		return nil, providers.ProviderInfo{}, fmt.Errorf("read embedding cache: %w", err)
	}
	var missIdx []int
	var missTexts []string
	for i, v := range cached {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, req.Inputs[i])
		}
	}
	info := providers.ProviderInfo{Name: "cache", Model: p.model}
	if len(missTexts) == 0 {
		return cached, info, nil
	}
	sub := req
	sub.Inputs = missTexts
	fresh, info, err := p.next.Embed(ctx, sub)
	if err != nil {
		return nil, info, err
	}
	if err := checkFresh(fresh, len(missTexts), hitDim(cached)); err != nil {
		return nil, info, err
	}
	for j, i := range missIdx {
		cached[i] = fresh[j]
	}
	if err := p.store.Put(p.model, req.Dimension, missTexts, fresh); err != nil {
		return nil, info, fmt.Errorf("write embedding cache: %w", err)
	}
	return cached, info, nil
}

func hitDim(cached [][]float32) int {
	for _, v := range cached {
		if v != nil {
			return len(v)
		}
	}
	return 0
}

// checkFresh rejects upstream answers that must not reach the store: a wrong
// vector count, empty vectors, or dimensions that disagree with each other
// or with the cached hits (dim > 0).
func checkFresh(fresh [][]float32, want, dim int) error {
	if len(fresh) != want {
		return fmt.Errorf("malformed embedding response: got %d vectors for %d inputs", len(fresh), want)
	}
	for i, v := range fresh {
		if len(v) == 0 {
			return fmt.Errorf("malformed embedding response: empty vector at %d", i)
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("malformed embedding response: vector %d has %d dims, want %d", i, len(v), dim)
		}
	}
	return nil
}
