package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"papereval/internal/config"
	"papereval/internal/embedcache"
	"papereval/internal/evaluation"
	"papereval/internal/paper"
	"papereval/internal/pipeline"
	"papereval/internal/providers"

	"github.com/schollz/progressbar/v3"
)

// session holds one paper indexed in memory together with the pipeline
// that built it.
type session struct {
	pipe  *pipeline.Pipeline
	paper evaluation.Paper
	cache *embedcache.Store
}

func (s *session) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

// openSession fetches src and builds its index. Progress over embedding
// batches is drawn on progress when it is non-nil.
func openSession(ctx context.Context, cfg config.Config, log *slog.Logger, src string, progress io.Writer) (*session, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	embed, ref := pm.EmbedProviderByIndex(pm.PreferredEmbedOrder()[0])
	var cache *embedcache.Store
	if cfg.EmbedCachePath != "" {
		cache, err = embedcache.Open(cfg.EmbedCachePath)
		if err != nil {
			return nil, err
		}
		embed = embedcache.Wrap(embed, cache, ref.Raw)
	}
	closeCache := func() {
		if cache != nil {
			cache.Close()
		}
	}

	fetcher := paper.NewFetcher(filepath.Join(cfg.DataInRoot, "papers"), cfg.FetchTimeout)
	doc, err := fetcher.Fetch(ctx, src)
	if err != nil {
		closeCache()
		return nil, err
	}
	text, err := paper.ExtractText(doc.Path)
	if err != nil {
		closeCache()
		return nil, fmt.Errorf("extract %s: %w", src, err)
	}
	log.Debug("paper loaded", "paper_id", doc.PaperID, "embed_provider", ref.Raw)

	s, err := buildSession(ctx, cfg, log, embed, pm.LLM(), evaluation.Paper{ID: doc.PaperID, URL: src, Text: text}, progress)
	if err != nil {
		closeCache()
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// buildSession chunks p.Text and embeds it into p.Index.
func buildSession(ctx context.Context, cfg config.Config, log *slog.Logger, embed providers.EmbeddingProvider, llm providers.LLMProvider, p evaluation.Paper, progress io.Writer) (*session, error) {
	if p.Title == "" {
		p.Title, _ = paper.Metadata(p.Text)
	}
	chunks := paper.Chunk(p.Text, cfg.ChunkSize, cfg.ChunkOverlap)
	bar := &batchProgress{out: progress}
	pipe := pipeline.New(cfg, embed, llm, pipeline.Options{OnBatch: bar.update, Logger: log})
	idx, err := pipe.BuildIndex(ctx, chunks)
	bar.stop()
	if err != nil {
		return nil, err
	}
	log.Debug("index built", "paper_id", p.ID, "chunks", idx.Len(), "dim", idx.Dim())
	p.Index = idx
	return &session{pipe: pipe, paper: p}, nil
}

// batchProgress draws embedding progress until stop is called. Later query
// embeddings go through the same client and are ignored.
type batchProgress struct {
	mu      sync.Mutex
	out     io.Writer
	bar     *progressbar.ProgressBar
	stopped bool
}

func (p *batchProgress) update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil || p.stopped {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}
	_ = p.bar.Set(done)
}

func (p *batchProgress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.Finish()
	}
}
