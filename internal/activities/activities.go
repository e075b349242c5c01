package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"papereval/internal/analysis"
	"papereval/internal/config"
	"papereval/internal/embedcache"
	"papereval/internal/evaluation"
	"papereval/internal/models"
	"papereval/internal/paper"
	"papereval/internal/pipeline"
	"papereval/internal/providers"
	"papereval/internal/storage"
	"papereval/internal/util"
	"papereval/internal/vector"

	"go.temporal.io/sdk/temporal"
)

type Activities struct {
	cfg          config.Config
	log          *slog.Logger
	paperRepo    *storage.PaperRepo
	chunkRepo    *storage.ChunkRepo
	evalRepo     *storage.EvaluationRepo
	llmAuditRepo *storage.LLMAuditRepo
	providers    *providers.Manager
	fetcher      *paper.Fetcher
	cache        *embedcache.Store
}

func New(cfg config.Config, db *storage.DB, logger *slog.Logger) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Activities{
		cfg:          cfg,
		log:          logger,
		paperRepo:    storage.NewPaperRepo(db),
		chunkRepo:    storage.NewChunkRepo(db),
		evalRepo:     storage.NewEvaluationRepo(db),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		providers:    pm,
		fetcher:      paper.NewFetcher(filepath.Join(cfg.DataInRoot, "papers"), cfg.FetchTimeout),
	}
	if cfg.EmbedCachePath != "" {
		store, err := embedcache.Open(cfg.EmbedCachePath)
		if err != nil {
			return nil, err
		}
		a.cache = store
	}
	return a, nil
}

func (a *Activities) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

func (a *Activities) UpdateEvaluationStatusActivity(ctx context.Context, in UpdateEvaluationStatusInput) error {
	return a.evalRepo.UpdateStatus(ctx, in.EvaluationID, in.Status, in.PaperID, in.FailReason)
}

func (a *Activities) FetchPaperActivity(ctx context.Context, in FetchPaperInput) (FetchPaperOutput, error) {
	doc, err := a.fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return FetchPaperOutput{}, err
	}
	return FetchPaperOutput{PaperID: doc.PaperID, Path: doc.Path, SizeBytes: doc.Size}, nil
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	_ = ctx
	text, err := paper.ExtractText(in.PaperPath)
	if err != nil {
		if errors.Is(err, util.ErrNoExtractableText) {
			return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "NoExtractableText", err)
		}
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{Text: text}, nil
}

func (a *Activities) ExtractMetadataActivity(ctx context.Context, in ExtractMetadataInput) (ExtractMetadataOutput, error) {
	_ = ctx
	title, authors := paper.Metadata(in.Text)
	abstract, _ := analysis.ExtractAbstract(in.Text)
	return ExtractMetadataOutput{Title: title, Authors: authors, Abstract: abstract}, nil
}

func (a *Activities) UpdatePaperStatusActivity(ctx context.Context, in UpdatePaperStatusInput) error {
	return a.paperRepo.UpsertPaper(ctx, models.Paper{
		PaperID:    in.PaperID,
		SourceURL:  in.SourceURL,
		Filename:   in.Filename,
		Title:      in.Title,
		Authors:    in.Authors,
		Abstract:   in.Abstract,
		SizeBytes:  in.SizeBytes,
		Status:     in.Status,
		FailReason: in.FailReason,
	})
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.ChunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.cfg.ChunkOverlap
	}
	chunks := paper.Chunk(in.Text, in.ChunkSize, in.ChunkOverlap)
	for i := range chunks {
		chunks[i].Text = util.SanitizeText(chunks[i].Text)
	}
	return ChunkTextOutput{Chunks: chunks}, nil
}

func (a *Activities) embeddingProvider(idx int) (providers.EmbeddingProvider, string) {
	p, ref := a.providers.EmbedProviderByIndex(idx)
	if a.cache != nil {
		p = embedcache.Wrap(p, a.cache, ref.Raw)
	}
	return p, ref.Raw
}

func (a *Activities) pipeline(embedIdx int, evaluationID, paperID string) (*pipeline.Pipeline, string) {
	embed, ref := a.embeddingProvider(embedIdx)
	p := pipeline.New(a.cfg, embed, a.providers.LLM(), pipeline.Options{
		Logger: a.log.With("evaluation_id", evaluationID, "paper_id", paperID),
		Audit: func(ctx context.Context, rec providers.CallRecord) {
			err := a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
				Operation:    rec.Operation,
				EvaluationID: evaluationID,
				PaperID:      paperID,
				ProviderName: rec.Provider.Name,
				Model:        rec.Provider.Model,
				Status:       rec.Status,
				ErrorType:    string(rec.ErrorType),
				Attempts:     rec.Attempts,
				Duration:     rec.Duration,
			})
			if err != nil {
				a.log.Warn("audit llm call", "error", err)
			}
		},
	})
	return p, ref
}

// EmbedChunksActivity embeds the chunks and replaces the paper's stored set.
func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	p, ref := a.pipeline(in.ProviderIndex, in.EvaluationID, in.PaperID)
	texts := make([]string, len(in.Chunks))
	for i, c := range in.Chunks {
		texts[i] = c.Text
	}
	vectors, err := p.Embedder.Embed(ctx, texts)
	if err != nil {
		if !providers.Retryable(err) {
			return EmbedChunksOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), string(providers.ClassifyError(err)), err)
		}
		return EmbedChunksOutput{}, err
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	version := pipeline.EmbeddingVersion(ref, dim)
	if err := a.chunkRepo.ReplaceChunks(ctx, in.PaperID, version, in.Chunks, vectors); err != nil {
		return EmbedChunksOutput{}, err
	}
	info := p.Embedder.ProviderInfo()
	return EmbedChunksOutput{
		ProviderIndex:    in.ProviderIndex,
		ChunkCount:       len(vectors),
		Dimension:        dim,
		ProviderName:     info.Name,
		Model:            info.Model,
		EmbeddingVersion: version,
	}, nil
}

// EvaluatePaperActivity rebuilds the index from stored vectors and runs the
// evaluation. Queries are embedded with the provider that embedded the chunks.
func (a *Activities) EvaluatePaperActivity(ctx context.Context, in EvaluatePaperInput) (EvaluatePaperOutput, error) {
	kind, err := evaluation.ParseKind(in.Kind)
	if err != nil {
		return EvaluatePaperOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidEvaluation", err)
	}
	chunks, vectors, err := a.chunkRepo.ListChunks(ctx, in.PaperID)
	if err != nil {
		return EvaluatePaperOutput{}, err
	}
	idx, err := vector.New(chunks, vectors)
	if err != nil {
		return EvaluatePaperOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidIndex", err)
	}
	p, ref := a.pipeline(in.EmbedProviderIndex, in.EvaluationID, in.PaperID)
	stored, err := a.chunkRepo.EmbeddingVersion(ctx, in.PaperID)
	if err != nil {
		return EvaluatePaperOutput{}, err
	}
	if want := pipeline.EmbeddingVersion(ref, idx.Dim()); stored != "" && stored != want {
		err := fmt.Errorf("paper %s was embedded with %s, queries would use %s", in.PaperID, stored, want)
		return EvaluatePaperOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "EmbeddingVersionMismatch", err)
	}
	if in.Title == "" {
		if stored, err := a.paperRepo.GetPaper(ctx, in.PaperID); err == nil {
			in.Title = stored.Title
		}
	}
	rep, err := p.Evaluator.Evaluate(ctx, evaluation.Paper{
		ID:    in.PaperID,
		URL:   in.PaperURL,
		Title: in.Title,
		Text:  in.Text,
		Index: idx,
	}, kind)
	if err != nil {
		return EvaluatePaperOutput{}, fmt.Errorf("evaluate paper %s: %w", in.PaperID, err)
	}
	return EvaluatePaperOutput{Report: *rep}, nil
}

func (a *Activities) WriteReportActivity(ctx context.Context, in WriteReportInput) (WriteReportOutput, error) {
	_ = ctx
	base := filepath.Join(a.cfg.DataOutRoot, "evaluations", in.EvaluationID)
	if err := util.EnsureDir(base); err != nil {
		return WriteReportOutput{}, err
	}
	out := WriteReportOutput{
		MarkdownPath: filepath.Join(base, "report.md"),
		JSONPath:     filepath.Join(base, "report.json"),
	}
	if err := util.WriteTextAtomic(out.MarkdownPath, in.Report.Markdown()); err != nil {
		return WriteReportOutput{}, err
	}
	if err := util.WriteJSONAtomic(out.JSONPath, in.Report); err != nil {
		return WriteReportOutput{}, err
	}
	return out, nil
}

func (a *Activities) CompleteEvaluationActivity(ctx context.Context, in CompleteEvaluationInput) error {
	return a.evalRepo.Complete(ctx, in.EvaluationID, in.ResearchType, in.ReportPath, in.Degraded)
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	return a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		Operation:    in.Operation,
		EvaluationID: in.EvaluationID,
		PaperID:      in.PaperID,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
		Attempts:     1,
	})
}
