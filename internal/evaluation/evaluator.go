// Package evaluation runs the per-category question sets against a paper's
// semantic index and turns the answers into a report.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"papereval/internal/analysis"
	"papereval/internal/classify"
	"papereval/internal/retrieval"
	"papereval/internal/vector"

	"golang.org/x/sync/errgroup"
)

// ErrNoResults is returned when every category of an evaluation failed.
var ErrNoResults = errors.New("evaluation produced no results")

// Completer answers a prompt. providers.Caller satisfies it.
type Completer interface {
	Complete(ctx context.Context, op, prompt string, excerpts []string) (string, error)
}

// Paper is everything the evaluator reads about one document.
type Paper struct {
	ID    string
	URL   string
	Title string
	Text  string
	Index *vector.Index
}

type Options struct {
	TopK             int
	QueryConcurrency int
	TailoredCriteria bool
	Logger           *slog.Logger
}

type Evaluator struct {
	resolver   *retrieval.Resolver
	llm        Completer
	classifier *classify.Classifier
	opts       Options
	log        *slog.Logger
	now        func() time.Time
}

func New(resolver *retrieval.Resolver, llm Completer, opts Options) *Evaluator {
	if opts.QueryConcurrency <= 0 {
		opts.QueryConcurrency = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		resolver:   resolver,
		llm:        llm,
		classifier: classify.New(llm),
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// Evaluate runs kind against p. Failures of single questions or categories
// are recorded on the report, which is then marked degraded; an error is
// returned only when ctx ends or no category produced anything.
func (e *Evaluator) Evaluate(ctx context.Context, p Paper, kind Kind) (*Report, error) {
	cats := kind.Categories()
	if len(cats) == 0 {
		return nil, fmt.Errorf("unknown evaluation type %q", kind)
	}
	log := e.log.With("paper_id", p.ID, "evaluation", string(kind))

	rep := &Report{
		Kind:     kind,
		PaperID:  p.ID,
		PaperURL: p.URL,
		Title:    p.Title,
		Stats:    analysis.ComputeStats(p.Text),
	}

	var chunks []vector.Chunk
	if p.Index != nil {
		chunks = p.Index.Chunks()
	}
	cl, err := e.classifier.Classify(ctx, p.Text, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("classification failed, using default type", "error", err)
		cl = classify.Fallback("Classification unavailable: " + err.Error())
		cl.Degraded = true
		rep.Degraded = true
	}
	rep.Classification = cl

	if e.opts.TailoredCriteria {
		crit, err := e.classifier.Criteria(ctx, cl.ResearchType, p.Text, chunks, rep.Stats)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("tailored criteria failed", "error", err)
			rep.Degraded = true
		} else {
			rep.Criteria = &crit
		}
	}

	failed := 0
	for _, cat := range cats {
		sec, err := e.evaluateCategory(ctx, p, cat, rep)
		if err != nil {
			return nil, err
		}
		if sec.Degraded {
			rep.Degraded = true
		}
		if sec.Failed() {
			failed++
		}
		rep.Sections = append(rep.Sections, sec)
		log.Info("category evaluated", "category", string(cat.Kind), "degraded", sec.Degraded)
	}
	if failed == len(cats) {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, rep.Sections[0].Error)
	}

	if kind == Comprehensive {
		summary, err := e.llm.Complete(ctx, "synthesis", finalPrompt(rep.Sections, rep.Stats), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("final synthesis failed", "error", err)
			rep.Degraded = true
			rep.Error = "final synthesis: " + err.Error()
		}
		rep.Summary = summary
	} else {
		rep.Summary = rep.Sections[0].Summary
	}
	rep.GeneratedAt = e.now().UTC()
	return rep, nil
}

func (e *Evaluator) evaluateCategory(ctx context.Context, p Paper, cat Category, rep *Report) (Section, error) {
	sec := Section{
		Kind:     cat.Kind,
		Keywords: analysis.KeywordCounts(p.Text, cat.Keywords),
		Findings: make([]Finding, len(cat.Questions)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.QueryConcurrency)
	for i, q := range cat.Questions {
		g.Go(func() error {
			sec.Findings[i] = e.answer(gctx, p, q)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Section{}, err
	}

	answered := 0
	for _, f := range sec.Findings {
		if f.Error == "" {
			answered++
		}
	}
	if answered < len(sec.Findings) {
		sec.Degraded = true
	}
	if answered == 0 {
		sec.Error = "no sub-question could be answered: " + sec.Findings[0].Error
		return sec, nil
	}

	summary, err := e.llm.Complete(ctx, "synthesis:"+string(cat.Kind), synthesisPrompt(synthesisInput{
		category:       cat,
		stats:          rep.Stats,
		keywords:       sec.Keywords,
		classification: rep.Classification,
		criteria:       criteriaFor(cat.Kind, rep.Criteria),
		findings:       sec.Findings,
	}), nil)
	if err != nil {
		if ctx.Err() != nil {
			return Section{}, ctx.Err()
		}
		sec.Degraded = true
		sec.Error = "synthesis: " + err.Error()
		return sec, nil
	}
	sec.Summary = summary
	return sec, nil
}

// answer never fails the group: resolution and LLM errors stay on the finding.
func (e *Evaluator) answer(ctx context.Context, p Paper, q Question) Finding {
	f := Finding{Question: q.Text, QueryType: q.Type}
	if p.Index == nil {
		f.Error = vector.ErrEmptyIndex.Error()
		return f
	}
	ranked, err := e.resolver.Resolve(ctx, p.Index, q.Text, q.Type, e.opts.TopK)
	if err != nil {
		e.log.Warn("resolve failed", "paper_id", p.ID, "question", q.Text, "error", err)
		f.Error = err.Error()
		return f
	}
	passages := retrieval.Hydrate(p.Index, ranked)
	f.Passages = ranked

	excerpts := make([]string, 0, len(passages))
	for _, ps := range passages {
		excerpts = append(excerpts, ps.Chunk.Text)
	}
	out, err := e.llm.Complete(ctx, "analysis", AnalysisPrompt(q.Text, passages, ""), excerpts)
	if err != nil {
		e.log.Warn("analysis failed", "paper_id", p.ID, "question", q.Text, "error", err)
		f.Error = err.Error()
		return f
	}
	f.Answer = out
	return f
}

func criteriaFor(k Kind, c *classify.Criteria) []string {
	if c == nil {
		return nil
	}
	switch k {
	case Methodology:
		return c.Methodology
	case Robustness:
		return c.Robustness
	case Significance:
		return c.Significance
	}
	return nil
}
