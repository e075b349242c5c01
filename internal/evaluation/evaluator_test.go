package evaluation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"papereval/internal/retrieval"
	"papereval/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct {
	err error
}

func (f fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type scriptedLLM struct {
	mu       sync.Mutex
	calls    map[string]int
	prompts  map[string][]string
	failOps  map[string]error
	failWhen string
	delay    time.Duration
	inflight int
	peak     int
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{calls: map[string]int{}, prompts: map[string][]string{}, failOps: map[string]error{}}
}

func (s *scriptedLLM) Complete(ctx context.Context, op, prompt string, excerpts []string) (string, error) {
	s.mu.Lock()
	s.calls[op]++
	s.prompts[op] = append(s.prompts[op], prompt)
	s.inflight++
	s.peak = max(s.peak, s.inflight)
	err := s.failOps[op]
	if err == nil && s.failWhen != "" && op == "analysis" && strings.Contains(prompt, s.failWhen) {
		err = errors.New("model overloaded")
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	switch {
	case op == "classify":
		return "RESEARCH_TYPE: empirical_quantitative\nCONFIDENCE: high\nRATIONALE: numbers", nil
	case op == "criteria":
		return "METHODOLOGY_CRITERIA:\n1. Sampling frame is explicit\nROBUSTNESS_CRITERIA:\n1. Ablations\nSIGNIFICANCE_CRITERIA:\n1. Delta over baselines", nil
	case strings.HasPrefix(op, "synthesis:"):
		return "summary of " + strings.TrimPrefix(op, "synthesis:"), nil
	case op == "synthesis":
		return "final verdict", nil
	}
	return "answer", nil
}

func testIndex(t *testing.T) *vector.Index {
	t.Helper()
	chunks := []vector.Chunk{
		{ID: 0, Text: "We propose a method.", Start: 0, End: 20, Title: "Chunk 1: We propose a method."},
		{ID: 1, Text: "Results show 91.2% accuracy.", Start: 20, End: 48, Title: "Chunk 2: Results show 91.2% accuracy."},
		{ID: 2, Text: "Limitations include sample size.", Start: 48, End: 80, Title: "Chunk 3: Limitations include sample size."},
	}
	idx, err := vector.New(chunks, [][]float32{{1, 0}, {0.5, 0.5}, {0, 1}})
	require.NoError(t, err)
	return idx
}

func newEvaluator(emb retrieval.QueryEmbedder, llm Completer, opts Options) *Evaluator {
	res := retrieval.NewResolver(emb, retrieval.NewRegistry(), retrieval.Options{DefaultK: 2, OverFetch: 2})
	e := New(res, llm, opts)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func testPaper(t *testing.T) Paper {
	return Paper{ID: "p1", URL: "https://example.org/p.pdf", Title: "Deep Results", Text: "We propose a method. Results show 91.2% accuracy.", Index: testIndex(t)}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Robustness ")
	require.NoError(t, err)
	assert.Equal(t, Robustness, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Comprehensive, k)

	_, err = ParseKind("vibes")
	require.Error(t, err)
}

func TestCategoriesHaveFiveTypedQuestions(t *testing.T) {
	for _, k := range []Kind{Methodology, Robustness, Significance} {
		cats := k.Categories()
		require.Len(t, cats, 1)
		require.Len(t, cats[0].Questions, 5, k)
		for _, q := range cats[0].Questions {
			assert.NotEmpty(t, q.Type, q.Text)
		}
		assert.Len(t, cats[0].Aspects, 5)
	}
	assert.Len(t, Comprehensive.Categories(), 3)
	assert.Empty(t, Kind("other").Categories())
}

func TestEvaluateSingleCategory(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{}, llm, Options{TopK: 2, QueryConcurrency: 3})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Methodology)
	require.NoError(t, err)
	assert.False(t, rep.Degraded)
	require.Len(t, rep.Sections, 1)
	sec := rep.Sections[0]
	require.Len(t, sec.Findings, 5)
	for _, f := range sec.Findings {
		assert.Equal(t, "answer", f.Answer)
		assert.Len(t, f.Passages, 2)
		assert.Equal(t, 0, f.Passages[0].ChunkID)
	}
	assert.Equal(t, "summary of methodology", rep.Summary)
	assert.Equal(t, 5, llm.calls["analysis"])
	assert.Equal(t, 1, llm.calls["synthesis:methodology"])
	assert.Zero(t, llm.calls["synthesis"])
	assert.Equal(t, "empirical_quantitative", rep.Classification.ResearchType)

	// Questions keep their category order regardless of completion order.
	assert.Equal(t, "What methods does this paper use?", sec.Findings[0].Question)
	assert.Equal(t, retrieval.Limitations, sec.Findings[4].QueryType)

	analysisPrompt := llm.prompts["analysis"][0]
	assert.Contains(t, analysisPrompt, "[Excerpt 1 from Chunk 1: We propose a method.]")
	assert.Contains(t, llm.prompts["synthesis:methodology"][0], "Appropriateness of methods")
}

func TestEvaluateComprehensive(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{}, llm, Options{QueryConcurrency: 2})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Comprehensive)
	require.NoError(t, err)
	require.Len(t, rep.Sections, 3)
	assert.Equal(t, "final verdict", rep.Summary)
	assert.Equal(t, 15, llm.calls["analysis"])
	assert.Equal(t, 1, llm.calls["synthesis"])
	final := llm.prompts["synthesis"][0]
	assert.Contains(t, final, "METHODOLOGY EVALUATION:\nsummary of methodology")
	assert.Contains(t, final, "SIGNIFICANCE EVALUATION:\nsummary of significance")
}

func TestEvaluateDegradesOnFailedQuestion(t *testing.T) {
	llm := newScriptedLLM()
	llm.failWhen = "confounding"
	e := newEvaluator(fixedEmbedder{}, llm, Options{QueryConcurrency: 5})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Robustness)
	require.NoError(t, err)
	assert.True(t, rep.Degraded)
	sec := rep.Sections[0]
	assert.True(t, sec.Degraded)
	assert.Equal(t, "summary of robustness", sec.Summary)
	assert.Equal(t, "model overloaded", sec.Findings[2].Error)
	assert.Contains(t, llm.prompts["synthesis:robustness"][0], "(no answer: model overloaded)")
	assert.Contains(t, rep.Markdown(), "_Unanswered: model overloaded_")
}

func TestEvaluateFallsBackWhenClassificationFails(t *testing.T) {
	llm := newScriptedLLM()
	llm.failOps["classify"] = errors.New("503 unavailable")
	e := newEvaluator(fixedEmbedder{}, llm, Options{})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Significance)
	require.NoError(t, err)
	assert.True(t, rep.Degraded)
	assert.True(t, rep.Classification.Degraded)
	assert.Equal(t, "empirical_quantitative", rep.Classification.ResearchType)
	assert.Equal(t, "low", rep.Classification.Confidence)
}

func TestEvaluateAllQuestionsFail(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{err: errors.New("embedding batch 0 failed")}, llm, Options{})

	_, err := e.Evaluate(context.Background(), testPaper(t), Methodology)
	require.ErrorIs(t, err, ErrNoResults)
	assert.Zero(t, llm.calls["analysis"])
}

func TestEvaluateOneCategoryFailsInComprehensive(t *testing.T) {
	llm := newScriptedLLM()
	llm.failOps["synthesis:robustness"] = errors.New("context length exceeded")
	e := newEvaluator(fixedEmbedder{}, llm, Options{})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Comprehensive)
	require.NoError(t, err)
	assert.True(t, rep.Degraded)
	assert.Contains(t, rep.Sections[1].Error, "synthesis: context length exceeded")
	assert.False(t, rep.Sections[1].Failed(), "answered findings still count")
	assert.Contains(t, llm.prompts["synthesis"][0], "ROBUSTNESS EVALUATION:\n(not available)")
}

func TestEvaluateEmptyIndex(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{}, llm, Options{})
	empty, err := vector.New(nil, nil)
	require.NoError(t, err)

	p := testPaper(t)
	p.Index = empty
	_, err = e.Evaluate(context.Background(), p, Methodology)
	require.ErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), vector.ErrEmptyIndex.Error())
}

func TestEvaluateTailoredCriteria(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{}, llm, Options{TailoredCriteria: true})

	rep, err := e.Evaluate(context.Background(), testPaper(t), Methodology)
	require.NoError(t, err)
	require.NotNil(t, rep.Criteria)
	assert.Contains(t, llm.prompts["synthesis:methodology"][0], "1. Sampling frame is explicit")
}

func TestEvaluateBoundsConcurrency(t *testing.T) {
	llm := newScriptedLLM()
	llm.delay = 5 * time.Millisecond
	e := newEvaluator(fixedEmbedder{}, llm, Options{QueryConcurrency: 2})

	_, err := e.Evaluate(context.Background(), testPaper(t), Methodology)
	require.NoError(t, err)
	assert.LessOrEqual(t, llm.peak, 2)
}

func TestEvaluateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEvaluator(fixedEmbedder{}, newScriptedLLM(), Options{})

	_, err := e.Evaluate(ctx, testPaper(t), Methodology)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateUnknownKind(t *testing.T) {
	e := newEvaluator(fixedEmbedder{}, newScriptedLLM(), Options{})
	_, err := e.Evaluate(context.Background(), testPaper(t), Kind("vibes"))
	require.Error(t, err)
}

func TestReportMarkdown(t *testing.T) {
	llm := newScriptedLLM()
	e := newEvaluator(fixedEmbedder{}, llm, Options{})
	rep, err := e.Evaluate(context.Background(), testPaper(t), Significance)
	require.NoError(t, err)

	md := rep.Markdown()
	assert.True(t, strings.HasPrefix(md, "# SIGNIFICANCE EVALUATION\n\nPaper URL: https://example.org/p.pdf\n\n"), md)
	assert.Contains(t, md, "summary of significance")
	assert.Contains(t, md, "#### What is the main contribution of this paper?")
	assert.Contains(t, md, "_Passages: chunk 0 (1.000), chunk 1 (0.707)_")
	assert.NotContains(t, md, "Partial evaluation")
}
