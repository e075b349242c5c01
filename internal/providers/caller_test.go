package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"papereval/internal/config"
	"papereval/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyLLM struct {
	fails []error
	calls int
	last  GenerateRequest
}

func (f *flakyLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	f.calls++
	f.last = req
	if f.calls <= len(f.fails) {
		return GenerateResponse{}, ProviderInfo{Name: "flaky"}, f.fails[f.calls-1]
	}
	return GenerateResponse{Text: "  answer \n"}, ProviderInfo{Name: "flaky", Model: "m1"}, nil
}

func testSettings() config.LLM {
	return config.LLM{
		Temperature: 0.3,
		MaxTokens:   1500,
		TopP:        0.9,
		Timeout:     time.Second,
		Retry:       retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, BackoffCoefficient: 2},
	}
}

func TestCallerRetriesTransientFailures(t *testing.T) {
	llm := &flakyLLM{fails: []error{errors.New("503 unavailable"), errors.New("rate limited")}}
	var recs []CallRecord
	c := NewCaller(llm, testSettings(), nil).WithAudit(func(_ context.Context, rec CallRecord) {
		recs = append(recs, rec)
	})

	out, err := c.Complete(context.Background(), "analysis", "prompt", []string{"e1"})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 3, llm.calls)

	assert.Equal(t, DefaultSystemPrompt, llm.last.System)
	assert.Equal(t, float32(0.3), llm.last.Temperature)
	assert.Equal(t, 1500, llm.last.MaxTokens)
	assert.Equal(t, []string{"e1"}, llm.last.Context)

	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].Status)
	assert.Equal(t, 3, recs[0].Attempts)
	assert.Equal(t, "m1", recs[0].Provider.Model)
}

func TestCallerStopsOnQuota(t *testing.T) {
	llm := &flakyLLM{fails: []error{errors.New("insufficient_quota"), errors.New("x"), errors.New("x")}}
	var rec CallRecord
	c := NewCaller(llm, testSettings(), nil).WithAudit(func(_ context.Context, r CallRecord) { rec = r })

	_, err := c.Complete(context.Background(), "analysis", "prompt", nil)
	require.Error(t, err)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, "error", rec.Status)
	assert.Equal(t, ErrorQuota, rec.ErrorType)
}

type blankLLM struct{ calls int }

func (b *blankLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	b.calls++
	return GenerateResponse{Text: " "}, ProviderInfo{Name: "blank"}, nil
}

func TestCallerRetriesEmptyCompletion(t *testing.T) {
	llm := &blankLLM{}
	_, err := NewCaller(llm, testSettings(), nil).Complete(context.Background(), "analysis", "p", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmptyCompletion)
	assert.Equal(t, 3, llm.calls)
}
