package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	name  string
	err   error
	calls int
}

func (s *scriptedLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	s.calls++
	if s.err != nil {
		return GenerateResponse{}, ProviderInfo{Name: s.name}, s.err
	}
	return GenerateResponse{Text: s.name + ":" + req.Operation}, ProviderInfo{Name: s.name}, nil
}

func TestFailoverSkipsQuotaExhaustedProvider(t *testing.T) {
	first := &scriptedLLM{name: "openai", err: errors.New("insufficient_quota")}
	second := &scriptedLLM{name: "mock"}
	f := NewFailover([]NamedLLMProvider{
		{Ref: ProviderRef{Name: "openai"}, Provider: first},
		{Ref: ProviderRef{Name: "mock"}, Provider: second},
	}, time.Minute)

	for i := 0; i < 2; i++ {
		resp, info, err := f.Generate(context.Background(), GenerateRequest{Operation: "analysis"})
		require.NoError(t, err)
		require.Equal(t, "mock", info.Name)
		require.Equal(t, "mock:analysis", resp.Text)
	}
	require.Equal(t, 1, first.calls, "disabled provider must not be retried during cooldown")
	require.Equal(t, 2, second.calls)
}

func TestFailoverStopsOnContextLength(t *testing.T) {
	first := &scriptedLLM{name: "openai", err: errors.New("maximum context length exceeded")}
	second := &scriptedLLM{name: "mock"}
	f := NewFailover([]NamedLLMProvider{{Provider: first}, {Provider: second}}, time.Minute)

	_, _, err := f.Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	require.Equal(t, ErrorContext, ClassifyError(err))
	require.Zero(t, second.calls)
}
