package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":         ErrorQuota,
		"429 rate":                   ErrorRate,
		"rate limit reached":         ErrorRate,
		"context too long":           ErrorContext,
		"timeout":                    ErrorTransient,
		"openai key missing for \"\"": ErrorAuth,
		"bad request":                ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyErrorAPIStatus(t *testing.T) {
	err := fmt.Errorf("openai embedding request failed: %w", &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"})
	if got := ClassifyError(err); got != ErrorTransient {
		t.Fatalf("got %s want transient", got)
	}
	err = &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key"}
	if got := ClassifyError(err); got != ErrorAuth {
		t.Fatalf("got %s want auth", got)
	}
}

func TestClassifyErrorGenerateWrapping(t *testing.T) {
	overflow := fmt.Errorf("openai generate request failed: %w", &openai.APIError{
		HTTPStatusCode: 400,
		Code:           "context_length_exceeded",
		Message:        "This model's maximum context length is 8192 tokens",
	})
	if got := ClassifyError(overflow); got != ErrorContext {
		t.Fatalf("context overflow: got %s want context", got)
	}
	if Retryable(overflow) {
		t.Fatalf("context overflow should not be retryable")
	}

	cases := map[error]ErrorType{
		fmt.Errorf("groq generate request failed: %w", errors.New("invalid model")):             ErrorPermanent,
		fmt.Errorf("openai generate request failed: %w", errors.New("empty choices")):           ErrorPermanent,
		fmt.Errorf("groq generate request failed: %w", errors.New("maximum context length 8k")): ErrorContext,
		fmt.Errorf("openai generate request failed: %w", errors.New("429 Too Many Requests")):   ErrorRate,
	}
	for err, want := range cases {
		if got := ClassifyError(err); got != want {
			t.Fatalf("classify %q: got %s want %s", err, got, want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if Retryable(context.Canceled) {
		t.Fatalf("canceled should not be retryable")
	}
	if Retryable(errors.New("insufficient_quota")) {
		t.Fatalf("quota should not be retryable")
	}
	if !Retryable(errors.New("malformed embedding response")) {
		t.Fatalf("malformed responses should be retryable")
	}
}
