package providers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"papereval/internal/config"
	"papereval/internal/retry"
)

// CallRecord describes one finished LLM call, successful or not.
type CallRecord struct {
	Operation string
	Provider  ProviderInfo
	Status    string
	ErrorType ErrorType
	Attempts  int
	Duration  time.Duration
}

// Caller applies the generation settings, the per-attempt timeout and the
// retry policy to an LLMProvider.
type Caller struct {
	llm      LLMProvider
	settings config.LLM
	system   string
	audit    func(ctx context.Context, rec CallRecord)
	log      *slog.Logger
}

func NewCaller(llm LLMProvider, settings config.LLM, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{llm: llm, settings: settings, system: DefaultSystemPrompt, log: logger}
}

// WithAudit registers fn to observe every call. fn must not block for long.
func (c *Caller) WithAudit(fn func(ctx context.Context, rec CallRecord)) *Caller {
	c.audit = fn
	return c
}

// Complete sends prompt under operation op and returns the trimmed answer.
// Excerpts are passed as request context for providers that use it.
func (c *Caller) Complete(ctx context.Context, op, prompt string, excerpts []string) (string, error) {
	start := time.Now()
	var (
		text     string
		info     ProviderInfo
		attempts int
	)
	err := retry.Do(ctx, c.settings.Retry, Retryable, func(ctx context.Context, attempt int) error {
		attempts = attempt
		callCtx := ctx
		if c.settings.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
			defer cancel()
		}
		resp, pi, err := c.llm.Generate(callCtx, GenerateRequest{
			Operation:   op,
			System:      c.system,
			Prompt:      prompt,
			Context:     excerpts,
			Temperature: c.settings.Temperature,
			MaxTokens:   c.settings.MaxTokens,
			TopP:        c.settings.TopP,
		})
		info = pi
		if err != nil {
			c.log.Warn("llm call failed", "operation", op, "attempt", attempt, "provider", pi.Name, "error", err)
			return err
		}
		if strings.TrimSpace(resp.Text) == "" {
			return errEmptyCompletion
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})

	rec := CallRecord{Operation: op, Provider: info, Status: "ok", Attempts: attempts, Duration: time.Since(start)}
	if err != nil {
		rec.Status = "error"
		rec.ErrorType = ClassifyError(err)
	}
	if c.audit != nil {
		c.audit(ctx, rec)
	}
	if err != nil {
		return "", err
	}
	return text, nil
}
