package providers

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var errEmptyCompletion = errors.New("llm returned an empty completion")

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorAuth      ErrorType = "auth"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errEmptyCompletion) {
		return ErrorTransient
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 400 && mentionsContextLength(strings.ToLower(apiErr.Message)) {
			return ErrorContext
		}
		if t := classifyStatus(apiErr.HTTPStatusCode); t != "" {
			if t == ErrorRate && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return ErrorQuota
			}
			return t
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if t := classifyStatus(reqErr.HTTPStatusCode); t != "" {
			return t
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "key missing"), strings.Contains(e, "401"), strings.Contains(e, "invalid api key"), strings.Contains(e, "unauthorized"):
		return ErrorAuth
	case mentionsContextLength(e), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "ratelimit"),
		strings.Contains(e, "too many requests"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "connection reset"), strings.Contains(e, "connection refused"), strings.Contains(e, "eof"),
		strings.Contains(e, " 500"), strings.Contains(e, " 502"), strings.Contains(e, " 503"), strings.Contains(e, " 504"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

func mentionsContextLength(msg string) bool {
	return strings.Contains(msg, "context length") || strings.Contains(msg, "maximum context") ||
		strings.Contains(msg, "context_length_exceeded") || strings.Contains(msg, "context too long")
}

func classifyStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrorAuth
	case code == 429:
		return ErrorRate
	case code == 408 || code >= 500:
		return ErrorTransient
	default:
		return ""
	}
}

// Retryable reports whether another attempt at the same request can succeed.
// Quota exhaustion, oversized input and bad credentials never recover by waiting.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch ClassifyError(err) {
	case ErrorQuota, ErrorContext, ErrorAuth:
		return false
	default:
		return true
	}
}
