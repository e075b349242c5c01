package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	keyName string
	apiKey  string
	model   string
	client  *openai.Client
}

func NewGroqProvider(keyName string) *GroqProvider {
	apiKey := resolveGroqKey(keyName)
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = envOr("PAPEREVAL_GROQ_BASE_URL", groqBaseURL)
	return &GroqProvider{
		keyName: keyName,
		apiKey:  apiKey,
		model:   envOr("PAPEREVAL_GROQ_MODEL", "llama-3.1-8b-instant"),
		client:  openai.NewClientWithConfig(cfg),
	}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.keyName, Model: g.model}
	if g.apiKey == "" {
		return GenerateResponse{}, info, fmt.Errorf("groq key missing for alias %q", g.keyName)
	}
	text, err := chatCompletion(ctx, g.client, g.model, req)
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("groq generate request failed: %w", err)
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("PAPEREVAL_GROQ_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}
