package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider uses the OpenAI API for chat completions and embeddings when keys are configured.
type OpenAIProvider struct {
	keyName    string
	apiKey     string
	chatModel  string
	embedModel string
	client     *openai.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	apiKey := resolveOpenAIKey(keyName)
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(os.Getenv("PAPEREVAL_OPENAI_BASE_URL")); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	return &OpenAIProvider{
		keyName:    keyName,
		apiKey:     apiKey,
		chatModel:  envOr("PAPEREVAL_OPENAI_CHAT_MODEL", openai.GPT4Turbo),
		embedModel: envOr("PAPEREVAL_OPENAI_EMBED_MODEL", string(openai.SmallEmbedding3)),
		client:     openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAIProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: "openai", Model: model, Key: o.keyName}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if o.apiKey == "" {
		return nil, o.info(o.embedModel), fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	embReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: req.Inputs,
	}
	if req.Dimension > 0 && strings.HasPrefix(o.embedModel, "text-embedding-3") {
		embReq.Dimensions = req.Dimension
	}
	resp, err := o.client.CreateEmbeddings(ctx, embReq)
	if err != nil {
		return nil, o.info(o.embedModel), fmt.Errorf("openai embedding request failed: %w", err)
	}
	out, err := orderEmbeddings(resp.Data, len(req.Inputs))
	if err != nil {
		return nil, o.info(o.embedModel), fmt.Errorf("openai embedding response: %w", err)
	}
	return out, o.info(o.embedModel), nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if o.apiKey == "" {
		return GenerateResponse{}, o.info(o.chatModel), fmt.Errorf("openai key missing for alias %q", o.keyName)
	}
	text, err := chatCompletion(ctx, o.client, o.chatModel, req)
	if err != nil {
		return GenerateResponse{}, o.info(o.chatModel), fmt.Errorf("openai generate request failed: %w", err)
	}
	return GenerateResponse{Text: text}, o.info(o.chatModel), nil
}

// chatCompletion is shared by every OpenAI-compatible backend.
func chatCompletion(ctx context.Context, client *openai.Client, model string, req GenerateRequest) (string, error) {
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	system := req.System
	if system == "" {
		system = DefaultSystemPrompt
	}
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// orderEmbeddings places each returned vector at the slot named by its index.
func orderEmbeddings(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("malformed response: got %d embeddings for %d inputs", len(data), want)
	}
	out := make([][]float32, want)
	for _, d := range data {
		if d.Index < 0 || d.Index >= want || out[d.Index] != nil {
			return nil, fmt.Errorf("malformed response: bad embedding index %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		out[d.Index] = v
	}
	return out, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("PAPEREVAL_OPENAI_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
