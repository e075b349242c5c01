package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const ollamaBaseURL = "http://localhost:11434"

// OllamaEmbeddingProvider embeds through a local Ollama server's
// OpenAI-compatible endpoint. Example model: nomic-embed-text.
type OllamaEmbeddingProvider struct {
	alias  string
	model  string
	client *openai.Client
}

func NewOllamaEmbeddingProvider(alias string) *OllamaEmbeddingProvider {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = ollamaAPIBase(envOr("PAPEREVAL_OLLAMA_BASE_URL", ollamaBaseURL))
	return &OllamaEmbeddingProvider{
		alias:  alias,
		model:  resolveOllamaEmbedModel(alias),
		client: openai.NewClientWithConfig(cfg),
	}
}

// ollamaAPIBase maps a server address to its /v1 API root.
func ollamaAPIBase(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}

func (o *OllamaEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: req.Inputs,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, info, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	out, err := orderEmbeddings(resp.Data, len(req.Inputs))
	if err != nil {
		return nil, info, fmt.Errorf("ollama embedding response: %w", err)
	}
	if req.Dimension > 0 {
		for i, v := range out {
			if len(v) != req.Dimension {
				return nil, info, fmt.Errorf("ollama model %s returned %d dims for input %d, want %d", o.model, len(v), i, req.Dimension)
			}
		}
	}
	return out, info, nil
}

func resolveOllamaEmbedModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		key := "PAPEREVAL_OLLAMA_EMBED_MODEL_" + sanitizeEnvToken(alias)
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "nomic":
			return "nomic-embed-text"
		case "mxbai":
			return "mxbai-embed-large"
		case "minilm":
			return "all-minilm"
		}
		// ollama:nomic-embed-text names the model directly
		if strings.ContainsAny(alias, "-/.:") {
			return alias
		}
	}
	return envOr("PAPEREVAL_OLLAMA_EMBED_MODEL", "nomic-embed-text")
}

func sanitizeEnvToken(s string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", "/", "_", ":", "_").Replace(s))
}
