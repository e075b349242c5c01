package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation   string   `json:"operation"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt"`
	Context     []string `json:"context,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	TopP        float32  `json:"top_p,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// DefaultSystemPrompt frames every evaluation call.
const DefaultSystemPrompt = `You are ResearchGPT, an assistant that analyzes and explains research papers.

Answer questions about the supplied excerpts of one paper.

Guidelines:
- Base answers only on the supplied excerpts and say so when they do not contain the answer.
- Be precise and technical; name the specific techniques a method uses.
- Quote the numbers and metrics the paper reports when discussing results.
- Apply standard academic criteria when asked to assess the paper.
- Explain equations and technical details that matter to the answer.
- Never invent content that is not in the excerpts.`
