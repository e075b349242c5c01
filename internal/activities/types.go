package activities

import (
	"papereval/internal/evaluation"
	"papereval/internal/vector"
)

type UpdateEvaluationStatusInput struct {
	EvaluationID string `json:"evaluation_id"`
	Status       string `json:"status"`
	PaperID      string `json:"paper_id,omitempty"`
	FailReason   string `json:"fail_reason,omitempty"`
}

type FetchPaperInput struct {
	URL string `json:"url"`
}

type FetchPaperOutput struct {
	PaperID   string `json:"paper_id"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

type ExtractTextInput struct {
	PaperPath string `json:"paper_path"`
}

type ExtractTextOutput struct {
	Text string `json:"text"`
}

type ExtractMetadataInput struct {
	Text string `json:"text"`
}

type ExtractMetadataOutput struct {
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	Abstract string `json:"abstract,omitempty"`
}

type UpdatePaperStatusInput struct {
	PaperID    string `json:"paper_id"`
	SourceURL  string `json:"source_url"`
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Abstract   string `json:"abstract"`
	SizeBytes  int64  `json:"size_bytes"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason"`
}

type ChunkTextInput struct {
	PaperID      string `json:"paper_id"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

type ChunkTextOutput struct {
	Chunks []vector.Chunk `json:"chunks"`
}

// EmbedChunksInput embeds the chunks with one provider and stores the
// vectors; they are not returned to the workflow.
type EmbedChunksInput struct {
	EvaluationID  string         `json:"evaluation_id"`
	PaperID       string         `json:"paper_id"`
	ProviderIndex int            `json:"provider_index"`
	Chunks        []vector.Chunk `json:"chunks"`
}

type EmbedChunksOutput struct {
	ProviderIndex    int    `json:"provider_index"`
	ChunkCount       int    `json:"chunk_count"`
	Dimension        int    `json:"dimension"`
	ProviderName     string `json:"provider_name"`
	Model            string `json:"model"`
	EmbeddingVersion string `json:"embedding_version"`
}

type EvaluatePaperInput struct {
	EvaluationID       string `json:"evaluation_id"`
	PaperID            string `json:"paper_id"`
	PaperURL           string `json:"paper_url"`
	Title              string `json:"title"`
	Text               string `json:"text"`
	Kind               string `json:"kind"`
	EmbedProviderIndex int    `json:"embed_provider_index"`
}

type EvaluatePaperOutput struct {
	Report evaluation.Report `json:"report"`
}

type WriteReportInput struct {
	EvaluationID string            `json:"evaluation_id"`
	Report       evaluation.Report `json:"report"`
}

type WriteReportOutput struct {
	MarkdownPath string `json:"markdown_path"`
	JSONPath     string `json:"json_path"`
}

type CompleteEvaluationInput struct {
	EvaluationID string `json:"evaluation_id"`
	ResearchType string `json:"research_type"`
	ReportPath   string `json:"report_path"`
	Degraded     bool   `json:"degraded"`
}

type LogLLMCallInput struct {
	Operation    string `json:"operation"`
	EvaluationID string `json:"evaluation_id"`
	PaperID      string `json:"paper_id"`
	ProviderName string `json:"provider_name"`
	Model        string `json:"model"`
	Status       string `json:"status"`
	ErrorType    string `json:"error_type"`
}
