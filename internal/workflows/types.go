package workflows

// EvaluationInput starts one evaluation of the paper at PaperURL.
type EvaluationInput struct {
	EvaluationID                string `json:"evaluation_id"`
	PaperURL                    string `json:"paper_url"`
	Kind                        string `json:"evaluation"`
	ChunkSize                   int    `json:"chunk_size"`
	ChunkOverlap                int    `json:"chunk_overlap"`
	EmbedProviders              int    `json:"embed_providers"`
	PreferredEmbedProviderIndex int    `json:"preferred_embed_provider_index"`
	StrictEmbedProvider         bool   `json:"strict_embed_provider"`
	CooldownSeconds             int    `json:"cooldown_seconds"`
}

// EvaluationStatus is served by the GetEvaluationStatus query.
type EvaluationStatus struct {
	EvaluationID string            `json:"evaluation_id"`
	PaperID      string            `json:"paper_id,omitempty"`
	PaperURL     string            `json:"paper_url"`
	Kind         string            `json:"evaluation"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	ResearchType string            `json:"research_type,omitempty"`
	Degraded     bool              `json:"degraded"`
	ReportPath   string            `json:"report_path,omitempty"`
	ChunkCount   int               `json:"chunk_count"`
	Providers    []string          `json:"providers_used"`
	RetryCounts  map[string]int    `json:"retry_counts"`
	Steps        map[string]string `json:"steps"`
}

func (s *EvaluationStatus) begin(step string) {
	s.CurrentStep = step
	s.Steps[step] = "processing"
}

func (s *EvaluationStatus) done() {
	s.Steps[s.CurrentStep] = "done"
}
