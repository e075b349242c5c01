package models

import "time"

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

type Paper struct {
	PaperID    string    `json:"paper_id"`
	SourceURL  string    `json:"source_url"`
	Filename   string    `json:"filename"`
	Title      string    `json:"title,omitempty"`
	Authors    string    `json:"authors,omitempty"`
	Abstract   string    `json:"abstract,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	Status     string    `json:"status"`
	FailReason string    `json:"fail_reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Evaluation struct {
	EvaluationID string     `json:"evaluation_id"`
	PaperID      string     `json:"paper_id,omitempty"`
	PaperURL     string     `json:"paper_url"`
	Kind         string     `json:"evaluation"`
	Status       string     `json:"status"`
	WorkflowID   string     `json:"workflow_id,omitempty"`
	ResearchType string     `json:"research_type,omitempty"`
	Degraded     bool       `json:"degraded"`
	ReportPath   string     `json:"report_path,omitempty"`
	FailReason   string     `json:"fail_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// PassageResult is one resolved passage as returned to API and CLI callers.
type PassageResult struct {
	ChunkID    int     `json:"chunk_id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	Kind       string  `json:"paragraph_type,omitempty"`
}
