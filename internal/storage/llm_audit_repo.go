package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type LLMCallRecord struct {
	CallID       string
	Operation    string
	EvaluationID string
	PaperID      string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
	Attempts     int
	Duration     time.Duration
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	if rec.CallID == "" {
		rec.CallID = uuid.NewString()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, evaluation_id, paper_id, provider_name, model, status, error_type, attempts, duration_ms)
VALUES ($1::uuid, $2, NULLIF($3,'')::uuid, NULLIF($4,''), $5, $6, $7, NULLIF($8,''), $9, $10)`,
		rec.CallID, rec.Operation, rec.EvaluationID, rec.PaperID, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType, rec.Attempts, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
