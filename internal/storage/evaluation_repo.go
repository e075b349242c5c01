package storage

import (
	"context"
	"fmt"

	"papereval/internal/models"
)

type EvaluationRepo struct {
	db *DB
}

func NewEvaluationRepo(db *DB) *EvaluationRepo {
	return &EvaluationRepo{db: db}
}

const evaluationColumns = `evaluation_id::text, COALESCE(paper_id,''), paper_url, kind, status, COALESCE(workflow_id,''),
       COALESCE(research_type,''), degraded, COALESCE(report_path,''), COALESCE(fail_reason,''),
       created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner, e *models.Evaluation) error {
	return row.Scan(&e.EvaluationID, &e.PaperID, &e.PaperURL, &e.Kind, &e.Status, &e.WorkflowID,
		&e.ResearchType, &e.Degraded, &e.ReportPath, &e.FailReason, &e.CreatedAt, &e.UpdatedAt, &e.CompletedAt)
}

func (r *EvaluationRepo) Create(ctx context.Context, e models.Evaluation) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO evaluations (evaluation_id, paper_url, kind, status, workflow_id)
VALUES ($1::uuid, $2, $3, $4, NULLIF($5,''))`,
		e.EvaluationID, e.PaperURL, e.Kind, e.Status, e.WorkflowID)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// UpdateStatus moves an evaluation to status. paperID is recorded once known.
func (r *EvaluationRepo) UpdateStatus(ctx context.Context, evaluationID, status, paperID, failReason string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE evaluations
SET status=$2, paper_id=COALESCE(NULLIF($3,''), paper_id), fail_reason=NULLIF($4,''), updated_at=NOW()
WHERE evaluation_id=$1::uuid`, evaluationID, status, paperID, failReason)
	if err != nil {
		return fmt.Errorf("update evaluation status: %w", err)
	}
	return nil
}

// Complete records the outcome of a finished run.
func (r *EvaluationRepo) Complete(ctx context.Context, evaluationID, researchType, reportPath string, degraded bool) error {
	status := models.StatusCompleted
	if degraded {
		status = models.StatusDegraded
	}
	_, err := r.db.Pool.Exec(ctx, `
UPDATE evaluations
SET status=$2, research_type=NULLIF($3,''), report_path=NULLIF($4,''), degraded=$5, fail_reason=NULL,
    completed_at=NOW(), updated_at=NOW()
WHERE evaluation_id=$1::uuid`, evaluationID, status, researchType, reportPath, degraded)
	if err != nil {
		return fmt.Errorf("complete evaluation: %w", err)
	}
	return nil
}

func (r *EvaluationRepo) Get(ctx context.Context, evaluationID string) (models.Evaluation, error) {
	var e models.Evaluation
	row := r.db.Pool.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE evaluation_id=$1::uuid`, evaluationID)
	if err := scanEvaluation(row, &e); err != nil {
		return models.Evaluation{}, notFound(err, "get evaluation")
	}
	return e, nil
}

func (r *EvaluationRepo) List(ctx context.Context, limit int) ([]models.Evaluation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT `+evaluationColumns+` FROM evaluations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Evaluation, 0)
	for rows.Next() {
		var e models.Evaluation
		if err := scanEvaluation(rows, &e); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return out, nil
}
