package storage

import (
	"context"
	"fmt"

	"papereval/internal/models"
)

type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

func (r *PaperRepo) UpsertPaper(ctx context.Context, p models.Paper) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO papers (paper_id, source_url, filename, title, authors, abstract, size_bytes, status, fail_reason)
VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7, $8, NULLIF($9,''))
ON CONFLICT (paper_id)
DO UPDATE SET
  source_url = EXCLUDED.source_url,
  filename = EXCLUDED.filename,
  title = COALESCE(EXCLUDED.title, papers.title),
  authors = COALESCE(EXCLUDED.authors, papers.authors),
  abstract = COALESCE(EXCLUDED.abstract, papers.abstract),
  size_bytes = EXCLUDED.size_bytes,
  status = EXCLUDED.status,
  fail_reason = EXCLUDED.fail_reason,
  updated_at = NOW()`,
		p.PaperID, p.SourceURL, p.Filename, p.Title, p.Authors, p.Abstract, p.SizeBytes, p.Status, p.FailReason,
	)
	if err != nil {
		return fmt.Errorf("upsert paper: %w", err)
	}
	return nil
}

func (r *PaperRepo) GetPaper(ctx context.Context, paperID string) (models.Paper, error) {
	var p models.Paper
	err := r.db.Pool.QueryRow(ctx, `
SELECT paper_id, source_url, filename, COALESCE(title,''), COALESCE(authors,''), COALESCE(abstract,''),
       size_bytes, status, COALESCE(fail_reason,''), created_at, updated_at
FROM papers
WHERE paper_id=$1`, paperID).
		Scan(&p.PaperID, &p.SourceURL, &p.Filename, &p.Title, &p.Authors, &p.Abstract, &p.SizeBytes, &p.Status, &p.FailReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Paper{}, notFound(err, "get paper")
	}
	return p, nil
}
