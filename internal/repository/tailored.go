package repository

import (
	"context"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TailoredRepository stores resume variants generated for specific jobs
type TailoredRepository struct {
	pool *pgxpool.Pool
}

const tailoredColumns = `id, resume_id, user_id, job_id, job_title, company, job_description, status, output, score, created_at, updated_at`

func scanTailored(row pgx.Row) (*domain.TailoredResume, error) {
	var t domain.TailoredResume
	err := row.Scan(&t.ID, &t.ResumeID, &t.UserID, &t.JobID, &t.JobTitle, &t.Company,
		&t.JobDescription, &t.Status, &t.Output, &t.Score, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a tailored resume
func (r *TailoredRepository) Create(ctx context.Context, t *domain.TailoredResume) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	_, err := r.pool.Exec(ctx, `
INSERT INTO tailored_resumes (id, resume_id, user_id, job_id, job_title, company, job_description, status, output, score, charged_credits, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`, t.ID, t.ResumeID, t.UserID, t.JobID, t.JobTitle, t.Company, t.JobDescription, t.Status, t.Output, t.Score, t.ChargedCredits, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return storageErr(err, "insert tailored resume")
	}
	return nil
}

// Update persists the generated output, score and status
func (r *TailoredRepository) Update(ctx context.Context, t *domain.TailoredResume) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
UPDATE tailored_resumes SET status = $2, output = $3, score = $4, updated_at = $5 WHERE id = $1
`, t.ID, t.Status, t.Output, t.Score, t.UpdatedAt)
	if err != nil {
		return storageErr(err, "update tailored resume")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeTailoredNotFound, "tailored resume not found")
	}
	return nil
}

// SetStatus changes only the status of a tailored resume
func (r *TailoredRepository) SetStatus(ctx context.Context, id string, status domain.ResumeStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tailored_resumes SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return storageErr(err, "update tailored resume status")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeTailoredNotFound, "tailored resume not found")
	}
	return nil
}

// FailStale marks up to limit PENDING or PROCESSING tailored resumes untouched
// since before as FAILED and refunds their charged credits
func (r *TailoredRepository) FailStale(ctx context.Context, before time.Time, limit int) ([]domain.StaleRun, error) {
	return failStale(ctx, r.pool, "tailored_resumes", before, limit)
}

// Get loads a tailored resume owned by userID
func (r *TailoredRepository) Get(ctx context.Context, userID, id string) (*domain.TailoredResume, error) {
	t, err := scanTailored(r.pool.QueryRow(ctx,
		`SELECT `+tailoredColumns+` FROM tailored_resumes WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeTailoredNotFound, "tailored resume")
	}
	return t, nil
}

// GetByID loads a tailored resume regardless of owner
func (r *TailoredRepository) GetByID(ctx context.Context, id string) (*domain.TailoredResume, error) {
	t, err := scanTailored(r.pool.QueryRow(ctx, `SELECT `+tailoredColumns+` FROM tailored_resumes WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeTailoredNotFound, "tailored resume")
	}
	return t, nil
}

// ListByResume returns the variants of one resume, newest first
func (r *TailoredRepository) ListByResume(ctx context.Context, userID, resumeID string) ([]domain.TailoredResume, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+tailoredColumns+` FROM tailored_resumes
WHERE user_id = $1 AND resume_id = $2
ORDER BY created_at DESC
`, userID, resumeID)
	if err != nil {
		return nil, storageErr(err, "list tailored resumes")
	}
	defer rows.Close()

	var out []domain.TailoredResume
	for rows.Next() {
		t, err := scanTailored(rows)
		if err != nil {
			return nil, storageErr(err, "scan tailored resume")
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list tailored resumes")
	}
	return out, nil
}

// Delete removes a tailored resume, used to undo a failed generation
func (r *TailoredRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tailored_resumes WHERE id = $1`, id); err != nil {
		return storageErr(err, "delete tailored resume")
	}
	return nil
}
