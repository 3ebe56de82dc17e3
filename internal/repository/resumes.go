package repository

import (
	"context"
	stderrors "errors"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ResumeRepository stores resumes, their pipeline results and embeddings
type ResumeRepository struct {
	pool *pgxpool.Pool
}

const resumeColumns = `id, user_id, title, file_name, raw_text, parsed, analysis, score, autofix, status, is_primary, created_at, updated_at`

func resumeFields(rs *domain.Resume) []any {
	return []any{&rs.ID, &rs.UserID, &rs.Title, &rs.FileName, &rs.RawText,
		&rs.Parsed, &rs.Analysis, &rs.Score, &rs.Autofix,
		&rs.Status, &rs.IsPrimary, &rs.CreatedAt, &rs.UpdatedAt}
}

func scanResume(row pgx.Row) (*domain.Resume, error) {
	var rs domain.Resume
	if err := row.Scan(resumeFields(&rs)...); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Create inserts a resume. The user's first resume becomes primary; the user row
// is locked so concurrent uploads agree on which one that is.
func (r *ResumeRepository) Create(ctx context.Context, rs *domain.Resume) error {
	now := time.Now().UTC()
	if rs.CreatedAt.IsZero() {
		rs.CreatedAt = now
	}
	rs.UpdatedAt = rs.CreatedAt

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID string
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, rs.UserID).Scan(&userID); err != nil {
			return notFoundOr(err, errors.ErrCodeUserNotFound, "user")
		}

		var hasPrimary bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM resumes WHERE user_id = $1 AND is_primary)`, rs.UserID).Scan(&hasPrimary); err != nil {
			return storageErr(err, "check primary resume")
		}
		rs.IsPrimary = !hasPrimary

		_, err := tx.Exec(ctx, `
INSERT INTO resumes (id, user_id, title, file_name, raw_text, status, is_primary, charged_credits, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, rs.ID, rs.UserID, rs.Title, rs.FileName, rs.RawText, rs.Status, rs.IsPrimary, rs.ChargedCredits, rs.CreatedAt, rs.UpdatedAt)
		if err != nil {
			return storageErr(err, "insert resume")
		}
		return nil
	})
}

// Get loads a resume owned by userID
func (r *ResumeRepository) Get(ctx context.Context, userID, id string) (*domain.Resume, error) {
	rs, err := scanResume(r.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeResumeNotFound, "resume")
	}
	return rs, nil
}

// GetByID loads a resume regardless of owner, for background workflows
func (r *ResumeRepository) GetByID(ctx context.Context, id string) (*domain.Resume, error) {
	rs, err := scanResume(r.pool.QueryRow(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeResumeNotFound, "resume")
	}
	return rs, nil
}

// GetPrimary loads the user's primary resume
func (r *ResumeRepository) GetPrimary(ctx context.Context, userID string) (*domain.Resume, error) {
	rs, err := scanResume(r.pool.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 AND is_primary`, userID))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeResumeNotFound, "primary resume")
	}
	return rs, nil
}

// List returns the user's resumes, newest first
func (r *ResumeRepository) List(ctx context.Context, userID string) ([]domain.Resume, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, storageErr(err, "list resumes")
	}
	defer rows.Close()

	var out []domain.Resume
	for rows.Next() {
		rs, err := scanResume(rows)
		if err != nil {
			return nil, storageErr(err, "scan resume")
		}
		out = append(out, *rs)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list resumes")
	}
	return out, nil
}

// Update persists pipeline results and status
func (r *ResumeRepository) Update(ctx context.Context, rs *domain.Resume) error {
	rs.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
UPDATE resumes SET title = $2, parsed = $3, analysis = $4, score = $5, autofix = $6, status = $7, updated_at = $8
WHERE id = $1
`, rs.ID, rs.Title, rs.Parsed, rs.Analysis, rs.Score, rs.Autofix, rs.Status, rs.UpdatedAt)
	if err != nil {
		return storageErr(err, "update resume")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	return nil
}

// SetStatus changes only the status of a resume
func (r *ResumeRepository) SetStatus(ctx context.Context, id string, status domain.ResumeStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE resumes SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return storageErr(err, "update resume status")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	return nil
}

// ClaimForReanalysis moves a COMPLETED or FAILED resume back to PENDING in one
// statement and records the credits charged for the run. It returns the claimed
// resume and the status it had before. A resume already waiting for or running
// its analysis is a conflict.
func (r *ResumeRepository) ClaimForReanalysis(ctx context.Context, userID, id string, credits int) (*domain.Resume, domain.ResumeStatus, error) {
	var (
		rs       domain.Resume
		previous domain.ResumeStatus
	)
	err := r.pool.QueryRow(ctx, `
UPDATE resumes r SET status = 'PENDING', charged_credits = $3, updated_at = now()
FROM resumes old
WHERE r.id = old.id AND r.id = $1 AND r.user_id = $2 AND r.status IN ('COMPLETED', 'FAILED')
RETURNING old.status, `+qualify(resumeColumns, "r"), id, userID, credits).
		Scan(append([]any{&previous}, resumeFields(&rs)...)...)
	if err == nil {
		return &rs, previous, nil
	}
	if !stderrors.Is(err, pgx.ErrNoRows) {
		return nil, "", storageErr(err, "claim resume")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
		return nil, "", storageErr(err, "check resume")
	}
	if !exists {
		return nil, "", errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	return nil, "", errors.NewConflictError(errors.ErrCodeInvalidTransition, "resume analysis is already in progress").
		WithContext("resume_id", id)
}

// FailStale marks up to limit PENDING or PROCESSING resumes untouched since before
// as FAILED and refunds their charged credits in the same transaction
func (r *ResumeRepository) FailStale(ctx context.Context, before time.Time, limit int) ([]domain.StaleRun, error) {
	return failStale(ctx, r.pool, "resumes", before, limit)
}

// SetEmbedding stores the resume vector used for job matching
func (r *ResumeRepository) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.pool.Exec(ctx, `UPDATE resumes SET embedding = $2, updated_at = now() WHERE id = $1`,
		id, pgvector.NewVector(embedding))
	if err != nil {
		return storageErr(err, "store resume embedding")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
	}
	return nil
}

// Embedding returns the stored vector of a resume, or a RESUME_NOT_READY validation error if none exists
func (r *ResumeRepository) Embedding(ctx context.Context, id string) ([]float32, error) {
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, `SELECT embedding FROM resumes WHERE id = $1 AND embedding IS NOT NULL`, id).Scan(&vec)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.NewValidationError(errors.ErrCodeResumeNotReady, "resume has no embedding yet", nil)
		}
		return nil, storageErr(err, "load resume embedding")
	}
	return vec.Slice(), nil
}

// SetPrimary makes id the user's only primary resume
func (r *ResumeRepository) SetPrimary(ctx context.Context, userID, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
			return storageErr(err, "check resume")
		}
		if !exists {
			return errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "resume not found")
		}

		if _, err := tx.Exec(ctx,
			`UPDATE resumes SET is_primary = false, updated_at = now() WHERE user_id = $1 AND is_primary AND id <> $2`, userID, id); err != nil {
			return storageErr(err, "unset primary resume")
		}
		if _, err := tx.Exec(ctx,
			`UPDATE resumes SET is_primary = true, updated_at = now() WHERE id = $1`, id); err != nil {
			return storageErr(err, "set primary resume")
		}
		return nil
	})
}

// Delete removes a resume. Deleting the primary promotes the user's newest remaining resume.
func (r *ResumeRepository) Delete(ctx context.Context, userID, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var wasPrimary bool
		err := tx.QueryRow(ctx,
			`DELETE FROM resumes WHERE id = $1 AND user_id = $2 RETURNING is_primary`, id, userID).Scan(&wasPrimary)
		if err != nil {
			return notFoundOr(err, errors.ErrCodeResumeNotFound, "resume")
		}
		if !wasPrimary {
			return nil
		}

		_, err = tx.Exec(ctx, `
UPDATE resumes SET is_primary = true, updated_at = now()
WHERE id = (SELECT id FROM resumes WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)
`, userID)
		if err != nil {
			return storageErr(err, "promote primary resume")
		}
		return nil
	})
}

// failStale fails stale in-flight rows of table and refunds their owners
func failStale(ctx context.Context, pool *pgxpool.Pool, table string, before time.Time, limit int) ([]domain.StaleRun, error) {
	var runs []domain.StaleRun
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
UPDATE `+table+` SET status = 'FAILED', updated_at = now()
WHERE id IN (
    SELECT id FROM `+table+`
    WHERE status IN ('PENDING', 'PROCESSING') AND updated_at < $1
    ORDER BY updated_at
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
RETURNING id, user_id, charged_credits
`, before, limit)
		if err != nil {
			return storageErr(err, "fail stale "+table)
		}
		runs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StaleRun, error) {
			var run domain.StaleRun
			err := row.Scan(&run.ID, &run.UserID, &run.Credits)
			return run, err
		})
		if err != nil {
			return storageErr(err, "scan stale "+table)
		}

		for _, run := range runs {
			if run.Credits <= 0 {
				continue
			}
			if _, err := tx.Exec(ctx,
				`UPDATE users SET credits = credits + $2, updated_at = now() WHERE id = $1`, run.UserID, run.Credits); err != nil {
				return storageErr(err, "refund stale "+table)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
