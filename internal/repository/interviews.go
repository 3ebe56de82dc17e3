package repository

import (
	"context"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InterviewRepository stores mock interview sessions
type InterviewRepository struct {
	pool *pgxpool.Pool
}

const interviewColumns = `id, user_id, resume_id, role, type, status, transcript, feedback, score, started_at, ended_at, created_at, updated_at`

func scanInterview(row pgx.Row) (*domain.Interview, error) {
	var iv domain.Interview
	err := row.Scan(&iv.ID, &iv.UserID, &iv.ResumeID, &iv.Role, &iv.Type, &iv.Status, &iv.Transcript,
		&iv.Feedback, &iv.Score, &iv.StartedAt, &iv.EndedAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// Create inserts an interview
func (r *InterviewRepository) Create(ctx context.Context, iv *domain.Interview) error {
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	iv.UpdatedAt = iv.CreatedAt
	_, err := r.pool.Exec(ctx, `
INSERT INTO interviews (id, user_id, resume_id, role, type, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, iv.ID, iv.UserID, iv.ResumeID, iv.Role, iv.Type, iv.Status, iv.CreatedAt, iv.UpdatedAt)
	if err != nil {
		return storageErr(err, "insert interview")
	}
	return nil
}

// Get loads an interview owned by userID
func (r *InterviewRepository) Get(ctx context.Context, userID, id string) (*domain.Interview, error) {
	iv, err := scanInterview(r.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeInterviewNotFound, "interview")
	}
	return iv, nil
}

// List returns the user's interviews, newest first
func (r *InterviewRepository) List(ctx context.Context, userID string) ([]domain.Interview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, storageErr(err, "list interviews")
	}
	defer rows.Close()

	var out []domain.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, storageErr(err, "scan interview")
		}
		out = append(out, *iv)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list interviews")
	}
	return out, nil
}

// Update saves iv only if the stored status is still from, so two racing
// transitions cannot both win
func (r *InterviewRepository) Update(ctx context.Context, iv *domain.Interview, from domain.InterviewStatus) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE interviews SET status = $3, transcript = $4, feedback = $5, score = $6, started_at = $7, ended_at = $8, updated_at = $9
WHERE id = $1 AND status = $2
`, iv.ID, from, iv.Status, iv.Transcript, iv.Feedback, iv.Score, iv.StartedAt, iv.EndedAt, iv.UpdatedAt)
	if err != nil {
		return storageErr(err, "update interview")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "interview changed concurrently").
			WithContext("interview_id", iv.ID)
	}
	return nil
}
