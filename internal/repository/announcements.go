package repository

import (
	"context"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnnouncementRepository stores platform notices
type AnnouncementRepository struct {
	pool *pgxpool.Pool
}

// Create inserts an announcement
func (r *AnnouncementRepository) Create(ctx context.Context, a *domain.Announcement) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO announcements (id, title, body, published_at, expires_at) VALUES ($1, $2, $3, $4, $5)
`, a.ID, a.Title, a.Body, a.PublishedAt, a.ExpiresAt)
	if err != nil {
		return storageErr(err, "insert announcement")
	}
	return nil
}

// ListActive returns announcements visible at now, newest first
func (r *AnnouncementRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Announcement, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, title, body, published_at, expires_at FROM announcements
WHERE published_at <= $1 AND (expires_at IS NULL OR expires_at > $1)
ORDER BY published_at DESC
`, now)
	if err != nil {
		return nil, storageErr(err, "list announcements")
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.PublishedAt, &a.ExpiresAt); err != nil {
			return nil, storageErr(err, "scan announcement")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list announcements")
	}
	return out, nil
}

// RecruiterRepository stores recruiter applications
type RecruiterRepository struct {
	pool *pgxpool.Pool
}

const recruiterColumns = `id, user_id, company, website, message, status, review_note, reviewed_at, created_at`

func scanRecruiter(row pgx.Row) (*domain.RecruiterApplication, error) {
	var a domain.RecruiterApplication
	err := row.Scan(&a.ID, &a.UserID, &a.Company, &a.Website, &a.Message, &a.Status, &a.ReviewNote, &a.ReviewedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an application. A user may only have one pending application.
func (r *RecruiterRepository) Create(ctx context.Context, a *domain.RecruiterApplication) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO recruiter_applications (id, user_id, company, website, message, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, a.ID, a.UserID, a.Company, a.Website, a.Message, a.Status, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(errors.ErrCodeInvalidRequest, "an application is already pending")
		}
		return storageErr(err, "insert recruiter application")
	}
	return nil
}

// Get loads one application
func (r *RecruiterRepository) Get(ctx context.Context, id string) (*domain.RecruiterApplication, error) {
	a, err := scanRecruiter(r.pool.QueryRow(ctx,
		`SELECT `+recruiterColumns+` FROM recruiter_applications WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeApplicationNotFound, "recruiter application")
	}
	return a, nil
}

// ListByStatus returns applications in status, oldest first
func (r *RecruiterRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.RecruiterApplication, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recruiterColumns+` FROM recruiter_applications WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, storageErr(err, "list recruiter applications")
	}
	defer rows.Close()

	var out []domain.RecruiterApplication
	for rows.Next() {
		a, err := scanRecruiter(rows)
		if err != nil {
			return nil, storageErr(err, "scan recruiter application")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list recruiter applications")
	}
	return out, nil
}

// SaveReview persists a review of a still pending application
func (r *RecruiterRepository) SaveReview(ctx context.Context, a *domain.RecruiterApplication) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE recruiter_applications SET status = $2, review_note = $3, reviewed_at = $4
WHERE id = $1 AND status = 'PENDING'
`, a.ID, a.Status, a.ReviewNote, a.ReviewedAt)
	if err != nil {
		return storageErr(err, "review recruiter application")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "application already reviewed")
	}
	return nil
}
