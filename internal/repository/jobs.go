package repository

import (
	"context"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// JobRepository stores ingested job postings and answers similarity queries
type JobRepository struct {
	pool *pgxpool.Pool
}

const jobColumns = `id, external_id, source, title, company, location, remote, employment_type, seniority,
salary_min, salary_max, salary_currency, description, summary, skills, apply_link, posted_at, created_at, updated_at`

func jobScanTargets(j *domain.Job) []any {
	return []any{&j.ID, &j.ExternalID, &j.Source, &j.Title, &j.Company, &j.Location, &j.Remote,
		&j.EmploymentType, &j.Seniority, &j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency,
		&j.Description, &j.Summary, &j.Skills, &j.ApplyLink, &j.PostedAt, &j.CreatedAt, &j.UpdatedAt}
}

// Upsert inserts a job or refreshes the row with the same external id.
// On conflict the stored id and creation time win and are copied back into j.
func (r *JobRepository) Upsert(ctx context.Context, j *domain.Job) error {
	now := time.Now().UTC()
	if j.Skills == nil {
		j.Skills = []string{}
	}

	var embedding any
	if len(j.Embedding) > 0 {
		embedding = pgvector.NewVector(j.Embedding)
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO jobs (id, external_id, source, title, company, location, remote, employment_type, seniority,
	salary_min, salary_max, salary_currency, description, summary, skills, apply_link, embedding, posted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
ON CONFLICT (external_id) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	remote = EXCLUDED.remote,
	employment_type = EXCLUDED.employment_type,
	seniority = EXCLUDED.seniority,
	salary_min = EXCLUDED.salary_min,
	salary_max = EXCLUDED.salary_max,
	salary_currency = EXCLUDED.salary_currency,
	description = EXCLUDED.description,
	summary = EXCLUDED.summary,
	skills = EXCLUDED.skills,
	apply_link = EXCLUDED.apply_link,
	embedding = COALESCE(EXCLUDED.embedding, jobs.embedding),
	posted_at = EXCLUDED.posted_at,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at
`, j.ID, j.ExternalID, j.Source, j.Title, j.Company, j.Location, j.Remote, j.EmploymentType, j.Seniority,
		j.SalaryMin, j.SalaryMax, j.SalaryCurrency, j.Description, j.Summary, j.Skills, j.ApplyLink,
		embedding, j.PostedAt, now).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return storageErr(err, "upsert job")
	}
	return nil
}

// ExistingExternalIDs returns which of ids are already stored
func (r *JobRepository) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT external_id FROM jobs WHERE external_id = ANY($1)`, ids)
	if err != nil {
		return nil, storageErr(err, "check existing jobs")
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr(err, "scan job id")
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "check existing jobs")
	}
	return existing, nil
}

// Get loads one job
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.Job, error) {
	var j domain.Job
	if err := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id).Scan(jobScanTargets(&j)...); err != nil {
		return nil, notFoundOr(err, errors.ErrCodeJobNotFound, "job")
	}
	return &j, nil
}

// Search matches query against title, company and skills, newest postings first.
// An empty query lists the newest jobs.
func (r *JobRepository) Search(ctx context.Context, query string, limit, offset int) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+` FROM jobs
WHERE $1 = ''
	OR title ILIKE '%' || $4 || '%' ESCAPE '\'
	OR company ILIKE '%' || $4 || '%' ESCAPE '\'
	OR EXISTS (SELECT 1 FROM unnest(skills) s WHERE s ILIKE $4 ESCAPE '\')
ORDER BY posted_at DESC NULLS LAST, created_at DESC
LIMIT $2 OFFSET $3
`, query, limit, offset, escapeLike(query))
	if err != nil {
		return nil, storageErr(err, "search jobs")
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(jobScanTargets(&j)...); err != nil {
			return nil, storageErr(err, "scan job")
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "search jobs")
	}
	return out, nil
}

// MatchByEmbedding returns the limit jobs closest to embedding by cosine distance
func (r *JobRepository) MatchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.JobMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+`, 1 - (embedding <=> $1) AS similarity
FROM jobs
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2
`, vec, limit)
	if err != nil {
		return nil, storageErr(err, "match jobs")
	}
	defer rows.Close()

	var out []domain.JobMatch
	for rows.Next() {
		var m domain.JobMatch
		targets := append(jobScanTargets(&m.Job), &m.Similarity)
		if err := rows.Scan(targets...); err != nil {
			return nil, storageErr(err, "scan job match")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "match jobs")
	}
	return out, nil
}

// Count returns the number of stored jobs
func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM jobs`).Scan(&n); err != nil {
		return 0, storageErr(err, "count jobs")
	}
	return n, nil
}

