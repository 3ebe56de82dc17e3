package repository

import (
	"context"
	stderrors "errors"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository stores accounts, plans and credit balances
type UserRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, name, plan, plan_expires_at, credits, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Plan, &u.PlanExpiresAt, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get loads a user by id
func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeUserNotFound, "user")
	}
	return u, nil
}

// Ensure inserts u if no user with its id exists, then returns the stored user.
// A new user starts with u.Credits; an existing one is returned unchanged.
func (r *UserRepository) Ensure(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.Plan == "" {
		u.Plan = domain.PlanFree
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO users (id, email, name, plan, credits, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (id) DO NOTHING
`, u.ID, u.Email, u.Name, u.Plan, u.Credits, u.CreatedAt)
	if err != nil {
		return nil, storageErr(err, "ensure user")
	}
	return r.Get(ctx, u.ID)
}

// SpendCredits atomically deducts cost and returns the remaining balance.
// The balance never goes negative; a short balance yields an insufficient credits error.
func (r *UserRepository) SpendCredits(ctx context.Context, id string, cost int) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx, `
UPDATE users SET credits = credits - $2, updated_at = now()
WHERE id = $1 AND credits >= $2
RETURNING credits
`, id, cost).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !stderrors.Is(err, pgx.ErrNoRows) {
		return 0, storageErr(err, "spend credits")
	}

	u, getErr := r.Get(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	return 0, errors.NewInsufficientCreditsError(cost, u.Credits)
}

// RefundCredits gives amount credits back to the user
func (r *UserRepository) RefundCredits(ctx context.Context, id string, amount int) error {
	if amount <= 0 {
		return nil
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET credits = credits + $2, updated_at = now() WHERE id = $1`, id, amount)
	if err != nil {
		return storageErr(err, "refund credits")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError(errors.ErrCodeUserNotFound, "user not found")
	}
	return nil
}

// ListExpiredPlans returns up to limit users whose paid plan expired at or before now
func (r *UserRepository) ListExpiredPlans(ctx context.Context, now time.Time, limit int) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+` FROM users
WHERE plan <> 'FREE' AND plan_expires_at IS NOT NULL AND plan_expires_at <= $1
ORDER BY plan_expires_at
LIMIT $2
`, now, limit)
	if err != nil {
		return nil, storageErr(err, "list expired plans")
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageErr(err, "scan user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list expired plans")
	}
	return users, nil
}

// ExpirePlan downgrades the user to FREE if the plan is still expired at now.
// It reports false when a concurrent renewal got there first.
func (r *UserRepository) ExpirePlan(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET plan = 'FREE', plan_expires_at = NULL, updated_at = $2
WHERE id = $1 AND plan <> 'FREE' AND plan_expires_at IS NOT NULL AND plan_expires_at <= $2
`, id, now)
	if err != nil {
		return false, storageErr(err, "expire plan")
	}
	return tag.RowsAffected() == 1, nil
}
