package repository

import (
	"context"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository stores plan purchases
type TransactionRepository struct {
	pool *pgxpool.Pool
}

const transactionColumns = `id, user_id, reference, plan, amount, currency, provider, status, completed_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Reference, &t.Plan, &t.Amount, &t.Currency, &t.Provider,
		&t.Status, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a PENDING transaction
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	_, err := r.pool.Exec(ctx, `
INSERT INTO transactions (id, user_id, reference, plan, amount, currency, provider, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, t.ID, t.UserID, t.Reference, t.Plan, t.Amount, t.Currency, t.Provider, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(errors.ErrCodeInvalidRequest, "transaction reference already used").
				WithContext("reference", t.Reference)
		}
		return storageErr(err, "insert transaction")
	}
	return nil
}

// GetByReference loads a transaction by its payment reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeTransactionNotFound, "transaction")
	}
	return t, nil
}

// ListByUser returns the user's transactions, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, storageErr(err, "list transactions")
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr(err, "scan transaction")
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list transactions")
	}
	return out, nil
}

func settleGuarded(ctx context.Context, q querier, t *domain.Transaction) error {
	tag, err := q.Exec(ctx, `
UPDATE transactions SET status = $2, completed_at = $3, updated_at = $4
WHERE reference = $1 AND status = 'PENDING'
`, t.Reference, t.Status, t.CompletedAt, t.UpdatedAt)
	if err != nil {
		return storageErr(err, "settle transaction")
	}
	if tag.RowsAffected() == 0 {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition, "transaction is no longer pending").
			WithContext("reference", t.Reference)
	}
	return nil
}

// Fail persists a FAILED settlement of a pending transaction
func (r *TransactionRepository) Fail(ctx context.Context, t *domain.Transaction) error {
	return settleGuarded(ctx, r.pool, t)
}

// CompleteWithPlan persists a SUCCESS settlement and upgrades the buyer in one
// database transaction. Credits are added, never overwritten, so spending that
// races with the upgrade is kept.
func (r *TransactionRepository) CompleteWithPlan(ctx context.Context, t *domain.Transaction, plan domain.Plan, expiresAt time.Time, credits int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := settleGuarded(ctx, tx, t); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
UPDATE users SET plan = $2, plan_expires_at = $3, credits = credits + $4, updated_at = $5
WHERE id = $1
`, t.UserID, plan, expiresAt, credits, t.UpdatedAt)
		if err != nil {
			return storageErr(err, "apply plan")
		}
		if tag.RowsAffected() == 0 {
			return errors.NewNotFoundError(errors.ErrCodeUserNotFound, "user not found")
		}
		return nil
	})
}
