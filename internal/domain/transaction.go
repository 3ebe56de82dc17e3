package domain

import (
	"fmt"
	"time"

	"niena/internal/errors"
)

// TransactionStatus is the payment state of a plan purchase
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Transaction records a plan purchase. The payment itself happens at an external gateway.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Reference   string            `json:"reference"`
	Plan        Plan              `json:"plan"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Provider    string            `json:"provider"`
	Status      TransactionStatus `json:"status"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Settle moves a PENDING transaction to SUCCESS or FAILED. Any other move is a conflict.
func (t *Transaction) Settle(to TransactionStatus, now time.Time) error {
	if to != TransactionSuccess && to != TransactionFailed {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("transaction cannot be settled as %s", to), nil)
	}
	if t.Status != TransactionPending {
		return errors.NewConflictError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("transaction %s is already %s", t.Reference, t.Status)).
			WithContext("reference", t.Reference)
	}
	t.Status = to
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}
