package service

import (
	"context"
	"strings"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"
)

// Accounts lazily provisions users seen through the gateway and moves credits
type Accounts struct {
	users          UserStore
	initialCredits int
	recorder       Recorder
	logger         *errors.Logger
	now            func() time.Time
}

// NewAccounts creates the account helper; new users start with initialCredits
func NewAccounts(users UserStore, initialCredits int, logger *errors.Logger) *Accounts {
	return &Accounts{
		users:          users,
		initialCredits: initialCredits,
		recorder:       nopRecorder{},
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetRecorder sets the business metrics recorder
func (a *Accounts) SetRecorder(r Recorder) {
	if r != nil {
		a.recorder = r
	}
}

// Ensure returns the user, creating a FREE account on first sight.
// A paid plan found expired is downgraded before it is returned.
func (a *Accounts) Ensure(ctx context.Context, userID string) (*domain.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "user id is required", nil)
	}
	u, err := a.users.Ensure(ctx, &domain.User{ID: userID, Plan: domain.PlanFree, Credits: a.initialCredits})
	if err != nil {
		return nil, err
	}

	now := a.now()
	if u.PlanExpired(now) {
		if _, err := a.users.ExpirePlan(ctx, u.ID, now); err != nil {
			return nil, err
		}
		u.ExpirePlan(now)
	}
	return u, nil
}

// Charge ensures the user and deducts cost credits for operation
func (a *Accounts) Charge(ctx context.Context, userID string, cost int, operation string) error {
	if _, err := a.Ensure(ctx, userID); err != nil {
		return err
	}
	if cost <= 0 {
		return nil
	}
	remaining, err := a.users.SpendCredits(ctx, userID, cost)
	if err != nil {
		return err
	}
	a.recorder.RecordCreditsConsumed(ctx, operation, cost)
	a.logger.Debug("Credits charged", "user_id", userID, "operation", operation, "cost", cost, "remaining", remaining)
	return nil
}

// Refund returns cost credits after an operation could not be started
func (a *Accounts) Refund(ctx context.Context, userID string, cost int, operation string) {
	if cost <= 0 {
		return
	}
	if err := a.users.RefundCredits(context.WithoutCancel(ctx), userID, cost); err != nil {
		a.logger.LogError(err, "Failed to refund credits", "user_id", userID, "operation", operation, "credits", cost)
	}
}

// ExpirePlans downgrades every expired paid plan in batches of batchSize and returns the count
func (a *Accounts) ExpirePlans(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	now := a.now()
	expired := 0
	for {
		users, err := a.users.ListExpiredPlans(ctx, now, batchSize)
		if err != nil {
			return expired, err
		}
		changed := 0
		for _, u := range users {
			ok, err := a.users.ExpirePlan(ctx, u.ID, now)
			if err != nil {
				return expired, err
			}
			if ok {
				changed++
				a.logger.Info("Plan expired", "user_id", u.ID, "plan", u.Plan)
			}
		}
		expired += changed
		// A short page means nothing is left; a page with no changes means the rest raced with another replica
		if len(users) < batchSize || changed == 0 {
			return expired, nil
		}
	}
}
