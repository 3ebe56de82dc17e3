package service

import (
	"context"
	"strings"
	"time"

	"niena/internal/config"
	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// referencePrefix marks payment references issued by this service
const referencePrefix = "NIENA-"

// CreateTransactionInput starts a plan purchase
type CreateTransactionInput struct {
	Plan     domain.Plan `json:"plan"`
	Provider string      `json:"provider"`
}

// Account is the caller's profile with plan and credit balance
type Account struct {
	User         *domain.User         `json:"user"`
	Transactions []domain.Transaction `json:"transactions"`
}

// BillingService records plan purchases and applies them once the gateway settles them
type BillingService struct {
	accounts     *Accounts
	users        UserStore
	transactions TransactionStore
	plans        *config.Config
	logger       *errors.Logger
	now          func() time.Time
}

// NewBillingService creates the billing service; plan prices and grants come from cfg
func NewBillingService(accounts *Accounts, users UserStore, transactions TransactionStore, cfg *config.Config, logger *errors.Logger) *BillingService {
	return &BillingService{
		accounts:     accounts,
		users:        users,
		transactions: transactions,
		plans:        cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *BillingService) planConfig(plan domain.Plan) (config.PlanConfig, error) {
	if !plan.Paid() {
		return config.PlanConfig{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "plan must be PRO or PREMIUM", nil).
			WithContext("plan", plan)
	}
	pc, ok := s.plans.PlanConfigFor(string(plan))
	if !ok {
		return config.PlanConfig{}, errors.NewConfigError(errors.ErrCodeInvalidConfig, "plan is not configured", nil).
			WithContext("plan", plan)
	}
	return pc, nil
}

// CreateTransaction records a PENDING purchase and returns the reference the gateway reports back
func (s *BillingService) CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*domain.Transaction, error) {
	plan := domain.Plan(strings.ToUpper(strings.TrimSpace(string(in.Plan))))
	pc, err := s.planConfig(plan)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	t := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Reference: referencePrefix + shortuuid.New(),
		Plan:      plan,
		Amount:    pc.Price,
		Currency:  pc.Currency,
		Provider:  firstNonEmpty(in.Provider, "manual"),
		Status:    domain.TransactionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Transaction created", "reference", t.Reference, "user_id", userID, "plan", t.Plan, "amount", t.Amount)
	return t, nil
}

// CompleteTransaction settles a pending purchase as SUCCESS, upgrading the plan and
// granting its credits. Completing the same reference twice is a conflict.
func (s *BillingService) CompleteTransaction(ctx context.Context, reference string) (*domain.Transaction, *domain.User, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	pc, err := s.planConfig(t.Plan)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.Get(ctx, t.UserID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if err := t.Settle(domain.TransactionSuccess, now); err != nil {
		return nil, nil, err
	}
	u.ExpirePlan(now)
	u.ApplyPlan(t.Plan, pc.Duration, pc.Credits, now)

	if err := s.transactions.CompleteWithPlan(ctx, t, t.Plan, *u.PlanExpiresAt, pc.Credits); err != nil {
		return nil, nil, err
	}

	// Reload so the balance reflects spending that raced with the upgrade
	if fresh, err := s.users.Get(ctx, u.ID); err == nil {
		u = fresh
	}
	s.logger.Info("Transaction completed", "reference", reference, "user_id", u.ID, "plan", u.Plan, "credits", u.Credits)
	return t, u, nil
}

// FailTransaction settles a pending purchase as FAILED
func (s *BillingService) FailTransaction(ctx context.Context, reference string) (*domain.Transaction, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := t.Settle(domain.TransactionFailed, s.now()); err != nil {
		return nil, err
	}
	if err := s.transactions.Fail(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Transaction failed", "reference", reference, "user_id", t.UserID)
	return t, nil
}

// Me returns the caller's account, creating it on first use
func (s *BillingService) Me(ctx context.Context, userID string) (*Account, error) {
	u, err := s.accounts.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return &Account{User: u, Transactions: txs}, nil
}

// ExpirePlans downgrades expired paid plans; run from the scheduler
func (s *BillingService) ExpirePlans(ctx context.Context, batchSize int) (int, error) {
	return s.accounts.ExpirePlans(ctx, batchSize)
}
