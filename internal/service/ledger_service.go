package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
	"github.com/pasabuyph/backend/internal/repository"
)

// LedgerRepo is the persistence surface for runner debt ledgers.
type LedgerRepo interface {
	GetByRunnerID(ctx context.Context, runnerID uuid.UUID) (*models.RunnerLedger, error)
	DebitCommission(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error
	CreditEarnings(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error
	ProcessPayment(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal) (*models.RunnerLedger, error)
}

// LedgerService exposes the runner debt ledger: atomic debit/credit
// operations and the derived repayment status.
type LedgerService struct {
	repo LedgerRepo
}

func NewLedgerService(repo LedgerRepo) *LedgerService {
	return &LedgerService{repo: repo}
}

// GetLedger returns the runner's ledger. A runner with no postings yet gets
// an empty ledger snapshot rather than an error, since ledgers are created
// lazily on the first commission posting.
func (s *LedgerService) GetLedger(ctx context.Context, runnerID uuid.UUID) (*models.RunnerLedger, error) {
	ledger, err := s.repo.GetByRunnerID(ctx, runnerID)
	if err != nil {
		if errors.Is(err, repository.ErrLedgerNotFound) {
			return &models.RunnerLedger{
				RunnerID:       runnerID,
				CurrentBalance: decimal.Zero,
				TotalEarned:    decimal.Zero,
				TotalPaid:      decimal.Zero,
				Status:         models.LedgerStatusActive,
			}, nil
		}
		return nil, err
	}
	return ledger, nil
}

// DebitCommission adds commission debt to the runner's balance.
func (s *LedgerService) DebitCommission(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	return s.repo.DebitCommission(ctx, runnerID, amount, memo)
}

// CreditEarnings adds to the runner's cumulative profit.
func (s *LedgerService) CreditEarnings(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	return s.repo.CreditEarnings(ctx, runnerID, amount, memo)
}

// ProcessPayment applies a repayment to the balance.
func (s *LedgerService) ProcessPayment(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal) (*models.RunnerLedger, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	ledger, err := s.repo.ProcessPayment(ctx, runnerID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLedgerNotFound):
			return nil, apperror.ErrLedgerNotFound
		case errors.Is(err, repository.ErrExceedsBalance):
			return nil, apperror.ErrExceedsBalance
		default:
			return nil, err
		}
	}
	return ledger, nil
}

// PaymentStatus returns the ledger snapshot with its derived repayment state.
func (s *LedgerService) PaymentStatus(ctx context.Context, runnerID uuid.UUID, now time.Time) (*models.RunnerLedger, models.PaymentStatus, error) {
	ledger, err := s.GetLedger(ctx, runnerID)
	if err != nil {
		return nil, models.PaymentStatus{}, err
	}
	return ledger, ledger.PaymentStatus(now), nil
}
