package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pasabuyph/backend/internal/goroutine"
	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
	"github.com/pasabuyph/backend/internal/repository"
)

// RepaymentRepo is the persistence surface for balance repayments.
type RepaymentRepo interface {
	Create(ctx context.Context, runnerID uuid.UUID, proofRef *string, method string, notes *string) (*models.BalancePayment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BalancePayment, error)
	Approve(ctx context.Context, id, adminID uuid.UUID, notes *string) (*models.BalancePayment, *models.RunnerLedger, error)
	Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.BalancePayment, error)
	ListByRunner(ctx context.Context, runnerID uuid.UUID, limit, offset int) ([]models.BalancePayment, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.BalancePayment, error)
}

// AdminDirectory lists admin accounts for repayment-notice fan-out.
type AdminDirectory interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// RepaymentService manages runner-submitted lump-sum repayments of commission
// debt and their admin review.
type RepaymentService struct {
	repo     RepaymentRepo
	admins   AdminDirectory
	notifier Notifier
}

func NewRepaymentService(repo RepaymentRepo, admins AdminDirectory, notifier Notifier) *RepaymentService {
	return &RepaymentService{repo: repo, admins: admins, notifier: notifier}
}

// Submit opens a pending repayment for the runner's full current balance and
// notifies every admin.
func (s *RepaymentService) Submit(ctx context.Context, runnerID uuid.UUID, proofRef *string, method string, notes *string) (*models.BalancePayment, error) {
	if _, ok := models.ValidPaymentMethods[method]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown payment method")
	}

	payment, err := s.repo.Create(ctx, runnerID, proofRef, method, notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoOutstandingBalance):
			return nil, apperror.ErrNoOutstandingDebt
		case errors.Is(err, repository.ErrRepaymentPendingExists):
			return nil, apperror.ErrRepaymentInFlight
		default:
			return nil, err
		}
	}

	s.fanOutToAdmins(models.NotifyBalancePaymentSubmitted, payment)

	return payment, nil
}

// Approve accepts the repayment and applies it to the runner's ledger.
func (s *RepaymentService) Approve(ctx context.Context, adminID, id uuid.UUID, notes *string) (*models.BalancePayment, *models.RunnerLedger, error) {
	payment, ledger, err := s.repo.Approve(ctx, id, adminID, notes)
	if err != nil {
		return nil, nil, mapRepaymentRepoErr(err)
	}

	s.notifyAsync(payment.RunnerID, models.NotifyBalancePaymentApproved, payment)

	return payment, ledger, nil
}

// Reject declines the repayment; the runner may resubmit.
func (s *RepaymentService) Reject(ctx context.Context, adminID, id uuid.UUID, reason string) (*models.BalancePayment, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "a rejection reason is required")
	}

	payment, err := s.repo.Reject(ctx, id, adminID, reason)
	if err != nil {
		return nil, mapRepaymentRepoErr(err)
	}

	s.notifyAsync(payment.RunnerID, models.NotifyBalancePaymentRejected, payment)

	return payment, nil
}

// ListByRunner returns the runner's repayment history.
func (s *RepaymentService) ListByRunner(ctx context.Context, runnerID uuid.UUID, limit, offset int) ([]models.BalancePayment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRunner(ctx, runnerID, limit, offset)
}

// ListPending returns repayments awaiting admin review.
func (s *RepaymentService) ListPending(ctx context.Context, limit, offset int) ([]models.BalancePayment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPending(ctx, limit, offset)
}

func (s *RepaymentService) fanOutToAdmins(kind string, data interface{}) {
	if s.notifier == nil || s.admins == nil {
		return
	}
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		admins, err := s.admins.ListAdmins(ctx)
		if err != nil {
			return
		}
		for _, admin := range admins {
			_ = s.notifier.Notify(ctx, admin.ID, kind, data, 0)
		}
	})
}

func (s *RepaymentService) notifyAsync(userID uuid.UUID, kind string, data interface{}) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.notifier.Notify(ctx, userID, kind, data, 0)
	})
}

func mapRepaymentRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrRepaymentNotFound):
		return apperror.ErrRepaymentNotFound
	case errors.Is(err, repository.ErrRepaymentNotPending):
		return apperror.ErrRepaymentNotPending
	case errors.Is(err, repository.ErrLedgerNotFound):
		return apperror.ErrLedgerNotFound
	case errors.Is(err, repository.ErrExceedsBalance):
		return apperror.ErrExceedsBalance
	default:
		return err
	}
}
