package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/fees"
	"github.com/pasabuyph/backend/internal/goroutine"
	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
	"github.com/pasabuyph/backend/internal/repository"
)

// ErrandPaymentRepo is the persistence surface for errand payments.
type ErrandPaymentRepo interface {
	Create(ctx context.Context, p *models.ErrandPayment) error
	GetByErrandID(ctx context.Context, errandID uuid.UUID) (*models.ErrandPayment, error)
	Approve(ctx context.Context, errandID uuid.UUID, earnings, commission decimal.Decimal) (*models.ErrandPayment, error)
	Reject(ctx context.Context, errandID uuid.UUID, reason string) (*models.ErrandPayment, error)
}

// ErrandStore reads errand assignments; the lifecycle belongs to the posting
// side of the platform.
type ErrandStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Errand, error)
}

// Notifier delivers fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, data interface{}, ttl time.Duration) error
}

// PaymentService manages the per-errand payment verification transaction:
// runner submission, customer verification and the commission posting on
// approval.
type PaymentService struct {
	payments ErrandPaymentRepo
	errands  ErrandStore
	notifier Notifier
}

func NewPaymentService(payments ErrandPaymentRepo, errands ErrandStore, notifier Notifier) *PaymentService {
	return &PaymentService{payments: payments, errands: errands, notifier: notifier}
}

// Submit creates a pending payment for an errand the runner has accepted.
// Fees are computed here and persisted on the transaction so historical rows
// stay reproducible if the fee policy changes.
func (s *PaymentService) Submit(ctx context.Context, runnerID, errandID uuid.UUID, amount decimal.Decimal, proofRef *string, method string) (*models.ErrandPayment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	if amount.GreaterThan(fees.MaxDeclaredSpend) {
		return nil, apperror.New(apperror.ErrCodeValidation, "amount exceeds the maximum declared spend")
	}
	if _, ok := models.ValidPaymentMethods[method]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown payment method")
	}

	errand, err := s.errands.GetByID(ctx, errandID)
	if err != nil {
		if errors.Is(err, repository.ErrErrandNotFound) {
			return nil, apperror.ErrErrandNotFound
		}
		return nil, err
	}
	if errand.RunnerID == nil || *errand.RunnerID != runnerID {
		return nil, apperror.ErrNotAssigned
	}
	if errand.Status != models.ErrandStatusAccepted {
		return nil, apperror.ErrErrandNotAccepted
	}

	payment := &models.ErrandPayment{
		ErrandID:           errandID,
		RunnerID:           runnerID,
		CustomerID:         errand.CustomerID,
		OriginalAmount:     amount,
		ServiceFee:         fees.ServiceFee(amount),
		PlatformCommission: fees.PlatformCommission(amount),
		TotalAmount:        fees.TotalAmount(amount),
		ProofRef:           proofRef,
		PaymentMethod:      method,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentAlreadyProcessed),
			errors.Is(err, repository.ErrPaymentPendingExists):
			return nil, apperror.ErrAlreadyProcessed
		default:
			return nil, err
		}
	}

	s.notifyAsync(payment.CustomerID, models.NotifyPaymentVerificationRequired, payment)

	return payment, nil
}

// Verify resolves a pending payment. Customer verification is the sole
// approval gate: on success the transaction is approved with no admin step
// (approvedBy stays null) and the earnings credit plus commission debit post
// to the runner ledger atomically with the status change. A rejection records
// the reason and posts nothing; the runner may resubmit.
func (s *PaymentService) Verify(ctx context.Context, customerID, errandID uuid.UUID, verified bool, reason string) (*models.ErrandPayment, error) {
	payment, err := s.payments.GetByErrandID(ctx, errandID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.CustomerID != customerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "only the errand's customer can verify the payment")
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, apperror.ErrAlreadyProcessed
	}

	if !verified {
		if reason == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "a rejection reason is required")
		}
		updated, err := s.payments.Reject(ctx, errandID, reason)
		if err != nil {
			return nil, mapPaymentRepoErr(err)
		}
		s.notifyAsync(updated.RunnerID, models.NotifyPaymentRejected, updated)
		return updated, nil
	}

	// The repository re-checks the pending status under a row lock, so a
	// concurrent verify posts the ledger exactly once.
	updated, err := s.payments.Approve(ctx, errandID, payment.RunnerEarnings(), payment.PlatformCommission)
	if err != nil {
		return nil, mapPaymentRepoErr(err)
	}
	s.notifyAsync(updated.RunnerID, models.NotifyPaymentApproved, updated)
	return updated, nil
}

// GetByErrand returns the latest payment attempt for an errand.
func (s *PaymentService) GetByErrand(ctx context.Context, errandID uuid.UUID) (*models.ErrandPayment, error) {
	payment, err := s.payments.GetByErrandID(ctx, errandID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// notifyAsync dispatches a notification after the financial mutation has
// committed. Delivery failures never affect the transaction outcome.
func (s *PaymentService) notifyAsync(userID uuid.UUID, kind string, data interface{}) {
	if s.notifier == nil {
		return
	}
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.notifier.Notify(ctx, userID, kind, data, 0)
	})
}

func mapPaymentRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return apperror.ErrPaymentNotFound
	case errors.Is(err, repository.ErrPaymentAlreadyProcessed):
		return apperror.ErrAlreadyProcessed
	default:
		return err
	}
}
