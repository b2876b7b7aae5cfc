package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
	"github.com/pasabuyph/backend/internal/repository"
)

type mockRepaymentRepo struct {
	mock.Mock
}

func (m *mockRepaymentRepo) Create(ctx context.Context, runnerID uuid.UUID, proofRef *string, method string, notes *string) (*models.BalancePayment, error) {
	args := m.Called(ctx, runnerID, proofRef, method, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalancePayment), args.Error(1)
}

func (m *mockRepaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BalancePayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalancePayment), args.Error(1)
}

func (m *mockRepaymentRepo) Approve(ctx context.Context, id, adminID uuid.UUID, notes *string) (*models.BalancePayment, *models.RunnerLedger, error) {
	args := m.Called(ctx, id, adminID, notes)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.BalancePayment), args.Get(1).(*models.RunnerLedger), args.Error(2)
}

func (m *mockRepaymentRepo) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.BalancePayment, error) {
	args := m.Called(ctx, id, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalancePayment), args.Error(1)
}

func (m *mockRepaymentRepo) ListByRunner(ctx context.Context, runnerID uuid.UUID, limit, offset int) ([]models.BalancePayment, error) {
	args := m.Called(ctx, runnerID, limit, offset)
	return args.Get(0).([]models.BalancePayment), args.Error(1)
}

func (m *mockRepaymentRepo) ListPending(ctx context.Context, limit, offset int) ([]models.BalancePayment, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.BalancePayment), args.Error(1)
}

func TestRepaymentService_Submit_SnapshotsBalance(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	payment := &models.BalancePayment{
		ID:            uuid.New(),
		RunnerID:      runnerID,
		Amount:        decimal.NewFromFloat(45.50),
		PaymentMethod: models.PaymentMethodGCash,
		Status:        models.RepaymentStatusPending,
	}
	repo.On("Create", ctx, runnerID, (*string)(nil), models.PaymentMethodGCash, (*string)(nil)).Return(payment, nil)

	result, err := svc.Submit(ctx, runnerID, nil, models.PaymentMethodGCash, nil)

	assert.NoError(t, err)
	assert.True(t, result.Amount.Equal(decimal.NewFromFloat(45.50)))
	assert.Equal(t, models.RepaymentStatusPending, result.Status)
}

func TestRepaymentService_Submit_UnknownMethod(t *testing.T) {
	svc := NewRepaymentService(new(mockRepaymentRepo), nil, nil)

	_, err := svc.Submit(context.Background(), uuid.New(), nil, "cash_app", nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestRepaymentService_Submit_NoOutstandingDebt(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	repo.On("Create", ctx, runnerID, (*string)(nil), models.PaymentMethodGCash, (*string)(nil)).
		Return(nil, repository.ErrNoOutstandingBalance)

	_, err := svc.Submit(ctx, runnerID, nil, models.PaymentMethodGCash, nil)
	assert.ErrorIs(t, err, apperror.ErrNoOutstandingDebt)
}

func TestRepaymentService_Submit_PendingAlreadyOpen(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	repo.On("Create", ctx, runnerID, (*string)(nil), models.PaymentMethodCOD, (*string)(nil)).
		Return(nil, repository.ErrRepaymentPendingExists)

	_, err := svc.Submit(ctx, runnerID, nil, models.PaymentMethodCOD, nil)
	assert.ErrorIs(t, err, apperror.ErrRepaymentInFlight)
}

func TestRepaymentService_Approve_ResetsLedger(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	adminID := uuid.New()
	id := uuid.New()
	runnerID := uuid.New()

	payment := &models.BalancePayment{
		ID:       id,
		RunnerID: runnerID,
		Amount:   decimal.NewFromInt(30),
		Status:   models.RepaymentStatusApproved,
	}
	ledger := &models.RunnerLedger{
		RunnerID:       runnerID,
		CurrentBalance: decimal.Zero,
		TotalPaid:      decimal.NewFromInt(30),
		Status:         models.LedgerStatusActive,
	}
	repo.On("Approve", ctx, id, adminID, (*string)(nil)).Return(payment, ledger, nil)

	gotPayment, gotLedger, err := svc.Approve(ctx, adminID, id, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.RepaymentStatusApproved, gotPayment.Status)
	assert.True(t, gotLedger.CurrentBalance.IsZero())
	assert.Nil(t, gotLedger.BalanceStartedAt)
}

func TestRepaymentService_Approve_NotPending(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	id := uuid.New()
	adminID := uuid.New()
	repo.On("Approve", ctx, id, adminID, (*string)(nil)).
		Return(nil, nil, repository.ErrRepaymentNotPending)

	_, _, err := svc.Approve(ctx, adminID, id, nil)
	assert.ErrorIs(t, err, apperror.ErrRepaymentNotPending)
}

func TestRepaymentService_Reject_RequiresReason(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)

	_, err := svc.Reject(context.Background(), uuid.New(), uuid.New(), "")
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRepaymentService_ListByRunner_ClampsLimit(t *testing.T) {
	repo := new(mockRepaymentRepo)
	svc := NewRepaymentService(repo, nil, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	repo.On("ListByRunner", ctx, runnerID, 20, 0).Return([]models.BalancePayment{}, nil)

	_, err := svc.ListByRunner(ctx, runnerID, 500, -3)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
