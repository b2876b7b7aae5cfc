package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pasabuyph/backend/internal/models"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
	"github.com/pasabuyph/backend/internal/repository"
)

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *models.ErrandPayment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
		p.Status = models.PaymentStatusPending
	}
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByErrandID(ctx context.Context, errandID uuid.UUID) (*models.ErrandPayment, error) {
	args := m.Called(ctx, errandID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ErrandPayment), args.Error(1)
}

func (m *mockPaymentRepo) Approve(ctx context.Context, errandID uuid.UUID, earnings, commission decimal.Decimal) (*models.ErrandPayment, error) {
	args := m.Called(ctx, errandID, earnings, commission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ErrandPayment), args.Error(1)
}

func (m *mockPaymentRepo) Reject(ctx context.Context, errandID uuid.UUID, reason string) (*models.ErrandPayment, error) {
	args := m.Called(ctx, errandID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ErrandPayment), args.Error(1)
}

type mockErrandStore struct {
	mock.Mock
}

func (m *mockErrandStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Errand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Errand), args.Error(1)
}

func acceptedErrand(customerID, runnerID uuid.UUID) *models.Errand {
	return &models.Errand{
		ID:         uuid.New(),
		CustomerID: customerID,
		RunnerID:   &runnerID,
		Status:     models.ErrandStatusAccepted,
	}
}

func TestPaymentService_Submit_ComputesFees(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	customerID := uuid.New()
	runnerID := uuid.New()
	errand := acceptedErrand(customerID, runnerID)

	errands.On("GetByID", ctx, errand.ID).Return(errand, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.ErrandPayment")).Return(nil)

	payment, err := svc.Submit(ctx, runnerID, errand.ID, decimal.NewFromInt(100), nil, models.PaymentMethodGCash)

	assert.NoError(t, err)
	assert.True(t, payment.ServiceFee.Equal(decimal.NewFromInt(20)), "flat fee below the threshold")
	assert.True(t, payment.PlatformCommission.Equal(decimal.NewFromInt(3)))
	assert.True(t, payment.TotalAmount.Equal(decimal.NewFromInt(120)))
	assert.True(t, payment.RunnerEarnings().Equal(decimal.NewFromInt(17)))
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, customerID, payment.CustomerID)
}

func TestPaymentService_Submit_PercentageFeeAboveThreshold(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	errand := acceptedErrand(uuid.New(), runnerID)

	errands.On("GetByID", ctx, errand.ID).Return(errand, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.ErrandPayment")).Return(nil)

	payment, err := svc.Submit(ctx, runnerID, errand.ID, decimal.NewFromInt(200), nil, models.PaymentMethodCOD)

	assert.NoError(t, err)
	assert.True(t, payment.ServiceFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, payment.PlatformCommission.Equal(decimal.NewFromInt(6)))
	assert.True(t, payment.TotalAmount.Equal(decimal.NewFromInt(240)))
}

func TestPaymentService_Submit_Validation(t *testing.T) {
	svc := NewPaymentService(new(mockPaymentRepo), new(mockErrandStore), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, uuid.New(), uuid.New(), decimal.Zero, nil, models.PaymentMethodGCash)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Submit(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(-5), nil, models.PaymentMethodGCash)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Submit(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(100), nil, "paypal")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Submit(ctx, uuid.New(), uuid.New(), decimal.NewFromInt(100000), nil, models.PaymentMethodGCash)
	assert.True(t, apperror.IsValidation(err))
}

func TestPaymentService_Submit_NotAssigned(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	otherRunner := uuid.New()
	errand := acceptedErrand(uuid.New(), otherRunner)
	errands.On("GetByID", ctx, errand.ID).Return(errand, nil)

	_, err := svc.Submit(ctx, uuid.New(), errand.ID, decimal.NewFromInt(100), nil, models.PaymentMethodGCash)
	assert.ErrorIs(t, err, apperror.ErrNotAssigned)
}

func TestPaymentService_Submit_ErrandNotAccepted(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	errand := acceptedErrand(uuid.New(), runnerID)
	errand.Status = models.ErrandStatusCompleted
	errands.On("GetByID", ctx, errand.ID).Return(errand, nil)

	_, err := svc.Submit(ctx, runnerID, errand.ID, decimal.NewFromInt(100), nil, models.PaymentMethodGCash)
	assert.ErrorIs(t, err, apperror.ErrErrandNotAccepted)
}

func TestPaymentService_Submit_DuplicateBlocked(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	runnerID := uuid.New()
	errand := acceptedErrand(uuid.New(), runnerID)
	errands.On("GetByID", ctx, errand.ID).Return(errand, nil)
	payments.On("Create", ctx, mock.AnythingOfType("*models.ErrandPayment")).Return(repository.ErrPaymentPendingExists)

	_, err := svc.Submit(ctx, runnerID, errand.ID, decimal.NewFromInt(100), nil, models.PaymentMethodGCash)
	assert.ErrorIs(t, err, apperror.ErrAlreadyProcessed)
}

func TestPaymentService_Verify_ApprovePostsLedger(t *testing.T) {
	payments := new(mockPaymentRepo)
	errands := new(mockErrandStore)
	svc := NewPaymentService(payments, errands, nil)
	ctx := context.Background()

	customerID := uuid.New()
	runnerID := uuid.New()
	errandID := uuid.New()

	pending := &models.ErrandPayment{
		ID:                 uuid.New(),
		ErrandID:           errandID,
		RunnerID:           runnerID,
		CustomerID:         customerID,
		OriginalAmount:     decimal.NewFromInt(100),
		ServiceFee:         decimal.NewFromInt(20),
		PlatformCommission: decimal.NewFromInt(3),
		TotalAmount:        decimal.NewFromInt(120),
		Status:             models.PaymentStatusPending,
	}
	now := time.Now()
	approved := *pending
	approved.Status = models.PaymentStatusApproved
	approved.VerifiedAt = &now
	approved.ApprovedAt = &now

	payments.On("GetByErrandID", ctx, errandID).Return(pending, nil)
	payments.On("Approve", ctx, errandID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(17)) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(3)) }),
	).Return(&approved, nil)

	result, err := svc.Verify(ctx, customerID, errandID, true, "")

	assert.NoError(t, err)
	assert.True(t, result.IsApproved())
	assert.Nil(t, result.ApprovedBy, "customer verification needs no admin")
	payments.AssertExpectations(t)
}

func TestPaymentService_Verify_WrongCustomer(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewPaymentService(payments, new(mockErrandStore), nil)
	ctx := context.Background()

	errandID := uuid.New()
	pending := &models.ErrandPayment{
		ID:         uuid.New(),
		ErrandID:   errandID,
		CustomerID: uuid.New(),
		Status:     models.PaymentStatusPending,
	}
	payments.On("GetByErrandID", ctx, errandID).Return(pending, nil)

	_, err := svc.Verify(ctx, uuid.New(), errandID, true, "")
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
	payments.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Verify_AlreadyProcessed(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewPaymentService(payments, new(mockErrandStore), nil)
	ctx := context.Background()

	customerID := uuid.New()
	errandID := uuid.New()
	done := &models.ErrandPayment{
		ID:         uuid.New(),
		ErrandID:   errandID,
		CustomerID: customerID,
		Status:     models.PaymentStatusApproved,
	}
	payments.On("GetByErrandID", ctx, errandID).Return(done, nil)

	_, err := svc.Verify(ctx, customerID, errandID, true, "")
	assert.ErrorIs(t, err, apperror.ErrAlreadyProcessed)
}

func TestPaymentService_Verify_RejectRequiresReason(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewPaymentService(payments, new(mockErrandStore), nil)
	ctx := context.Background()

	customerID := uuid.New()
	errandID := uuid.New()
	pending := &models.ErrandPayment{
		ID:         uuid.New(),
		ErrandID:   errandID,
		CustomerID: customerID,
		Status:     models.PaymentStatusPending,
	}
	payments.On("GetByErrandID", ctx, errandID).Return(pending, nil)

	_, err := svc.Verify(ctx, customerID, errandID, false, "")
	assert.True(t, apperror.IsValidation(err))
	payments.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Verify_Reject(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewPaymentService(payments, new(mockErrandStore), nil)
	ctx := context.Background()

	customerID := uuid.New()
	errandID := uuid.New()
	pending := &models.ErrandPayment{
		ID:         uuid.New(),
		ErrandID:   errandID,
		RunnerID:   uuid.New(),
		CustomerID: customerID,
		Status:     models.PaymentStatusPending,
	}
	rejected := *pending
	rejected.Status = models.PaymentStatusRejected
	reason := "receipt does not match the declared amount"
	rejected.RejectionReason = &reason

	payments.On("GetByErrandID", ctx, errandID).Return(pending, nil)
	payments.On("Reject", ctx, errandID, reason).Return(&rejected, nil)

	result, err := svc.Verify(ctx, customerID, errandID, false, reason)

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRejected, result.Status)
	payments.AssertExpectations(t)
}

func TestPaymentService_GetByErrand_NotFound(t *testing.T) {
	payments := new(mockPaymentRepo)
	svc := NewPaymentService(payments, new(mockErrandStore), nil)
	ctx := context.Background()

	errandID := uuid.New()
	payments.On("GetByErrandID", ctx, errandID).Return(nil, repository.ErrPaymentNotFound)

	_, err := svc.GetByErrand(ctx, errandID)
	assert.True(t, apperror.IsNotFound(err))
}
