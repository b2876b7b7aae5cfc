package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pasabuyph/backend/internal/escalation"
	"github.com/pasabuyph/backend/internal/models"
)

type mockLedgerStore struct {
	mock.Mock
}

func (m *mockLedgerStore) ListWithBalance(ctx context.Context) ([]models.RunnerLedger, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RunnerLedger), args.Error(1)
}

func (m *mockLedgerStore) ApplyNextEscalation(ctx context.Context, runnerID uuid.UUID, now time.Time) (escalation.Action, *models.RunnerLedger, error) {
	args := m.Called(ctx, runnerID, now)
	if args.Get(1) == nil {
		return args.Get(0).(escalation.Action), nil, args.Error(2)
	}
	return args.Get(0).(escalation.Action), args.Get(1).(*models.RunnerLedger), args.Error(2)
}

func (m *mockLedgerStore) MarkOverdue(ctx context.Context, runnerID uuid.UUID) error {
	args := m.Called(ctx, runnerID)
	return args.Error(0)
}

// fakeLedgerStore persists escalation flags the way the repository does, so
// multi-sweep behavior can be exercised against real policy evaluation.
type fakeLedgerStore struct {
	ledger models.RunnerLedger
}

func (f *fakeLedgerStore) ListWithBalance(ctx context.Context) ([]models.RunnerLedger, error) {
	return []models.RunnerLedger{f.ledger}, nil
}

func (f *fakeLedgerStore) ApplyNextEscalation(ctx context.Context, runnerID uuid.UUID, now time.Time) (escalation.Action, *models.RunnerLedger, error) {
	action := escalation.Evaluate(&f.ledger, now)
	switch action {
	case escalation.ActionReminder:
		f.ledger.ReminderSent = true
	case escalation.ActionDueToday:
		f.ledger.DueNoticeSent = true
	case escalation.ActionWarning:
		f.ledger.WarningSent = true
	}
	snapshot := f.ledger
	return action, &snapshot, nil
}

func (f *fakeLedgerStore) MarkOverdue(ctx context.Context, runnerID uuid.UUID) error {
	f.ledger.Status = models.LedgerStatusOverdue
	return nil
}

type mockAccountStore struct {
	mock.Mock
}

func (m *mockAccountStore) Ban(ctx context.Context, id uuid.UUID, reason string, bannedAt time.Time) error {
	args := m.Called(ctx, id, reason, bannedAt)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, kind string, data interface{}, ttl time.Duration) error {
	args := m.Called(ctx, userID, kind, data, ttl)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func openLedger(runnerID uuid.UUID, daysAgo int) models.RunnerLedger {
	started := time.Now().Add(-time.Duration(daysAgo) * 24 * time.Hour)
	return models.RunnerLedger{
		RunnerID:         runnerID,
		CurrentBalance:   decimal.NewFromInt(30),
		BalanceStartedAt: &started,
		Status:           models.LedgerStatusActive,
	}
}

func TestScheduler_Run_SendsReminder(t *testing.T) {
	ledgers := new(mockLedgerStore)
	accounts := new(mockAccountStore)
	notifier := new(mockNotifier)
	s := New(ledgers, accounts, notifier, quietLogger())

	runnerID := uuid.New()
	ledger := openLedger(runnerID, 4)

	ledgers.On("ListWithBalance", mock.Anything).Return([]models.RunnerLedger{ledger}, nil)
	ledgers.On("ApplyNextEscalation", mock.Anything, runnerID, mock.AnythingOfType("time.Time")).
		Return(escalation.ActionReminder, &ledger, nil)
	notifier.On("Notify", mock.Anything, runnerID, models.NotifyBalanceReminder, &ledger, noticeTTL).Return(nil)

	err := s.Run(context.Background())

	assert.NoError(t, err)
	notifier.AssertExpectations(t)
	accounts.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_Run_BanNotifiesAndSuspends(t *testing.T) {
	ledgers := new(mockLedgerStore)
	accounts := new(mockAccountStore)
	notifier := new(mockNotifier)
	s := New(ledgers, accounts, notifier, quietLogger())

	runnerID := uuid.New()
	ledger := openLedger(runnerID, 8)

	ledgers.On("ListWithBalance", mock.Anything).Return([]models.RunnerLedger{ledger}, nil)
	ledgers.On("ApplyNextEscalation", mock.Anything, runnerID, mock.AnythingOfType("time.Time")).
		Return(escalation.ActionBan, &ledger, nil)
	accounts.On("Ban", mock.Anything, runnerID, "unpaid platform commission balance", mock.AnythingOfType("time.Time")).Return(nil)
	ledgers.On("MarkOverdue", mock.Anything, runnerID).Return(nil)
	notifier.On("Notify", mock.Anything, runnerID, models.NotifyBalanceCritical, &ledger, noticeTTL).Return(nil)
	notifier.On("Notify", mock.Anything, runnerID, models.NotifyAccountBanned, &ledger, time.Duration(0)).Return(nil)

	err := s.Run(context.Background())

	assert.NoError(t, err)
	accounts.AssertExpectations(t)
	ledgers.AssertExpectations(t)
	notifier.AssertExpectations(t)
	assert.Equal(t, models.LedgerStatusOverdue, ledger.Status, "ledger flagged once the ban took effect")
}

func TestScheduler_Run_RetriesFailedBan(t *testing.T) {
	runnerID := uuid.New()
	ledgers := &fakeLedgerStore{ledger: openLedger(runnerID, 9)}
	accounts := new(mockAccountStore)
	notifier := new(mockNotifier)
	s := New(ledgers, accounts, notifier, quietLogger())

	accounts.On("Ban", mock.Anything, runnerID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(errors.New("connection reset")).Once()
	accounts.On("Ban", mock.Anything, runnerID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(nil)
	notifier.On("Notify", mock.Anything, runnerID, mock.AnythingOfType("string"), mock.Anything, mock.AnythingOfType("time.Duration")).
		Return(nil)

	assert.NoError(t, s.Run(context.Background()))
	assert.Equal(t, models.LedgerStatusActive, ledgers.ledger.Status, "failed suspension must leave the ledger unflagged")
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	assert.NoError(t, s.Run(context.Background()))
	accounts.AssertNumberOfCalls(t, "Ban", 2)
	assert.Equal(t, models.LedgerStatusOverdue, ledgers.ledger.Status)

	// A third sweep sees the overdue ledger and leaves the account alone.
	assert.NoError(t, s.Run(context.Background()))
	accounts.AssertNumberOfCalls(t, "Ban", 2)
}

func TestScheduler_Run_NoActionIsQuiet(t *testing.T) {
	ledgers := new(mockLedgerStore)
	accounts := new(mockAccountStore)
	notifier := new(mockNotifier)
	s := New(ledgers, accounts, notifier, quietLogger())

	runnerID := uuid.New()
	ledger := openLedger(runnerID, 2)

	ledgers.On("ListWithBalance", mock.Anything).Return([]models.RunnerLedger{ledger}, nil)
	ledgers.On("ApplyNextEscalation", mock.Anything, runnerID, mock.AnythingOfType("time.Time")).
		Return(escalation.ActionNone, &ledger, nil)

	err := s.Run(context.Background())

	assert.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_Run_ContinuesPastFailures(t *testing.T) {
	ledgers := new(mockLedgerStore)
	accounts := new(mockAccountStore)
	notifier := new(mockNotifier)
	s := New(ledgers, accounts, notifier, quietLogger())

	badRunner := uuid.New()
	goodRunner := uuid.New()
	bad := openLedger(badRunner, 4)
	good := openLedger(goodRunner, 4)

	ledgers.On("ListWithBalance", mock.Anything).Return([]models.RunnerLedger{bad, good}, nil)
	ledgers.On("ApplyNextEscalation", mock.Anything, badRunner, mock.AnythingOfType("time.Time")).
		Return(escalation.ActionNone, nil, errors.New("deadlock detected"))
	ledgers.On("ApplyNextEscalation", mock.Anything, goodRunner, mock.AnythingOfType("time.Time")).
		Return(escalation.ActionReminder, &good, nil)
	notifier.On("Notify", mock.Anything, goodRunner, models.NotifyBalanceReminder, &good, noticeTTL).Return(nil)

	err := s.Run(context.Background())

	assert.NoError(t, err, "one runner's failure must not abort the sweep")
	notifier.AssertExpectations(t)
}

func TestScheduler_Run_ListFailureIsFatal(t *testing.T) {
	ledgers := new(mockLedgerStore)
	s := New(ledgers, new(mockAccountStore), new(mockNotifier), quietLogger())

	ledgers.On("ListWithBalance", mock.Anything).Return(nil, errors.New("connection refused"))

	err := s.Run(context.Background())
	assert.Error(t, err)
}
