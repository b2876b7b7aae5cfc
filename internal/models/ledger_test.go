package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRunnerLedger_PaymentStatus(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name        string
		balance     int64
		agedDays    int
		wantState   string
		wantOverdue int
	}{
		{"clear when zero balance", 0, 10, PaymentStateClear, 0},
		{"active day 0", 50, 0, PaymentStateActive, 0},
		{"active day 3", 50, 3, PaymentStateActive, 0},
		{"reminder day 4", 50, 4, PaymentStateReminder, 0},
		{"due day 5", 50, 5, PaymentStateDue, 0},
		{"overdue day 6", 50, 6, PaymentStateOverdue, 1},
		{"overdue day 12", 50, 12, PaymentStateOverdue, 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			started := now.Add(-time.Duration(tc.agedDays) * 24 * time.Hour)
			ledger := &RunnerLedger{
				CurrentBalance:   decimal.NewFromInt(tc.balance),
				BalanceStartedAt: &started,
			}
			status := ledger.PaymentStatus(now)
			assert.Equal(t, tc.wantState, status.State)
			assert.Equal(t, tc.wantOverdue, status.DaysOverdue)
		})
	}
}

func TestRunnerLedger_DaysElapsed(t *testing.T) {
	now := time.Now()

	ledger := &RunnerLedger{}
	assert.Equal(t, 0, ledger.DaysElapsed(now))

	// Just under a full day still counts as day 0.
	started := now.Add(-23 * time.Hour)
	ledger.BalanceStartedAt = &started
	assert.Equal(t, 0, ledger.DaysElapsed(now))

	started = now.Add(-49 * time.Hour)
	assert.Equal(t, 2, ledger.DaysElapsed(now))
}

func TestErrandPayment_IsApproved_LegacyStatus(t *testing.T) {
	p := &ErrandPayment{Status: PaymentStatusCustomerVerified}
	assert.True(t, p.IsApproved())

	p.Status = PaymentStatusApproved
	assert.True(t, p.IsApproved())

	p.Status = PaymentStatusPending
	assert.False(t, p.IsApproved())
}

func TestErrandPayment_RunnerEarnings(t *testing.T) {
	p := &ErrandPayment{
		ServiceFee:         decimal.NewFromInt(20),
		PlatformCommission: decimal.NewFromInt(3),
	}
	assert.True(t, p.RunnerEarnings().Equal(decimal.NewFromInt(17)))
}
