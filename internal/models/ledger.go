package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger statuses.
const (
	LedgerStatusActive  = "active"
	LedgerStatusOverdue = "payment_overdue"
)

// Derived repayment states, keyed by the age of the outstanding balance.
const (
	PaymentStateClear    = "clear"
	PaymentStateActive   = "active"
	PaymentStateReminder = "reminder"
	PaymentStateDue      = "due"
	PaymentStateOverdue  = "overdue"
)

// RunnerLedger tracks a runner's outstanding commission debt and cumulative
// earnings/repayments. The balance is money owed to the platform; earnings
// are the runner's own profit share and are never debited.
type RunnerLedger struct {
	RunnerID         uuid.UUID       `db:"runner_id" json:"runner_id"`
	CurrentBalance   decimal.Decimal `db:"current_balance" json:"current_balance"`
	TotalEarned      decimal.Decimal `db:"total_earned" json:"total_earned"`
	TotalPaid        decimal.Decimal `db:"total_paid" json:"total_paid"`
	BalanceStartedAt *time.Time      `db:"balance_started_at" json:"balance_started_at,omitempty"`
	LastPaymentDate  *time.Time      `db:"last_payment_date" json:"last_payment_date,omitempty"`
	Status           string          `db:"status" json:"status"`
	ReminderSent     bool            `db:"reminder_sent" json:"reminder_sent"`
	DueNoticeSent    bool            `db:"due_notice_sent" json:"due_notice_sent"`
	WarningSent      bool            `db:"warning_sent" json:"warning_sent"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentStatus is the derived repayment state of a ledger at a point in time.
type PaymentStatus struct {
	State       string `json:"state"`
	DaysElapsed int    `json:"days_elapsed"`
	DaysOverdue int    `json:"days_overdue"`
}

// DaysElapsed returns the whole days since the balance was first opened.
// Returns 0 when no balance cycle is running.
func (l *RunnerLedger) DaysElapsed(now time.Time) int {
	if l.BalanceStartedAt == nil {
		return 0
	}
	days := int(now.Sub(*l.BalanceStartedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PaymentStatus derives the repayment state from the balance age:
// clear / active (days 0-3) / reminder (day 4) / due (day 5) / overdue (>5).
func (l *RunnerLedger) PaymentStatus(now time.Time) PaymentStatus {
	if l.CurrentBalance.LessThanOrEqual(decimal.Zero) {
		return PaymentStatus{State: PaymentStateClear}
	}

	days := l.DaysElapsed(now)
	switch {
	case days <= 3:
		return PaymentStatus{State: PaymentStateActive, DaysElapsed: days}
	case days == 4:
		return PaymentStatus{State: PaymentStateReminder, DaysElapsed: days}
	case days == 5:
		return PaymentStatus{State: PaymentStateDue, DaysElapsed: days}
	default:
		return PaymentStatus{State: PaymentStateOverdue, DaysElapsed: days, DaysOverdue: days - 5}
	}
}

// StatusDisplay returns a human readable summary of the ledger state.
func (l *RunnerLedger) StatusDisplay(now time.Time) string {
	status := l.PaymentStatus(now)
	switch status.State {
	case PaymentStateClear:
		return "No outstanding balance"
	case PaymentStateActive:
		return "Balance open, pay within 5 days"
	case PaymentStateReminder:
		return "Reminder: balance payment due tomorrow"
	case PaymentStateDue:
		return "Balance payment due today"
	default:
		return "Payment overdue, account at risk of suspension"
	}
}
