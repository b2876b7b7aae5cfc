package escalation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pasabuyph/backend/internal/models"
)

func ledgerAgedDays(days int) *models.RunnerLedger {
	started := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return &models.RunnerLedger{
		CurrentBalance:   decimal.NewFromInt(50),
		BalanceStartedAt: &started,
		Status:           models.LedgerStatusActive,
	}
}

func TestEvaluate_ClearBalance(t *testing.T) {
	ledger := &models.RunnerLedger{CurrentBalance: decimal.Zero}
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))
}

func TestEvaluate_Ladder(t *testing.T) {
	// Daily runs with flags persisted after each step walk the full ladder:
	// day 4 reminder, day 5 due, day 6 warning, day 8 ban.
	cases := []struct {
		days   int
		before func(l *models.RunnerLedger)
		want   Action
	}{
		{0, nil, ActionNone},
		{3, nil, ActionNone},
		{4, nil, ActionReminder},
		{5, func(l *models.RunnerLedger) { l.ReminderSent = true }, ActionDueToday},
		{6, func(l *models.RunnerLedger) { l.ReminderSent = true; l.DueNoticeSent = true }, ActionWarning},
		{7, func(l *models.RunnerLedger) { l.ReminderSent = true; l.DueNoticeSent = true; l.WarningSent = true }, ActionNone},
		{8, func(l *models.RunnerLedger) { l.ReminderSent = true; l.DueNoticeSent = true; l.WarningSent = true }, ActionBan},
	}

	for _, tc := range cases {
		ledger := ledgerAgedDays(tc.days)
		if tc.before != nil {
			tc.before(ledger)
		}
		assert.Equal(t, tc.want, Evaluate(ledger, time.Now()), "day %d", tc.days)
	}
}

func TestEvaluate_ReminderFiresExactlyOnce(t *testing.T) {
	ledger := ledgerAgedDays(4)
	assert.Equal(t, ActionReminder, Evaluate(ledger, time.Now()))

	// Flags persisted, unchanged ledger: must yield nothing.
	ledger.ReminderSent = true
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))
}

func TestEvaluate_DueTodayNotSuppressedByReminderFlag(t *testing.T) {
	ledger := ledgerAgedDays(5)
	ledger.ReminderSent = true
	assert.Equal(t, ActionDueToday, Evaluate(ledger, time.Now()))
}

func TestEvaluate_WarningSkippedWhenAlreadySent(t *testing.T) {
	ledger := ledgerAgedDays(6)
	ledger.ReminderSent = true
	ledger.DueNoticeSent = true
	ledger.WarningSent = true
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))
}

func TestEvaluate_BanIsTerminal(t *testing.T) {
	ledger := ledgerAgedDays(9)
	assert.Equal(t, ActionBan, Evaluate(ledger, time.Now()))

	ledger.Status = models.LedgerStatusOverdue
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))
}

func TestEvaluate_NoReminderAfterDeadline(t *testing.T) {
	// After missed day-4/5 sweeps the first run at day 6 fires the warning;
	// a later run must not follow it with a friendlier reminder.
	ledger := ledgerAgedDays(6)
	assert.Equal(t, ActionWarning, Evaluate(ledger, time.Now()))

	ledger.WarningSent = true
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))

	ledger = ledgerAgedDays(7)
	ledger.WarningSent = true
	assert.Equal(t, ActionNone, Evaluate(ledger, time.Now()))
}

func TestEvaluate_LateFirstRunPrefersSeverity(t *testing.T) {
	// A scheduler that was down for a week bans immediately instead of
	// replaying the whole notice ladder.
	ledger := ledgerAgedDays(10)
	assert.Equal(t, ActionBan, Evaluate(ledger, time.Now()))
}
