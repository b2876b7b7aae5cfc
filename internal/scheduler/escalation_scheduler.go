// Package scheduler runs the periodic escalation sweep over runner debt
// ledgers.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pasabuyph/backend/internal/escalation"
	"github.com/pasabuyph/backend/internal/models"
)

// LedgerStore is the ledger surface the scheduler needs.
type LedgerStore interface {
	ListWithBalance(ctx context.Context) ([]models.RunnerLedger, error)
	ApplyNextEscalation(ctx context.Context, runnerID uuid.UUID, now time.Time) (escalation.Action, *models.RunnerLedger, error)
	MarkOverdue(ctx context.Context, runnerID uuid.UUID) error
}

// AccountStore bans runner accounts. Must be idempotent.
type AccountStore interface {
	Ban(ctx context.Context, id uuid.UUID, reason string, bannedAt time.Time) error
}

// Notifier delivers escalation notices.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind string, data interface{}, ttl time.Duration) error
}

// Notices older than this are stale and hidden from the user.
const noticeTTL = 7 * 24 * time.Hour

// Scheduler scans every ledger with an open balance, applies the escalation
// policy and fires the resulting side effects. Evaluation and flag
// persistence share one transaction per runner; side effects run after
// commit. One runner's failure never aborts the batch.
type Scheduler struct {
	ledgers  LedgerStore
	accounts AccountStore
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func New(ledgers LedgerStore, accounts AccountStore, notifier Notifier, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		ledgers:  ledgers,
		accounts: accounts,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Run performs one sweep. The returned error reflects only unrecoverable
// failures (listing the ledgers); per-runner errors are logged and retried on
// the next run, which is safe because the policy is idempotent.
func (s *Scheduler) Run(ctx context.Context) error {
	ledgers, err := s.ledgers.ListWithBalance(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	var fired, failed int
	for _, ledger := range ledgers {
		if err := s.processRunner(ctx, ledger.RunnerID, now); err != nil {
			failed++
			s.log.WithFields(logrus.Fields{
				"runner_id": ledger.RunnerID,
				"error":     err.Error(),
			}).Error("escalation step failed")
			continue
		}
		fired++
	}

	s.log.WithFields(logrus.Fields{
		"ledgers":   len(ledgers),
		"processed": fired,
		"failed":    failed,
	}).Info("escalation sweep finished")

	return nil
}

func (s *Scheduler) processRunner(ctx context.Context, runnerID uuid.UUID, now time.Time) error {
	action, ledger, err := s.ledgers.ApplyNextEscalation(ctx, runnerID, now)
	if err != nil {
		return err
	}
	if action == escalation.ActionNone {
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"runner_id": runnerID,
		"action":    action.String(),
		"days":      ledger.DaysElapsed(now),
	}).Info("escalation step")

	// Notice flags are already committed, so a notification failure here is
	// only a missed delivery, never a duplicate on the next run. The ban step
	// is the exception: the ledger stays unflagged until the suspension took
	// effect, so a failed ban is retried on the next sweep.
	switch action {
	case escalation.ActionReminder:
		return s.notifier.Notify(ctx, runnerID, models.NotifyBalanceReminder, ledger, noticeTTL)
	case escalation.ActionDueToday:
		return s.notifier.Notify(ctx, runnerID, models.NotifyBalancePaymentDue, ledger, noticeTTL)
	case escalation.ActionWarning:
		return s.notifier.Notify(ctx, runnerID, models.NotifyBalanceWarning, ledger, noticeTTL)
	case escalation.ActionBan:
		if err := s.accounts.Ban(ctx, runnerID, "unpaid platform commission balance", now); err != nil {
			return err
		}
		if err := s.ledgers.MarkOverdue(ctx, runnerID); err != nil {
			return err
		}
		ledger.Status = models.LedgerStatusOverdue
		if err := s.notifier.Notify(ctx, runnerID, models.NotifyBalanceCritical, ledger, noticeTTL); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, runnerID, models.NotifyAccountBanned, ledger, 0)
	}
	return nil
}
