package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/escalation"
	"github.com/pasabuyph/backend/internal/models"
)

var (
	ErrLedgerNotFound = errors.New("runner ledger not found")
	ErrExceedsBalance = errors.New("amount exceeds outstanding balance")
)

// Audit entry types for ledger postings.
const (
	entryTypeCommission = "commission"
	entryTypeEarnings   = "earnings"
	entryTypeRepayment  = "repayment"
)

type ledgerEntry struct {
	entryType string
	amount    decimal.Decimal
	memo      string
}

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// GetByRunnerID returns the runner's ledger.
func (r *LedgerRepository) GetByRunnerID(ctx context.Context, runnerID uuid.UUID) (*models.RunnerLedger, error) {
	var ledger models.RunnerLedger
	err := r.db.GetContext(ctx, &ledger, `SELECT * FROM runner_ledgers WHERE runner_id = $1`, runnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("ledger repository: get by runner %w", err)
	}
	return &ledger, nil
}

// DebitCommission adds commission debt to the runner's balance, opening a new
// balance cycle if none is running. The upsert is a single statement, so
// concurrent postings for the same runner serialize on the row without lost
// updates.
func (r *LedgerRepository) DebitCommission(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runner_ledgers (runner_id, current_balance, balance_started_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (runner_id) DO UPDATE SET
			current_balance = runner_ledgers.current_balance + EXCLUDED.current_balance,
			balance_started_at = COALESCE(runner_ledgers.balance_started_at, NOW()),
			updated_at = NOW()
	`, runnerID, amount)
	if err != nil {
		return fmt.Errorf("ledger repository: debit commission %w", err)
	}

	if err := insertLedgerEntries(ctx, tx, runnerID, ledgerEntry{entryTypeCommission, amount, memo}); err != nil {
		return err
	}

	return tx.Commit()
}

// CreditEarnings adds to the runner's cumulative profit. Independent of the
// debt balance.
func (r *LedgerRepository) CreditEarnings(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal, memo string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runner_ledgers (runner_id, total_earned)
		VALUES ($1, $2)
		ON CONFLICT (runner_id) DO UPDATE SET
			total_earned = runner_ledgers.total_earned + EXCLUDED.total_earned,
			updated_at = NOW()
	`, runnerID, amount)
	if err != nil {
		return fmt.Errorf("ledger repository: credit earnings %w", err)
	}

	if err := insertLedgerEntries(ctx, tx, runnerID, ledgerEntry{entryTypeEarnings, amount, memo}); err != nil {
		return err
	}

	return tx.Commit()
}

// ProcessPayment applies an approved repayment to the runner's balance. When
// the balance reaches exactly zero the debt cycle fully resets: start
// timestamp and notice flags clear, status returns to active.
func (r *LedgerRepository) ProcessPayment(ctx context.Context, runnerID uuid.UUID, amount decimal.Decimal) (*models.RunnerLedger, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger, err := applyRepayment(ctx, tx, runnerID, amount, "manual balance repayment")
	if err != nil {
		return nil, err
	}

	return ledger, tx.Commit()
}

// ListWithBalance returns every ledger with an open balance, for the
// escalation batch.
func (r *LedgerRepository) ListWithBalance(ctx context.Context) ([]models.RunnerLedger, error) {
	var ledgers []models.RunnerLedger
	err := r.db.SelectContext(ctx, &ledgers, `
		SELECT * FROM runner_ledgers WHERE current_balance > 0 ORDER BY balance_started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list with balance %w", err)
	}
	return ledgers, nil
}

// ApplyNextEscalation evaluates the escalation policy against the ledger and
// persists the resulting flags in the same transaction, holding the ledger
// row lock throughout. An overlapping scheduler run blocks here, re-reads the
// updated flags and gets ActionNone, so a step can never fire twice.
func (r *LedgerRepository) ApplyNextEscalation(ctx context.Context, runnerID uuid.UUID, now time.Time) (escalation.Action, *models.RunnerLedger, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return escalation.ActionNone, nil, err
	}
	defer tx.Rollback()

	var ledger models.RunnerLedger
	err = tx.GetContext(ctx, &ledger, `SELECT * FROM runner_ledgers WHERE runner_id = $1 FOR UPDATE`, runnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escalation.ActionNone, nil, ErrLedgerNotFound
		}
		return escalation.ActionNone, nil, fmt.Errorf("ledger repository: escalation lock %w", err)
	}

	action := escalation.Evaluate(&ledger, now)

	var update string
	switch action {
	case escalation.ActionReminder:
		update = `UPDATE runner_ledgers SET reminder_sent = TRUE, updated_at = NOW() WHERE runner_id = $1`
		ledger.ReminderSent = true
	case escalation.ActionDueToday:
		update = `UPDATE runner_ledgers SET due_notice_sent = TRUE, updated_at = NOW() WHERE runner_id = $1`
		ledger.DueNoticeSent = true
	case escalation.ActionWarning:
		update = `UPDATE runner_ledgers SET warning_sent = TRUE, updated_at = NOW() WHERE runner_id = $1`
		ledger.WarningSent = true
	case escalation.ActionBan:
		// Not persisted here. The scheduler suspends the account first and
		// calls MarkOverdue once the ban took effect, so a failed ban is
		// re-attempted on the next sweep.
		return action, &ledger, tx.Commit()
	default:
		return escalation.ActionNone, &ledger, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, update, runnerID); err != nil {
		return escalation.ActionNone, nil, fmt.Errorf("ledger repository: escalation persist %w", err)
	}

	return action, &ledger, tx.Commit()
}

// MarkOverdue flags the ledger after the runner account has been suspended.
// Until this runs the policy keeps yielding the ban step, so the suspension
// is retried until it sticks.
func (r *LedgerRepository) MarkOverdue(ctx context.Context, runnerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runner_ledgers SET status = $2, updated_at = NOW() WHERE runner_id = $1
	`, runnerID, models.LedgerStatusOverdue)
	if err != nil {
		return fmt.Errorf("ledger repository: mark overdue %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLedgerNotFound
	}
	return nil
}

// applyRepayment holds the ledger row lock, checks the amount against the
// balance and applies the repayment. Shared by direct processing and admin
// approval of balance payments; callers own the transaction.
func applyRepayment(ctx context.Context, tx *sqlx.Tx, runnerID uuid.UUID, amount decimal.Decimal, memo string) (*models.RunnerLedger, error) {
	var ledger models.RunnerLedger
	err := tx.GetContext(ctx, &ledger, `SELECT * FROM runner_ledgers WHERE runner_id = $1 FOR UPDATE`, runnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("ledger repository: repayment lock %w", err)
	}

	if amount.GreaterThan(ledger.CurrentBalance) {
		return nil, ErrExceedsBalance
	}

	newBalance := ledger.CurrentBalance.Sub(amount)
	if newBalance.IsZero() {
		err = tx.GetContext(ctx, &ledger, `
			UPDATE runner_ledgers
			SET current_balance = 0,
			    total_paid = total_paid + $2,
			    last_payment_date = NOW(),
			    balance_started_at = NULL,
			    status = $3,
			    reminder_sent = FALSE,
			    due_notice_sent = FALSE,
			    warning_sent = FALSE,
			    updated_at = NOW()
			WHERE runner_id = $1
			RETURNING *
		`, runnerID, amount, models.LedgerStatusActive)
	} else {
		err = tx.GetContext(ctx, &ledger, `
			UPDATE runner_ledgers
			SET current_balance = $2,
			    total_paid = total_paid + $3,
			    last_payment_date = NOW(),
			    updated_at = NOW()
			WHERE runner_id = $1
			RETURNING *
		`, runnerID, newBalance, amount)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger repository: repayment update %w", err)
	}

	if err := insertLedgerEntries(ctx, tx, runnerID, ledgerEntry{entryTypeRepayment, amount, memo}); err != nil {
		return nil, err
	}

	return &ledger, nil
}

// insertLedgerEntries writes audit rows for money movements inside the
// caller's transaction.
func insertLedgerEntries(ctx context.Context, tx *sqlx.Tx, runnerID uuid.UUID, entries ...ledgerEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (runner_id, entry_type, amount, memo)
			VALUES ($1, $2, $3, $4)
		`, runnerID, e.entryType, e.amount, e.memo)
		if err != nil {
			return fmt.Errorf("ledger repository: insert entry %w", err)
		}
	}
	return nil
}
