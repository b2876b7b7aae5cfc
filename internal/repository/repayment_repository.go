package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/models"
)

var (
	ErrRepaymentNotFound      = errors.New("balance payment not found")
	ErrRepaymentNotPending    = errors.New("balance payment is not pending")
	ErrRepaymentPendingExists = errors.New("a pending balance payment already exists")
	ErrNoOutstandingBalance   = errors.New("no outstanding balance to repay")
)

type RepaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

// Create opens a pending repayment whose amount snapshots the runner's
// current balance. The ledger row is locked so the snapshot cannot race a
// concurrent commission posting, and only one pending repayment may exist
// per runner.
func (r *RepaymentRepository) Create(ctx context.Context, runnerID uuid.UUID, proofRef *string, method string, notes *string) (*models.BalancePayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance decimal.Decimal
	err = tx.GetContext(ctx, &balance, `
		SELECT current_balance FROM runner_ledgers WHERE runner_id = $1 FOR UPDATE
	`, runnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoOutstandingBalance
		}
		return nil, fmt.Errorf("repayment repository: create lock ledger %w", err)
	}
	if balance.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNoOutstandingBalance
	}

	var pending int
	err = tx.GetContext(ctx, &pending, `
		SELECT COUNT(*) FROM balance_payments WHERE runner_id = $1 AND status = $2
	`, runnerID, models.RepaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("repayment repository: create check pending %w", err)
	}
	if pending > 0 {
		return nil, ErrRepaymentPendingExists
	}

	var p models.BalancePayment
	err = tx.GetContext(ctx, &p, `
		INSERT INTO balance_payments (runner_id, amount, proof_ref, payment_method, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, runnerID, balance, proofRef, method, models.RepaymentStatusPending, notes)
	if err != nil {
		return nil, fmt.Errorf("repayment repository: create insert %w", err)
	}

	return &p, tx.Commit()
}

// GetByID returns a balance payment.
func (r *RepaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BalancePayment, error) {
	var p models.BalancePayment
	err := r.db.GetContext(ctx, &p, `SELECT * FROM balance_payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRepaymentNotFound
		}
		return nil, fmt.Errorf("repayment repository: get by id %w", err)
	}
	return &p, nil
}

// Approve marks the repayment approved and applies it to the runner's ledger
// in the same transaction. The repayment row is locked for the status check
// so concurrent approvals cannot both pass.
func (r *RepaymentRepository) Approve(ctx context.Context, id, adminID uuid.UUID, notes *string) (*models.BalancePayment, *models.RunnerLedger, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	p, err := lockPendingRepayment(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := applyRepayment(ctx, tx, p.RunnerID, p.Amount, "balance payment "+p.ID.String())
	if err != nil {
		return nil, nil, err
	}

	err = tx.GetContext(ctx, p, `
		UPDATE balance_payments
		SET status = $2, approved_by = $3, notes = COALESCE($4, notes), processed_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, models.RepaymentStatusApproved, adminID, notes)
	if err != nil {
		return nil, nil, fmt.Errorf("repayment repository: approve update %w", err)
	}

	return p, ledger, tx.Commit()
}

// Reject marks the repayment rejected. The runner may resubmit.
func (r *RepaymentRepository) Reject(ctx context.Context, id, adminID uuid.UUID, reason string) (*models.BalancePayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := lockPendingRepayment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, p, `
		UPDATE balance_payments
		SET status = $2, approved_by = $3, rejection_reason = $4, processed_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, models.RepaymentStatusRejected, adminID, reason)
	if err != nil {
		return nil, fmt.Errorf("repayment repository: reject update %w", err)
	}

	return p, tx.Commit()
}

// ListByRunner returns the runner's repayment history, newest first.
func (r *RepaymentRepository) ListByRunner(ctx context.Context, runnerID uuid.UUID, limit, offset int) ([]models.BalancePayment, error) {
	var payments []models.BalancePayment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT * FROM balance_payments WHERE runner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, runnerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repayment repository: list by runner %w", err)
	}
	return payments, nil
}

// ListPending returns all repayments waiting for admin review.
func (r *RepaymentRepository) ListPending(ctx context.Context, limit, offset int) ([]models.BalancePayment, error) {
	var payments []models.BalancePayment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT * FROM balance_payments WHERE status = $1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`, models.RepaymentStatusPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repayment repository: list pending %w", err)
	}
	return payments, nil
}

func lockPendingRepayment(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.BalancePayment, error) {
	var p models.BalancePayment
	err := tx.GetContext(ctx, &p, `SELECT * FROM balance_payments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRepaymentNotFound
		}
		return nil, fmt.Errorf("repayment repository: lock %w", err)
	}
	if p.Status != models.RepaymentStatusPending {
		return nil, ErrRepaymentNotPending
	}
	return &p, nil
}
