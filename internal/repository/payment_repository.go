package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/pasabuyph/backend/internal/models"
)

var (
	ErrPaymentNotFound         = errors.New("errand payment not found")
	ErrPaymentAlreadyProcessed = errors.New("errand payment already processed")
	ErrPaymentPendingExists    = errors.New("a pending errand payment already exists")
)

// isUniqueViolation reports whether err is a postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type ErrandPaymentRepository struct {
	db *sqlx.DB
}

func NewErrandPaymentRepository(db *sqlx.DB) *ErrandPaymentRepository {
	return &ErrandPaymentRepository{db: db}
}

// Create inserts a fresh pending payment for an errand. Any earlier rejected
// attempt is removed; a live pending or approved transaction blocks the
// insert. The whole check-then-act runs under a lock on the errand's payment
// rows so two simultaneous submissions cannot both pass the uniqueness check.
func (r *ErrandPaymentRepository) Create(ctx context.Context, p *models.ErrandPayment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var statuses []string
	err = tx.SelectContext(ctx, &statuses, `
		SELECT status FROM errand_payments WHERE errand_id = $1 FOR UPDATE
	`, p.ErrandID)
	if err != nil {
		return fmt.Errorf("payment repository: create check existing %w", err)
	}
	for _, status := range statuses {
		switch status {
		case models.PaymentStatusApproved, models.PaymentStatusCustomerVerified:
			return ErrPaymentAlreadyProcessed
		case models.PaymentStatusPending:
			return ErrPaymentPendingExists
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM errand_payments
		WHERE errand_id = $1 AND status IN ($2, $3)
	`, p.ErrandID, models.PaymentStatusRejected, models.PaymentStatusCancelled)
	if err != nil {
		return fmt.Errorf("payment repository: create delete rejected %w", err)
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO errand_payments
			(errand_id, runner_id, customer_id, original_amount, service_fee,
			 platform_commission, total_amount, proof_ref, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, p.ErrandID, p.RunnerID, p.CustomerID, p.OriginalAmount, p.ServiceFee,
		p.PlatformCommission, p.TotalAmount, p.ProofRef, p.PaymentMethod,
		models.PaymentStatusPending).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		// Two first-time submissions race past the FOR UPDATE check when the
		// errand has no rows to lock; the partial unique index catches the
		// loser here.
		if isUniqueViolation(err) {
			return ErrPaymentPendingExists
		}
		return fmt.Errorf("payment repository: create insert %w", err)
	}
	p.Status = models.PaymentStatusPending

	return tx.Commit()
}

// GetByErrandID returns the latest payment attempt for an errand.
func (r *ErrandPaymentRepository) GetByErrandID(ctx context.Context, errandID uuid.UUID) (*models.ErrandPayment, error) {
	var p models.ErrandPayment
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM errand_payments WHERE errand_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, errandID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by errand %w", err)
	}
	return &p, nil
}

// Approve transitions the pending payment to approved and posts the runner's
// earnings credit and commission debit into the runner ledger, all in one
// transaction. The pending row is locked for the duration of the check so a
// concurrent verify call blocks, re-reads the row as approved and fails with
// ErrPaymentAlreadyProcessed instead of double-posting.
func (r *ErrandPaymentRepository) Approve(ctx context.Context, errandID uuid.UUID, earnings, commission decimal.Decimal) (*models.ErrandPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := lockLatestPayment(ctx, tx, errandID)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, p, `
		UPDATE errand_payments
		SET status = $2, verified_at = NOW(), approved_at = NOW()
		WHERE id = $1
		RETURNING *
	`, p.ID, models.PaymentStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("payment repository: approve update %w", err)
	}

	// Lazily create the ledger on first posting. The commission opens a new
	// balance cycle only if one is not already running.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runner_ledgers (runner_id, current_balance, total_earned, balance_started_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (runner_id) DO UPDATE SET
			current_balance = runner_ledgers.current_balance + EXCLUDED.current_balance,
			total_earned = runner_ledgers.total_earned + EXCLUDED.total_earned,
			balance_started_at = COALESCE(runner_ledgers.balance_started_at, NOW()),
			updated_at = NOW()
	`, p.RunnerID, commission, earnings)
	if err != nil {
		return nil, fmt.Errorf("payment repository: approve post ledger %w", err)
	}

	if err := insertLedgerEntries(ctx, tx, p.RunnerID,
		ledgerEntry{entryTypeEarnings, earnings, "service fee share for errand " + errandID.String()},
		ledgerEntry{entryTypeCommission, commission, "platform commission for errand " + errandID.String()},
	); err != nil {
		return nil, err
	}

	return p, tx.Commit()
}

// Reject transitions the pending payment to rejected. The runner may delete
// the attempt and resubmit.
func (r *ErrandPaymentRepository) Reject(ctx context.Context, errandID uuid.UUID, reason string) (*models.ErrandPayment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := lockLatestPayment(ctx, tx, errandID)
	if err != nil {
		return nil, err
	}

	err = tx.GetContext(ctx, p, `
		UPDATE errand_payments
		SET status = $2, verified_at = NOW(), rejection_reason = $3
		WHERE id = $1
		RETURNING *
	`, p.ID, models.PaymentStatusRejected, reason)
	if err != nil {
		return nil, fmt.Errorf("payment repository: reject update %w", err)
	}

	return p, tx.Commit()
}

// lockLatestPayment locks the newest payment row for an errand and verifies
// it is still pending.
func lockLatestPayment(ctx context.Context, tx *sqlx.Tx, errandID uuid.UUID) (*models.ErrandPayment, error) {
	var p models.ErrandPayment
	err := tx.GetContext(ctx, &p, `
		SELECT * FROM errand_payments WHERE errand_id = $1
		ORDER BY created_at DESC LIMIT 1
		FOR UPDATE
	`, errandID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: lock latest %w", err)
	}

	if p.Status != models.PaymentStatusPending {
		return nil, ErrPaymentAlreadyProcessed
	}
	return &p, nil
}
