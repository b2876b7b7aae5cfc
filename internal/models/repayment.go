package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance repayment statuses.
const (
	RepaymentStatusPending  = "pending"
	RepaymentStatusApproved = "approved"
	RepaymentStatusRejected = "rejected"
)

// BalancePayment is a runner's lump-sum repayment of accumulated commission
// debt, pending admin approval. Amount is the ledger balance snapshotted at
// submission time.
type BalancePayment struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	RunnerID        uuid.UUID       `db:"runner_id" json:"runner_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	ProofRef        *string         `db:"proof_ref" json:"proof_ref,omitempty"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Status          string          `db:"status" json:"status"`
	ApprovedBy      *uuid.UUID      `db:"approved_by" json:"approved_by,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// StatusDisplay returns a human readable status string.
func (p *BalancePayment) StatusDisplay() string {
	switch p.Status {
	case RepaymentStatusPending:
		return "Waiting for admin review"
	case RepaymentStatusApproved:
		return "Approved, balance updated"
	case RepaymentStatusRejected:
		return "Rejected, resubmit with a valid proof"
	default:
		return p.Status
	}
}
