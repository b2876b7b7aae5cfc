package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errand payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusApproved  = "approved"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"

	// PaymentStatusCustomerVerified exists only on historical rows and is
	// equivalent to approved. New code must never write it; the backfill
	// migration rewrites remaining rows.
	PaymentStatusCustomerVerified = "customer_verified"
)

// Payment methods.
const (
	PaymentMethodGCash        = "gcash"
	PaymentMethodCOD          = "cod"
	PaymentMethodBankTransfer = "bank_transfer"
)

// ValidPaymentMethods lists the accepted payment methods.
var ValidPaymentMethods = map[string]struct{}{
	PaymentMethodGCash:        {},
	PaymentMethodCOD:          {},
	PaymentMethodBankTransfer: {},
}

// ErrandPayment is one payment attempt for an errand: the runner's declared
// spend plus the service fee, awaiting customer verification.
type ErrandPayment struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	ErrandID           uuid.UUID       `db:"errand_id" json:"errand_id"`
	RunnerID           uuid.UUID       `db:"runner_id" json:"runner_id"`
	CustomerID         uuid.UUID       `db:"customer_id" json:"customer_id"`
	OriginalAmount     decimal.Decimal `db:"original_amount" json:"original_amount"`
	ServiceFee         decimal.Decimal `db:"service_fee" json:"service_fee"`
	PlatformCommission decimal.Decimal `db:"platform_commission" json:"platform_commission"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	ProofRef           *string         `db:"proof_ref" json:"proof_ref,omitempty"`
	PaymentMethod      string          `db:"payment_method" json:"payment_method"`
	Status             string          `db:"status" json:"status"`
	VerifiedAt         *time.Time      `db:"verified_at" json:"verified_at,omitempty"`
	ApprovedAt         *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy         *uuid.UUID      `db:"approved_by" json:"approved_by,omitempty"`
	RejectionReason    *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// IsApproved reports whether the payment is terminally approved, covering the
// legacy customer_verified value on rows the backfill has not touched yet.
func (p *ErrandPayment) IsApproved() bool {
	return p.Status == PaymentStatusApproved || p.Status == PaymentStatusCustomerVerified
}

// RunnerEarnings is the runner's share of the service fee.
func (p *ErrandPayment) RunnerEarnings() decimal.Decimal {
	return p.ServiceFee.Sub(p.PlatformCommission)
}

// StatusDisplay returns a human readable status string.
func (p *ErrandPayment) StatusDisplay() string {
	switch p.Status {
	case PaymentStatusPending:
		return "Waiting for customer verification"
	case PaymentStatusApproved, PaymentStatusCustomerVerified:
		return "Verified and approved"
	case PaymentStatusRejected:
		return "Rejected, resubmit with a valid proof"
	case PaymentStatusCancelled:
		return "Cancelled"
	default:
		return p.Status
	}
}
