package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification kinds emitted by the settlement core.
const (
	NotifyPaymentVerificationRequired = "payment_verification_required"
	NotifyPaymentApproved             = "payment_approved"
	NotifyPaymentRejected             = "payment_rejected"
	NotifyBalanceReminder             = "balance_reminder"
	NotifyBalancePaymentDue           = "balance_payment_due"
	NotifyBalanceWarning              = "balance_warning"
	NotifyBalanceCritical             = "balance_critical"
	NotifyBalancePaymentSubmitted     = "balance_payment_submitted"
	NotifyBalancePaymentApproved      = "balance_payment_approved"
	NotifyBalancePaymentRejected      = "balance_payment_rejected"
	NotifyAccountBanned               = "account_banned"
)

// Notification is an event delivered to a user.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Kind      string          `db:"kind" json:"kind"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	ExpiresAt *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
