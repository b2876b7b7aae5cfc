package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrandStatus constants. The errand lifecycle itself is owned by the
// posting/matching side of the platform; the settlement core only reads it.
const (
	ErrandStatusPosted    = "posted"
	ErrandStatusAccepted  = "accepted"
	ErrandStatusCompleted = "completed"
	ErrandStatusCancelled = "cancelled"
	ErrandStatusExpired   = "expired"
)

// Errand describes a task posted by a customer and fulfilled by a runner.
type Errand struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	CustomerID    uuid.UUID       `db:"customer_id" json:"customer_id"`
	RunnerID      *uuid.UUID      `db:"runner_id" json:"runner_id,omitempty"`
	Title         string          `db:"title" json:"title"`
	EstimatedCost decimal.Decimal `db:"estimated_cost" json:"estimated_cost"`
	Status        string          `db:"status" json:"status"`
	AcceptedAt    *time.Time      `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// ValidErrandStatuses lists valid errand statuses.
var ValidErrandStatuses = map[string]struct{}{
	ErrandStatusPosted:    {},
	ErrandStatusAccepted:  {},
	ErrandStatusCompleted: {},
	ErrandStatusCancelled: {},
	ErrandStatusExpired:   {},
}
