package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform roles.
const (
	RoleCustomer = "customer"
	RoleRunner   = "runner"
	RoleAdmin    = "admin"
)

// User describes a platform account.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsBanned     bool       `db:"is_banned" json:"is_banned"`
	BanReason    *string    `db:"ban_reason" json:"ban_reason,omitempty"`
	BannedAt     *time.Time `db:"banned_at" json:"banned_at,omitempty"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidRoles lists the roles accepted on registration.
var ValidRoles = map[string]struct{}{
	RoleCustomer: {},
	RoleRunner:   {},
	RoleAdmin:    {},
}
