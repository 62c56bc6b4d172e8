package model

import (
	"time"

	"github.com/google/uuid"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
	UserStatusLocked   = "locked"
)

// User type constants
const (
	UserTypeAdmin   = "admin"
	UserTypeManager = "manager"
	UserTypeAgent   = "agent"
)

// User represents a dashboard user (admin staff, branch manager, counter agent).
type User struct {
	Base
	OrganizationID   uuid.UUID  `json:"organization_id" db:"organization_id"`
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	Password         string     `json:"password,omitempty" db:"-"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Type             string     `json:"type" db:"type"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at" db:"last_login_at"`
	LoginAttempts    int        `json:"login_attempts" db:"login_attempts"`
	LastLoginAttempt time.Time  `json:"last_login_attempt" db:"last_login_attempt"`
}
