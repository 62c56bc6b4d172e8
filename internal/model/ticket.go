package model

import (
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusWaiting   TicketStatus = "waiting"
	TicketStatusCalled    TicketStatus = "called"
	TicketStatusServed    TicketStatus = "served"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusNoShow    TicketStatus = "no_show"
)

// Ticket is one numbered slot in a department queue.
type Ticket struct {
	Base
	OrganizationID uuid.UUID    `json:"organization_id" db:"organization_id"`
	BranchID       uuid.UUID    `json:"branch_id" db:"branch_id"`
	DepartmentID   uuid.UUID    `json:"department_id" db:"department_id"`
	Number         string       `json:"number" db:"number"`
	CustomerName   *string      `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone  *string      `json:"customer_phone,omitempty" db:"customer_phone"`
	Status         TicketStatus `json:"status" db:"status"`
	Counter        *string      `json:"counter,omitempty" db:"counter"`
	CalledAt       *time.Time   `json:"called_at,omitempty" db:"called_at"`
	ServedAt       *time.Time   `json:"served_at,omitempty" db:"served_at"`
}

// TicketFilters narrows ticket listings.
type TicketFilters struct {
	BaseFilter
	BranchID     uuid.UUID `json:"branch_id" form:"branch_id"`
	DepartmentID uuid.UUID `json:"department_id" form:"department_id"`
}

// QueueStats is an aggregate view over a department's tickets.
type QueueStats struct {
	Waiting        int64    `json:"waiting" db:"waiting"`
	Served         int64    `json:"served" db:"served"`
	Cancelled      int64    `json:"cancelled" db:"cancelled"`
	AvgWaitSeconds *float64 `json:"avg_wait_seconds" db:"avg_wait_seconds"`
}

// QueueEvent is published to the realtime broker whenever a queue changes.
type QueueEvent struct {
	Type         string    `json:"type"`
	DepartmentID uuid.UUID `json:"department_id"`
	TicketID     uuid.UUID `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	Counter      *string   `json:"counter,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
