package model

import (
	"github.com/google/uuid"
)

// Organization status constants
const (
	OrganizationStatusActive    = "active"
	OrganizationStatusSuspended = "suspended"
)

// Organization is the tenant root: branches, departments, tickets and
// notification state all hang off an organization.
type Organization struct {
	Base
	Name     string  `json:"name" db:"name" binding:"required"`
	Slug     string  `json:"slug" db:"slug"`
	Status   string  `json:"status" db:"status"`
	LogoURL  *string `json:"logo_url,omitempty" db:"logo_url"`
	Timezone string  `json:"timezone" db:"timezone"`
	Settings JSONMap `json:"settings,omitempty" db:"-"`
}

// Branch is a physical location belonging to an organization.
type Branch struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name" binding:"required"`
	Address        *string   `json:"address,omitempty" db:"address"`
	Status         string    `json:"status" db:"status"`
}

// Department is a serviced queue within a branch. TicketPrefix and
// TicketCounter drive per-department ticket numbering.
type Department struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	BranchID       uuid.UUID `json:"branch_id" db:"branch_id"`
	Name           string    `json:"name" db:"name" binding:"required"`
	TicketPrefix   string    `json:"ticket_prefix" db:"ticket_prefix"`
	TicketCounter  int       `json:"ticket_counter" db:"ticket_counter"`
	Status         string    `json:"status" db:"status"`
}
