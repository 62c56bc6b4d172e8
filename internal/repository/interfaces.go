package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
)

// ErrSessionNotFound is returned by SessionRepository.Extend when no session
// row exists for the phone number.
var ErrSessionNotFound = errors.New("whatsapp session not found")

// All repository interfaces in one file
type (
	OrganizationRepository interface {
		CreateOrganization(ctx context.Context, org *model.Organization) error
		GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
		UpdateOrganization(ctx context.Context, org *model.Organization) error
		DeleteOrganization(ctx context.Context, id uuid.UUID) error
		ListOrganizations(ctx context.Context) ([]*model.Organization, error)
	}

	BranchRepository interface {
		Create(ctx context.Context, branch *model.Branch) error
		Get(ctx context.Context, id uuid.UUID) (*model.Branch, error)
		Update(ctx context.Context, branch *model.Branch) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, organizationID uuid.UUID) ([]*model.Branch, error)
	}

	DepartmentRepository interface {
		Create(ctx context.Context, dept *model.Department) error
		Get(ctx context.Context, id uuid.UUID) (*model.Department, error)
		Update(ctx context.Context, dept *model.Department) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, branchID uuid.UUID) ([]*model.Department, error)
		// AllocateTicketNumber atomically bumps the department counter and
		// returns the formatted ticket number.
		AllocateTicketNumber(ctx context.Context, id uuid.UUID) (string, error)
	}

	TicketRepository interface {
		Create(ctx context.Context, ticket *model.Ticket) error
		Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
		Update(ctx context.Context, ticket *model.Ticket) error
		List(ctx context.Context, filters *model.TicketFilters) ([]*model.Ticket, error)
		OldestWaiting(ctx context.Context, departmentID uuid.UUID) (*model.Ticket, error)
		// WaitingAtPosition returns the waiting ticket at 1-based queue
		// position, or nil when the queue is shorter.
		WaitingAtPosition(ctx context.Context, departmentID uuid.UUID, position int) (*model.Ticket, error)
		QueuePosition(ctx context.Context, ticketID uuid.UUID) (int, error)
		CountWaiting(ctx context.Context, departmentID uuid.UUID) (int64, error)
		GetQueueStats(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (*model.QueueStats, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	// PreferenceRepository reads and writes per-customer notification
	// preferences. A missing row is not an error: GetByPhone returns
	// (nil, nil) and callers treat that as "no preference recorded yet".
	PreferenceRepository interface {
		GetByPhone(ctx context.Context, phone string) (*model.NotificationPreference, error)
		Upsert(ctx context.Context, organizationID uuid.UUID, phone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error)
	}

	SubscriptionRepository interface {
		Upsert(ctx context.Context, sub *model.PushSubscription) error
		ActiveByPhone(ctx context.Context, organizationID uuid.UUID, phone string) ([]*model.PushSubscription, error)
		ActiveByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.PushSubscription, error)
		Deactivate(ctx context.Context, id uuid.UUID) error
		DeactivateByPhone(ctx context.Context, organizationID uuid.UUID, phone string) error
		TouchLastUsed(ctx context.Context, id uuid.UUID) error
	}

	SessionRepository interface {
		GetByPhone(ctx context.Context, phone string) (*model.WhatsAppSession, error)
		Create(ctx context.Context, session *model.WhatsAppSession) error
		Extend(ctx context.Context, phone string, expiresAt time.Time) error
		Deactivate(ctx context.Context, phone string) error
		DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	}

	NotificationLogRepository interface {
		Create(ctx context.Context, entry *model.NotificationLogEntry) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.NotificationLogEntry, error)
	}
)
