package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies the queue event a notification reports.
type NotificationType string

const (
	NotificationTicketCreated  NotificationType = "ticket_created"
	NotificationAlmostYourTurn NotificationType = "almost_your_turn"
	NotificationYourTurn       NotificationType = "your_turn"
)

// Delivery channels recorded in notification logs.
const (
	ChannelPush     = "push"
	ChannelWhatsApp = "whatsapp"
)

// NotificationPreference holds a customer's per-organization channel choices.
// At most one authoritative row exists per (organization, normalized phone).
// WhatsAppFallback is forced true on every upsert so the messaging channel is
// always available as a safety net.
type NotificationPreference struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OrganizationID   uuid.UUID `json:"organization_id" db:"organization_id"`
	CustomerPhone    string    `json:"customer_phone" db:"customer_phone"`
	PushEnabled      bool      `json:"push_enabled" db:"push_enabled"`
	PushDenied       bool      `json:"push_denied" db:"push_denied"`
	WhatsAppFallback bool      `json:"whatsapp_fallback" db:"whatsapp_fallback"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// PushSubscription is one browser push endpoint. Inactive subscriptions are
// never sent to; a permanent transport failure flips IsActive off instead of
// deleting the row.
type PushSubscription struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	TicketID       *uuid.UUID `json:"ticket_id,omitempty" db:"ticket_id"`
	CustomerPhone  *string    `json:"customer_phone,omitempty" db:"customer_phone"`
	Endpoint       string     `json:"endpoint" db:"endpoint"`
	P256DH         string     `json:"p256dh" db:"p256dh"`
	Auth           string     `json:"auth" db:"auth"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// WhatsAppSession tracks the open conversation window for one customer phone.
// A session is live iff IsActive is true AND ExpiresAt is in the future;
// expiry is evaluated at read time, the sweep flips stale rows later.
type WhatsAppSession struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	CustomerPhone  string     `json:"customer_phone" db:"customer_phone"`
	TicketID       *uuid.UUID `json:"ticket_id,omitempty" db:"ticket_id"`
	CustomerName   *string    `json:"customer_name,omitempty" db:"customer_name"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Live reports whether the session window is open at the given instant.
func (s *WhatsAppSession) Live(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// NotificationPayload is the channel-agnostic message content.
type NotificationPayload struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Data  JSONMap `json:"data,omitempty"`
}

// NotificationEvent is the ephemeral input to the delivery decision engine.
// It is never persisted as its own entity, only reflected in the log.
type NotificationEvent struct {
	OrganizationID uuid.UUID           `json:"organization_id"`
	TicketID       uuid.UUID           `json:"ticket_id"`
	TicketNumber   string              `json:"ticket_number"`
	CustomerPhone  string              `json:"customer_phone,omitempty"`
	Type           NotificationType    `json:"type"`
	Payload        NotificationPayload `json:"payload"`
}

// NotificationLogEntry is the append-only record of one delivery attempt.
type NotificationLogEntry struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	TicketID       uuid.UUID        `json:"ticket_id" db:"ticket_id"`
	TicketNumber   string           `json:"ticket_number" db:"ticket_number"`
	CustomerPhone  string           `json:"customer_phone" db:"customer_phone"`
	Type           NotificationType `json:"type" db:"type"`
	Channel        string           `json:"channel" db:"channel"`
	Success        bool             `json:"success" db:"success"`
	ErrorMessage   *string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// DeliveryResult summarizes what the notifier did for one event.
type DeliveryResult struct {
	PushAttempted    int    `json:"push_attempted"`
	PushSucceeded    int    `json:"push_succeeded"`
	WhatsAppDecision bool   `json:"whatsapp_decision"`
	WhatsAppReason   string `json:"whatsapp_reason"`
	WhatsAppSent     bool   `json:"whatsapp_sent"`
}
