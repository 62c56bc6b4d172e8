package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/pkg/logger"
)

// Service tracks WhatsApp conversation windows. A window opens when the
// customer messages in, is extended on renewed contact, and is considered
// closed once expired even before the sweep flips the stored flag.
type Service interface {
	CreateSession(ctx context.Context, rawPhone string, organizationID uuid.UUID, ticketID *uuid.UUID, customerName *string) (*model.WhatsAppSession, error)
	ExtendSession(ctx context.Context, rawPhone string) error
	DeactivateSession(ctx context.Context, rawPhone string) error
	HasActiveSession(ctx context.Context, rawPhone string) (bool, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type service struct {
	repo   repository.SessionRepository
	window time.Duration
	// liveness is a short-TTL read cache over HasActiveSession. Entries are
	// dropped on every mutation for the same phone and flushed on sweep.
	liveness *gocache.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

func NewService(repo repository.SessionRepository, window, cacheTTL time.Duration, log *logger.Logger) Service {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &service{
		repo:     repo,
		window:   window,
		liveness: gocache.New(cacheTTL, 2*cacheTTL),
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

func (s *service) CreateSession(ctx context.Context, rawPhone string, organizationID uuid.UUID, ticketID *uuid.UUID, customerName *string) (*model.WhatsAppSession, error) {
	norm := phone.Normalize(rawPhone)
	if norm == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	session := &model.WhatsAppSession{
		OrganizationID: organizationID,
		CustomerPhone:  norm,
		TicketID:       ticketID,
		CustomerName:   customerName,
		ExpiresAt:      time.Now().Add(s.window),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.liveness.Delete(norm)
	s.logger.Debug("whatsapp session opened", "phone", norm, "expires_at", session.ExpiresAt)
	return session, nil
}

func (s *service) ExtendSession(ctx context.Context, rawPhone string) error {
	norm := phone.Normalize(rawPhone)
	if err := s.repo.Extend(ctx, norm, time.Now().Add(s.window)); err != nil {
		return err
	}
	s.liveness.Delete(norm)
	return nil
}

func (s *service) DeactivateSession(ctx context.Context, rawPhone string) error {
	norm := phone.Normalize(rawPhone)
	if err := s.repo.Deactivate(ctx, norm); err != nil {
		return err
	}
	s.liveness.Delete(norm)
	return nil
}

// HasActiveSession applies lazy expiry: a stored row past its expires_at
// counts as closed even while is_active is still true.
func (s *service) HasActiveSession(ctx context.Context, rawPhone string) (bool, error) {
	norm := phone.Normalize(rawPhone)
	if norm == "" {
		return false, nil
	}

	if cached, ok := s.liveness.Get(norm); ok {
		return cached.(bool), nil
	}

	session, err := s.repo.GetByPhone(ctx, norm)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}

	now := time.Now()
	live := session != nil && session.Live(now)

	ttl := s.cacheTTL
	if live {
		// Never cache liveness past the window's own expiry.
		if remaining := session.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	s.liveness.Set(norm, live, ttl)

	return live, nil
}

func (s *service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	count, err := s.repo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if count > 0 {
		s.liveness.Flush()
		s.logger.Info("expired whatsapp sessions deactivated", "count", count)
	}
	return count, nil
}
