package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/pkg/logger"
)

type fakeSessionRepo struct {
	sessions map[string]*model.WhatsAppSession
	getCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*model.WhatsAppSession{}}
}

func (f *fakeSessionRepo) GetByPhone(ctx context.Context, phone string) (*model.WhatsAppSession, error) {
	f.getCalls++
	return f.sessions[phone], nil
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *model.WhatsAppSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.sessions[session.CustomerPhone] = session
	return nil
}

func (f *fakeSessionRepo) Extend(ctx context.Context, phone string, expiresAt time.Time) error {
	s, ok := f.sessions[phone]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.IsActive = true
	s.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessionRepo) Deactivate(ctx context.Context, phone string) error {
	if s, ok := f.sessions[phone]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeSessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for _, s := range f.sessions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			count++
		}
	}
	return count, nil
}

func newTestService(repo repository.SessionRepository) Service {
	return NewService(repo, 24*time.Hour, 30*time.Second, logger.NewLogger(nil))
}

func TestHasActiveSessionLazyExpiry(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.sessions["254712345678"] = &model.WhatsAppSession{
		CustomerPhone: "254712345678",
		IsActive:      true,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}

	svc := newTestService(repo)

	// Stored flag still says active, but the window has lapsed.
	live, err := svc.HasActiveSession(context.Background(), "+254712345678")
	require.NoError(t, err)
	assert.False(t, live)
}

func TestHasActiveSessionCachesLookups(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.sessions["254712345678"] = &model.WhatsAppSession{
		CustomerPhone: "254712345678",
		IsActive:      true,
		ExpiresAt:     time.Now().Add(time.Hour),
	}

	svc := newTestService(repo)

	for i := 0; i < 3; i++ {
		live, err := svc.HasActiveSession(context.Background(), "254712345678")
		require.NoError(t, err)
		assert.True(t, live)
	}
	assert.Equal(t, 1, repo.getCalls)
}

func TestMutationsInvalidateCache(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.sessions["254712345678"] = &model.WhatsAppSession{
		CustomerPhone: "254712345678",
		IsActive:      true,
		ExpiresAt:     time.Now().Add(time.Hour),
	}

	svc := newTestService(repo)

	live, err := svc.HasActiveSession(context.Background(), "254712345678")
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, svc.DeactivateSession(context.Background(), "254712345678"))

	live, err = svc.HasActiveSession(context.Background(), "254712345678")
	require.NoError(t, err)
	assert.False(t, live)
	assert.Equal(t, 2, repo.getCalls)
}

func TestCreateSessionNormalizesPhone(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestService(repo)

	session, err := svc.CreateSession(context.Background(), "+254 712 345 678", uuid.New(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "254712345678", session.CustomerPhone)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	_, ok := repo.sessions["254712345678"]
	assert.True(t, ok)
}

func TestExtendMissingSessionReturnsNotFound(t *testing.T) {
	svc := newTestService(newFakeSessionRepo())

	err := svc.ExtendSession(context.Background(), "254700000000")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestCleanupExpiredSessionsIsIdempotent(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.sessions["a"] = &model.WhatsAppSession{CustomerPhone: "a", IsActive: true, ExpiresAt: time.Now().Add(-time.Hour)}
	repo.sessions["b"] = &model.WhatsAppSession{CustomerPhone: "b", IsActive: true, ExpiresAt: time.Now().Add(time.Hour)}

	svc := newTestService(repo)

	count, err := svc.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = svc.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	assert.False(t, repo.sessions["a"].IsActive)
	assert.True(t, repo.sessions["b"].IsActive)
}
