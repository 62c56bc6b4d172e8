package preference

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/pkg/logger"
)

type prefUpsert struct {
	phone       string
	pushEnabled bool
	pushDenied  bool
}

type fakePrefRepo struct {
	upserts []prefUpsert
}

func (f *fakePrefRepo) GetByPhone(ctx context.Context, phone string) (*model.NotificationPreference, error) {
	return nil, nil
}

func (f *fakePrefRepo) Upsert(ctx context.Context, organizationID uuid.UUID, phone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error) {
	f.upserts = append(f.upserts, prefUpsert{phone: phone, pushEnabled: pushEnabled, pushDenied: pushDenied})
	return &model.NotificationPreference{
		OrganizationID:   organizationID,
		CustomerPhone:    phone,
		PushEnabled:      pushEnabled,
		PushDenied:       pushDenied,
		WhatsAppFallback: true,
	}, nil
}

type fakeSubRepo struct {
	upserted           []*model.PushSubscription
	deactivatedPhones  []string
	deactivatedByPhone int
	byPhone            []*model.PushSubscription
	byTicket           []*model.PushSubscription
}

func (f *fakeSubRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	f.upserted = append(f.upserted, sub)
	return nil
}

func (f *fakeSubRepo) ActiveByPhone(ctx context.Context, organizationID uuid.UUID, phone string) ([]*model.PushSubscription, error) {
	return f.byPhone, nil
}

func (f *fakeSubRepo) ActiveByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.PushSubscription, error) {
	return f.byTicket, nil
}

func (f *fakeSubRepo) Deactivate(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeSubRepo) DeactivateByPhone(ctx context.Context, organizationID uuid.UUID, phone string) error {
	f.deactivatedByPhone++
	f.deactivatedPhones = append(f.deactivatedPhones, phone)
	return nil
}

func (f *fakeSubRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error { return nil }

func strPtr(s string) *string { return &s }

func TestSubscribePushMarksCustomerEnabled(t *testing.T) {
	prefs := &fakePrefRepo{}
	subs := &fakeSubRepo{}
	svc := NewService(prefs, subs, logger.NewLogger(nil))

	sub := &model.PushSubscription{
		OrganizationID: uuid.New(),
		Endpoint:       "https://push/endpoint",
		CustomerPhone:  strPtr("254712345678"),
	}
	require.NoError(t, svc.SubscribePush(context.Background(), sub))

	require.Len(t, subs.upserted, 1)
	require.Len(t, prefs.upserts, 1)
	assert.True(t, prefs.upserts[0].pushEnabled)
	assert.False(t, prefs.upserts[0].pushDenied)
}

func TestSubscribePushWithoutPhoneSkipsPreference(t *testing.T) {
	prefs := &fakePrefRepo{}
	subs := &fakeSubRepo{}
	svc := NewService(prefs, subs, logger.NewLogger(nil))

	sub := &model.PushSubscription{
		OrganizationID: uuid.New(),
		Endpoint:       "https://push/endpoint",
	}
	require.NoError(t, svc.SubscribePush(context.Background(), sub))

	assert.Len(t, subs.upserted, 1)
	assert.Empty(t, prefs.upserts)
}

func TestSubscribePushRequiresEndpoint(t *testing.T) {
	svc := NewService(&fakePrefRepo{}, &fakeSubRepo{}, logger.NewLogger(nil))

	err := svc.SubscribePush(context.Background(), &model.PushSubscription{})
	assert.Error(t, err)
}

func TestDenyPushRecordsDenialAndRetiresEndpoints(t *testing.T) {
	prefs := &fakePrefRepo{}
	subs := &fakeSubRepo{}
	svc := NewService(prefs, subs, logger.NewLogger(nil))

	require.NoError(t, svc.DenyPush(context.Background(), uuid.New(), "254712345678"))

	require.Len(t, prefs.upserts, 1)
	assert.False(t, prefs.upserts[0].pushEnabled)
	assert.True(t, prefs.upserts[0].pushDenied)
	assert.Equal(t, 1, subs.deactivatedByPhone)
}

func TestDenyPushRequiresPhone(t *testing.T) {
	svc := NewService(&fakePrefRepo{}, &fakeSubRepo{}, logger.NewLogger(nil))

	err := svc.DenyPush(context.Background(), uuid.New(), "")
	assert.Error(t, err)
}

func TestListSubscriptionsPrefersTicket(t *testing.T) {
	subs := &fakeSubRepo{
		byPhone:  []*model.PushSubscription{{Endpoint: "https://push/phone"}},
		byTicket: []*model.PushSubscription{{Endpoint: "https://push/ticket"}},
	}
	svc := NewService(&fakePrefRepo{}, subs, logger.NewLogger(nil))

	ticketID := uuid.New()
	got, err := svc.ListSubscriptions(context.Background(), uuid.New(), "254712345678", &ticketID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://push/ticket", got[0].Endpoint)

	got, err = svc.ListSubscriptions(context.Background(), uuid.New(), "254712345678", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://push/phone", got[0].Endpoint)
}

func TestListSubscriptionsRequiresPhoneOrTicket(t *testing.T) {
	svc := NewService(&fakePrefRepo{}, &fakeSubRepo{}, logger.NewLogger(nil))

	_, err := svc.ListSubscriptions(context.Background(), uuid.New(), "", nil)
	assert.Error(t, err)
}
