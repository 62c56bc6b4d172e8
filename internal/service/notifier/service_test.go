package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/push"
)

type fakePreferenceRepo struct {
	pref *model.NotificationPreference
	err  error
}

func (f *fakePreferenceRepo) GetByPhone(ctx context.Context, phone string) (*model.NotificationPreference, error) {
	return f.pref, f.err
}

func (f *fakePreferenceRepo) Upsert(ctx context.Context, organizationID uuid.UUID, phone string, pushEnabled, pushDenied bool) (*model.NotificationPreference, error) {
	return f.pref, f.err
}

type fakeSubscriptionRepo struct {
	mu          sync.Mutex
	byPhone     []*model.PushSubscription
	byTicket    []*model.PushSubscription
	deactivated []uuid.UUID
	touched     []uuid.UUID
}

func (f *fakeSubscriptionRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	return nil
}

func (f *fakeSubscriptionRepo) ActiveByPhone(ctx context.Context, organizationID uuid.UUID, phone string) ([]*model.PushSubscription, error) {
	return f.byPhone, nil
}

func (f *fakeSubscriptionRepo) ActiveByTicket(ctx context.Context, ticketID uuid.UUID) ([]*model.PushSubscription, error) {
	return f.byTicket, nil
}

func (f *fakeSubscriptionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	return nil
}

func (f *fakeSubscriptionRepo) DeactivateByPhone(ctx context.Context, organizationID uuid.UUID, phone string) error {
	return nil
}

func (f *fakeSubscriptionRepo) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

type fakeSessionService struct {
	live bool
	err  error
}

func (f *fakeSessionService) CreateSession(ctx context.Context, rawPhone string, organizationID uuid.UUID, ticketID *uuid.UUID, customerName *string) (*model.WhatsAppSession, error) {
	return nil, nil
}

func (f *fakeSessionService) ExtendSession(ctx context.Context, rawPhone string) error {
	return nil
}

func (f *fakeSessionService) DeactivateSession(ctx context.Context, rawPhone string) error {
	return nil
}

func (f *fakeSessionService) HasActiveSession(ctx context.Context, rawPhone string) (bool, error) {
	return f.live, f.err
}

func (f *fakeSessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*model.NotificationLogEntry
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *model.NotificationLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogRepo) List(ctx context.Context, filters map[string]interface{}) ([]*model.NotificationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

func (f *fakeLogRepo) byChannel(channel string) []*model.NotificationLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.NotificationLogEntry
	for _, e := range f.entries {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

type fakePushTransport struct {
	mu   sync.Mutex
	errs map[string]error
	sent []string
}

func (f *fakePushTransport) Send(ctx context.Context, sub push.Subscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	if f.errs != nil {
		return f.errs[sub.Endpoint]
	}
	return nil
}

type fakeWhatsAppTransport struct {
	err    error
	called int
	phones []string
}

func (f *fakeWhatsAppTransport) SendText(ctx context.Context, phone, body string) error {
	f.called++
	f.phones = append(f.phones, phone)
	return f.err
}

func testLogger() *logger.Logger {
	return logger.NewLogger(nil)
}

func activeSub(endpoint string) *model.PushSubscription {
	return &model.PushSubscription{
		ID:       uuid.New(),
		Endpoint: endpoint,
		P256DH:   "key",
		Auth:     "auth",
		IsActive: true,
	}
}

func testEvent(typ model.NotificationType, phone string) *model.NotificationEvent {
	return &model.NotificationEvent{
		OrganizationID: uuid.New(),
		TicketID:       uuid.New(),
		TicketNumber:   "GEN-001",
		CustomerPhone:  phone,
		Type:           typ,
		Payload:        model.NotificationPayload{Title: "Queue update"},
	}
}

func TestNotifyOptInMessagesEvenWhenPushSucceeds(t *testing.T) {
	subs := &fakeSubscriptionRepo{byPhone: []*model.PushSubscription{activeSub("https://push/a")}}
	wa := &fakeWhatsAppTransport{}
	svc := NewService(
		&fakePreferenceRepo{pref: &model.NotificationPreference{PushEnabled: true, WhatsAppFallback: true}},
		subs,
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.PushAttempted)
	assert.Equal(t, 1, result.PushSucceeded)
	assert.True(t, result.WhatsAppDecision)
	assert.Equal(t, ReasonExplicitOptIn, result.WhatsAppReason)
	assert.True(t, result.WhatsAppSent)
	assert.Equal(t, 1, wa.called)
}

func TestNotifyLegacyCustomerFallsBackWhenPushFails(t *testing.T) {
	subs := &fakeSubscriptionRepo{byPhone: []*model.PushSubscription{activeSub("https://push/a")}}
	wa := &fakeWhatsAppTransport{}
	svc := NewService(
		&fakePreferenceRepo{pref: nil},
		subs,
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{errs: map[string]error{"https://push/a": errors.New("timeout")}},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.PushAttempted)
	assert.Equal(t, 0, result.PushSucceeded)
	assert.Equal(t, ReasonLegacyFallback, result.WhatsAppReason)
	assert.True(t, result.WhatsAppSent)
}

func TestNotifyLegacyCustomerSilentWhenPushDelivered(t *testing.T) {
	subs := &fakeSubscriptionRepo{byPhone: []*model.PushSubscription{activeSub("https://push/a")}}
	wa := &fakeWhatsAppTransport{}
	svc := NewService(
		&fakePreferenceRepo{pref: nil},
		subs,
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.False(t, result.WhatsAppDecision)
	assert.Equal(t, ReasonLegacyPushOK, result.WhatsAppReason)
	assert.False(t, result.WhatsAppSent)
	assert.Equal(t, 0, wa.called)
}

func TestNotifyGoneEndpointIsDeactivated(t *testing.T) {
	dead := activeSub("https://push/dead")
	alive := activeSub("https://push/alive")
	subs := &fakeSubscriptionRepo{byPhone: []*model.PushSubscription{dead, alive}}
	transport := &fakePushTransport{errs: map[string]error{
		"https://push/dead": fmt.Errorf("status 410: %w", push.ErrEndpointGone),
	}}
	logs := &fakeLogRepo{}
	svc := NewService(
		&fakePreferenceRepo{pref: &model.NotificationPreference{PushEnabled: true}},
		subs,
		&fakeSessionService{live: true},
		logs,
		transport,
		&fakeWhatsAppTransport{},
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.PushAttempted)
	assert.Equal(t, 1, result.PushSucceeded)
	require.Len(t, subs.deactivated, 1)
	assert.Equal(t, dead.ID, subs.deactivated[0])
	// One delivery reached the customer, so no fallback message.
	assert.False(t, result.WhatsAppDecision)
	assert.Len(t, logs.byChannel(model.ChannelPush), 2)
	assert.Empty(t, logs.byChannel(model.ChannelWhatsApp))
}

func TestNotifySkipsWhatsAppWithoutLiveSession(t *testing.T) {
	wa := &fakeWhatsAppTransport{}
	logs := &fakeLogRepo{}
	svc := NewService(
		&fakePreferenceRepo{pref: &model.NotificationPreference{WhatsAppFallback: true}},
		&fakeSubscriptionRepo{},
		&fakeSessionService{live: false},
		logs,
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.True(t, result.WhatsAppDecision)
	assert.False(t, result.WhatsAppSent)
	assert.Equal(t, 0, wa.called)
	// A skipped send is not an attempt and leaves no audit row.
	assert.Empty(t, logs.byChannel(model.ChannelWhatsApp))
}

func TestNotifyFailsClosedWhenSessionCheckErrors(t *testing.T) {
	wa := &fakeWhatsAppTransport{}
	svc := NewService(
		&fakePreferenceRepo{pref: &model.NotificationPreference{WhatsAppFallback: true}},
		&fakeSubscriptionRepo{},
		&fakeSessionService{live: true, err: errors.New("store down")},
		&fakeLogRepo{},
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.NoError(t, err)

	assert.True(t, result.WhatsAppDecision)
	assert.False(t, result.WhatsAppSent)
	assert.Equal(t, 0, wa.called)
}

func TestNotifyTicketCreatedNeverMessages(t *testing.T) {
	wa := &fakeWhatsAppTransport{}
	svc := NewService(
		&fakePreferenceRepo{pref: &model.NotificationPreference{WhatsAppFallback: true}},
		&fakeSubscriptionRepo{},
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationTicketCreated, "254712345678"))
	require.NoError(t, err)

	assert.False(t, result.WhatsAppDecision)
	assert.Equal(t, ReasonTicketCreated, result.WhatsAppReason)
	assert.Equal(t, 0, wa.called)
}

func TestNotifyPreferenceStoreFaultPropagates(t *testing.T) {
	svc := NewService(
		&fakePreferenceRepo{err: errors.New("connection refused")},
		&fakeSubscriptionRepo{byPhone: []*model.PushSubscription{activeSub("https://push/a")}},
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{},
		&fakeWhatsAppTransport{},
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, "254712345678"))
	require.Error(t, err)
	// Push ran before the fault; its outcome is still reported.
	require.NotNil(t, result)
	assert.Equal(t, 1, result.PushSucceeded)
}

func TestNotifyNoPhoneSkipsDecision(t *testing.T) {
	wa := &fakeWhatsAppTransport{}
	ticketSub := activeSub("https://push/ticket")
	subs := &fakeSubscriptionRepo{byTicket: []*model.PushSubscription{ticketSub}}
	svc := NewService(
		&fakePreferenceRepo{},
		subs,
		&fakeSessionService{live: true},
		&fakeLogRepo{},
		&fakePushTransport{},
		wa,
		testLogger(),
		nil,
	)

	result, err := svc.Notify(context.Background(), testEvent(model.NotificationYourTurn, ""))
	require.NoError(t, err)

	// Ticket-keyed lookup still delivers push.
	assert.Equal(t, 1, result.PushSucceeded)
	assert.Equal(t, ReasonNothingRequested, result.WhatsAppReason)
	assert.Equal(t, 0, wa.called)
}
