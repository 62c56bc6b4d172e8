package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qline/queue-api/internal/model"
)

func TestDecideWhatsApp(t *testing.T) {
	tests := []struct {
		name             string
		eventType        model.NotificationType
		pref             *model.NotificationPreference
		pushSuccessCount int
		want             bool
		wantReason       string
	}{
		{
			name:       "ticket created never messages",
			eventType:  model.NotificationTicketCreated,
			pref:       &model.NotificationPreference{WhatsAppFallback: true},
			want:       false,
			wantReason: ReasonTicketCreated,
		},
		{
			name:       "ticket created without preference still silent",
			eventType:  model.NotificationTicketCreated,
			pref:       nil,
			want:       false,
			wantReason: ReasonTicketCreated,
		},
		{
			name:             "no preference and no push delivery falls back",
			eventType:        model.NotificationYourTurn,
			pref:             nil,
			pushSuccessCount: 0,
			want:             true,
			wantReason:       ReasonLegacyFallback,
		},
		{
			name:             "no preference but push delivered stays silent",
			eventType:        model.NotificationYourTurn,
			pref:             nil,
			pushSuccessCount: 1,
			want:             false,
			wantReason:       ReasonLegacyPushOK,
		},
		{
			name:             "explicit opt-in wins even with push delivered",
			eventType:        model.NotificationYourTurn,
			pref:             &model.NotificationPreference{PushEnabled: true, WhatsAppFallback: true},
			pushSuccessCount: 3,
			want:             true,
			wantReason:       ReasonExplicitOptIn,
		},
		{
			name:             "opt-in with push denied still messages",
			eventType:        model.NotificationAlmostYourTurn,
			pref:             &model.NotificationPreference{PushDenied: true, WhatsAppFallback: true},
			pushSuccessCount: 0,
			want:             true,
			wantReason:       ReasonExplicitOptIn,
		},
		{
			name:             "push-only customer with no delivery gets emergency message",
			eventType:        model.NotificationYourTurn,
			pref:             &model.NotificationPreference{PushEnabled: true},
			pushSuccessCount: 0,
			want:             true,
			wantReason:       ReasonEmergencyNoPush,
		},
		{
			name:             "push-only customer with delivery stays silent",
			eventType:        model.NotificationYourTurn,
			pref:             &model.NotificationPreference{PushEnabled: true},
			pushSuccessCount: 2,
			want:             false,
			wantReason:       ReasonPushDelivered,
		},
		{
			name:             "nothing enabled and nothing delivered stays silent",
			eventType:        model.NotificationAlmostYourTurn,
			pref:             &model.NotificationPreference{},
			pushSuccessCount: 0,
			want:             false,
			wantReason:       ReasonNothingRequested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &model.NotificationEvent{Type: tt.eventType}
			got := DecideWhatsApp(event, tt.pref, tt.pushSuccessCount)
			assert.Equal(t, tt.want, got.Should)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}
