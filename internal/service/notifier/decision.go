package notifier

import (
	"github.com/qline/queue-api/internal/model"
)

// Decision is the messaging-channel verdict for one event, with a
// human-readable reason retained for auditing.
type Decision struct {
	Should bool
	Reason string
}

// Decision reasons. Stable strings: they feed metrics labels and API
// responses.
const (
	ReasonTicketCreated    = "ticket_created_covered_by_session_setup"
	ReasonLegacyFallback   = "no_preference_legacy_fallback"
	ReasonLegacyPushOK     = "no_preference_push_delivered"
	ReasonExplicitOptIn    = "whatsapp_opt_in"
	ReasonEmergencyNoPush  = "push_only_zero_deliveries"
	ReasonPushDelivered    = "push_delivered"
	ReasonNothingRequested = "no_channel_requested"
)

// DecideWhatsApp applies the delivery rules in strict precedence order:
//
//  1. ticket_created events never go out over messaging; the session-setup
//     flow already sends that confirmation.
//  2. Customers predating the preference system get the legacy behavior:
//     message iff push reached nobody.
//  3. An explicit WhatsApp opt-in always wins, even when push succeeded.
//  4. A push-only customer whose push reached nobody gets one emergency
//     fallback message.
//  5. Otherwise stay silent.
//
// Rule 3 outranks rule 4 because an explicit opt-in is a stronger signal
// than a failed push.
func DecideWhatsApp(event *model.NotificationEvent, pref *model.NotificationPreference, pushSuccessCount int) Decision {
	if event.Type == model.NotificationTicketCreated {
		return Decision{Should: false, Reason: ReasonTicketCreated}
	}

	if pref == nil {
		if pushSuccessCount == 0 {
			return Decision{Should: true, Reason: ReasonLegacyFallback}
		}
		return Decision{Should: false, Reason: ReasonLegacyPushOK}
	}

	if pref.WhatsAppFallback {
		return Decision{Should: true, Reason: ReasonExplicitOptIn}
	}

	if pref.PushEnabled && pushSuccessCount == 0 {
		return Decision{Should: true, Reason: ReasonEmergencyNoPush}
	}

	if pushSuccessCount > 0 {
		return Decision{Should: false, Reason: ReasonPushDelivered}
	}
	return Decision{Should: false, Reason: ReasonNothingRequested}
}
