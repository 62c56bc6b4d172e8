package notifier

import (
	"fmt"

	"github.com/qline/queue-api/internal/model"
)

// messageText renders the WhatsApp body for an event. Payload body wins when
// the caller set one; otherwise a default per event type.
func messageText(event *model.NotificationEvent) string {
	if event.Payload.Body != "" {
		if event.Payload.Title != "" {
			return fmt.Sprintf("%s\n%s", event.Payload.Title, event.Payload.Body)
		}
		return event.Payload.Body
	}

	switch event.Type {
	case model.NotificationTicketCreated:
		return fmt.Sprintf("Your ticket %s has been created. We'll let you know when it's almost your turn.", event.TicketNumber)
	case model.NotificationAlmostYourTurn:
		return fmt.Sprintf("Almost your turn! Ticket %s is coming up, please make your way over.", event.TicketNumber)
	case model.NotificationYourTurn:
		return fmt.Sprintf("It's your turn! Ticket %s is now being served.", event.TicketNumber)
	default:
		return fmt.Sprintf("Update for ticket %s.", event.TicketNumber)
	}
}
