package notifier

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/push"
)

// pushDispatcher fans an event out to every matching active subscription.
// Sends run concurrently and independently; one endpoint's failure never
// blocks its siblings.
type pushDispatcher struct {
	subs      repository.SubscriptionRepository
	transport push.Transport
	audit     *deliveryLog
	logger    *logger.Logger
}

func newPushDispatcher(subs repository.SubscriptionRepository, transport push.Transport, audit *deliveryLog, log *logger.Logger) *pushDispatcher {
	return &pushDispatcher{
		subs:      subs,
		transport: transport,
		audit:     audit,
		logger:    log,
	}
}

// fanOut returns (attempted, succeeded). Phone-keyed subscriptions are tried
// first; the ticket-keyed lookup is a fallback for customers who never
// registered a phone.
func (d *pushDispatcher) fanOut(ctx context.Context, event *model.NotificationEvent) (int, int) {
	subs := d.lookup(ctx, event)
	if len(subs) == 0 {
		return 0, 0
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		d.logger.Error(err, "failed to marshal push payload", "ticket", event.TicketNumber)
		return 0, 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for _, sub := range subs {
		wg.Add(1)
		go func(sub *model.PushSubscription) {
			defer wg.Done()

			sendErr := d.transport.Send(ctx, push.Subscription{
				Endpoint: sub.Endpoint,
				P256DH:   sub.P256DH,
				Auth:     sub.Auth,
			}, payload)

			d.audit.record(ctx, event, model.ChannelPush, sendErr == nil, sendErr)

			if sendErr == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				if err := d.subs.TouchLastUsed(ctx, sub.ID); err != nil {
					d.logger.Warn("failed to touch subscription", "id", sub.ID.String(), "error", err.Error())
				}
				return
			}

			if push.IsPermanent(sendErr) {
				// Endpoint is gone for good; retire this subscription only.
				if err := d.subs.Deactivate(ctx, sub.ID); err != nil {
					d.logger.Error(err, "failed to deactivate dead subscription", "id", sub.ID.String())
				}
				return
			}

			d.logger.Warn("push delivery failed",
				"id", sub.ID.String(), "ticket", event.TicketNumber, "error", sendErr.Error())
		}(sub)
	}

	wg.Wait()
	return len(subs), succeeded
}

func (d *pushDispatcher) lookup(ctx context.Context, event *model.NotificationEvent) []*model.PushSubscription {
	if event.CustomerPhone != "" {
		subs, err := d.subs.ActiveByPhone(ctx, event.OrganizationID, event.CustomerPhone)
		if err != nil {
			d.logger.Error(err, "failed to look up subscriptions by phone", "ticket", event.TicketNumber)
		} else if len(subs) > 0 {
			return subs
		}
	}

	subs, err := d.subs.ActiveByTicket(ctx, event.TicketID)
	if err != nil {
		d.logger.Error(err, "failed to look up subscriptions by ticket", "ticket", event.TicketNumber)
		return nil
	}
	return subs
}
