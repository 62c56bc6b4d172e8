package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/phone"
	"github.com/qline/queue-api/internal/repository"
	"github.com/qline/queue-api/internal/service/notifier"
	"github.com/qline/queue-api/pkg/logger"
	"github.com/qline/queue-api/pkg/messaging"
	"github.com/qline/queue-api/pkg/metrics"
)

type Service interface {
	CreateTicket(ctx context.Context, req *CreateTicketRequest) (*model.Ticket, error)
	CallNext(ctx context.Context, departmentID uuid.UUID, counter string) (*model.Ticket, error)
	CompleteTicket(ctx context.Context, id uuid.UUID) error
	CancelTicket(ctx context.Context, id uuid.UUID) error
	GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	QueuePosition(ctx context.Context, id uuid.UUID) (int, error)
	ListTickets(ctx context.Context, filters *model.TicketFilters) ([]*model.Ticket, error)
	GetQueueStats(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (*model.QueueStats, error)
}

type CreateTicketRequest struct {
	DepartmentID  uuid.UUID `json:"department_id" binding:"required"`
	CustomerName  *string   `json:"customer_name"`
	CustomerPhone *string   `json:"customer_phone"`
}

type service struct {
	tickets  repository.TicketRepository
	depts    repository.DepartmentRepository
	notifier notifier.Service
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	// almostPos is the queue position that triggers almost_your_turn.
	almostPos int
}

func NewService(
	tickets repository.TicketRepository,
	depts repository.DepartmentRepository,
	n notifier.Service,
	broker messaging.Broker,
	log *logger.Logger,
	m *metrics.Metrics,
	almostYourTurnPosition int,
) Service {
	if almostYourTurnPosition <= 0 {
		almostYourTurnPosition = 3
	}
	return &service{
		tickets:   tickets,
		depts:     depts,
		notifier:  n,
		broker:    broker,
		logger:    log,
		metrics:   m,
		almostPos: almostYourTurnPosition,
	}
}

func (s *service) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*model.Ticket, error) {
	dept, err := s.depts.Get(ctx, req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load department: %w", err)
	}

	number, err := s.depts.AllocateTicketNumber(ctx, dept.ID)
	if err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		OrganizationID: dept.OrganizationID,
		BranchID:       dept.BranchID,
		DepartmentID:   dept.ID,
		Number:         number,
		CustomerName:   req.CustomerName,
		Status:         model.TicketStatusWaiting,
	}
	if req.CustomerPhone != nil && *req.CustomerPhone != "" {
		norm := phone.Normalize(*req.CustomerPhone)
		ticket.CustomerPhone = &norm
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TicketsIssued.WithLabelValues(dept.Name).Inc()
	}
	s.publishQueueEvent(ctx, "ticket_created", ticket)
	s.dispatch(ticket, model.NotificationTicketCreated, model.NotificationPayload{
		Title: "Ticket created",
		Body:  fmt.Sprintf("Your ticket %s is in the queue.", ticket.Number),
		Data:  model.JSONMap{"ticket_id": ticket.ID.String()},
	})

	return ticket, nil
}

// CallNext moves the oldest waiting ticket to called, notifies its holder,
// and nudges whoever is now close to the front.
func (s *service) CallNext(ctx context.Context, departmentID uuid.UUID, counter string) (*model.Ticket, error) {
	ticket, err := s.tickets.OldestWaiting(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, nil
	}

	now := time.Now()
	ticket.Status = model.TicketStatusCalled
	ticket.CalledAt = &now
	if counter != "" {
		ticket.Counter = &counter
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to call ticket: %w", err)
	}

	s.publishQueueEvent(ctx, "ticket_called", ticket)
	s.dispatch(ticket, model.NotificationYourTurn, model.NotificationPayload{
		Title: "It's your turn",
		Body:  fmt.Sprintf("Ticket %s is now being served.", ticket.Number),
		Data:  model.JSONMap{"ticket_id": ticket.ID.String(), "counter": counter},
	})

	s.notifyUpcoming(ctx, departmentID)
	s.observeQueueDepth(ctx, departmentID)

	return ticket, nil
}

// notifyUpcoming tells the ticket now at the threshold position that its
// turn is close.
func (s *service) notifyUpcoming(ctx context.Context, departmentID uuid.UUID) {
	upcoming, err := s.tickets.WaitingAtPosition(ctx, departmentID, s.almostPos)
	if err != nil {
		s.logger.Error(err, "failed to find upcoming ticket", "department", departmentID.String())
		return
	}
	if upcoming == nil {
		return
	}

	s.dispatch(upcoming, model.NotificationAlmostYourTurn, model.NotificationPayload{
		Title: "Almost your turn",
		Body:  fmt.Sprintf("Ticket %s is coming up, please be ready.", upcoming.Number),
		Data:  model.JSONMap{"ticket_id": upcoming.ID.String()},
	})
}

func (s *service) CompleteTicket(ctx context.Context, id uuid.UUID) error {
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	ticket.Status = model.TicketStatusServed
	ticket.ServedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return fmt.Errorf("failed to complete ticket: %w", err)
	}

	s.publishQueueEvent(ctx, "ticket_served", ticket)
	return nil
}

func (s *service) CancelTicket(ctx context.Context, id uuid.UUID) error {
	ticket, err := s.tickets.Get(ctx, id)
	if err != nil {
		return err
	}

	ticket.Status = model.TicketStatusCancelled
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return fmt.Errorf("failed to cancel ticket: %w", err)
	}

	s.publishQueueEvent(ctx, "ticket_cancelled", ticket)
	s.observeQueueDepth(ctx, ticket.DepartmentID)
	return nil
}

func (s *service) GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	return s.tickets.Get(ctx, id)
}

func (s *service) QueuePosition(ctx context.Context, id uuid.UUID) (int, error) {
	return s.tickets.QueuePosition(ctx, id)
}

func (s *service) ListTickets(ctx context.Context, filters *model.TicketFilters) ([]*model.Ticket, error) {
	return s.tickets.List(ctx, filters)
}

func (s *service) GetQueueStats(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (*model.QueueStats, error) {
	return s.tickets.GetQueueStats(ctx, organizationID, from, to)
}

// dispatch hands the event to the notifier off the request path. The ticket
// operation has already committed; notification failures are logged, never
// surfaced to the customer.
func (s *service) dispatch(ticket *model.Ticket, typ model.NotificationType, payload model.NotificationPayload) {
	event := &model.NotificationEvent{
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		TicketNumber:   ticket.Number,
		Type:           typ,
		Payload:        payload,
	}
	if ticket.CustomerPhone != nil {
		event.CustomerPhone = *ticket.CustomerPhone
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Error(err, "notification dispatch failed",
				"ticket", ticket.Number, "type", string(typ))
		}
	}()
}

func (s *service) publishQueueEvent(ctx context.Context, typ string, ticket *model.Ticket) {
	if s.broker == nil {
		return
	}

	event := &model.QueueEvent{
		Type:         typ,
		DepartmentID: ticket.DepartmentID,
		TicketID:     ticket.ID,
		TicketNumber: ticket.Number,
		Counter:      ticket.Counter,
		OccurredAt:   time.Now(),
	}

	channel := fmt.Sprintf("queue.%s", ticket.DepartmentID)
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		s.logger.Warn("failed to publish queue event", "channel", channel, "error", err.Error())
	}
}

func (s *service) observeQueueDepth(ctx context.Context, departmentID uuid.UUID) {
	if s.metrics == nil {
		return
	}
	count, err := s.tickets.CountWaiting(ctx, departmentID)
	if err != nil {
		return
	}
	s.metrics.QueueDepth.WithLabelValues(departmentID.String()).Set(float64(count))
}
