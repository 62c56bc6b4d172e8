package ticket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/pkg/logger"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket
	order   []uuid.UUID
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[uuid.UUID]*model.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	f.tickets[ticket.ID] = ticket
	f.order = append(f.order, ticket.ID)
	return nil
}

func (f *fakeTicketRepo) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket not found")
	}
	return t, nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket.ID] = ticket
	return nil
}

func (f *fakeTicketRepo) List(ctx context.Context, filters *model.TicketFilters) ([]*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Ticket
	for _, id := range f.order {
		out = append(out, f.tickets[id])
	}
	return out, nil
}

func (f *fakeTicketRepo) waiting(departmentID uuid.UUID) []*model.Ticket {
	var out []*model.Ticket
	for _, id := range f.order {
		t := f.tickets[id]
		if t.DepartmentID == departmentID && t.Status == model.TicketStatusWaiting {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeTicketRepo) OldestWaiting(ctx context.Context, departmentID uuid.UUID) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	waiting := f.waiting(departmentID)
	if len(waiting) == 0 {
		return nil, nil
	}
	return waiting[0], nil
}

func (f *fakeTicketRepo) WaitingAtPosition(ctx context.Context, departmentID uuid.UUID, position int) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	waiting := f.waiting(departmentID)
	if position < 1 || position > len(waiting) {
		return nil, nil
	}
	return waiting[position-1], nil
}

func (f *fakeTicketRepo) QueuePosition(ctx context.Context, ticketID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return 0, fmt.Errorf("ticket not found")
	}
	for i, w := range f.waiting(t.DepartmentID) {
		if w.ID == ticketID {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("ticket not waiting")
}

func (f *fakeTicketRepo) CountWaiting(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.waiting(departmentID))), nil
}

func (f *fakeTicketRepo) GetQueueStats(ctx context.Context, organizationID uuid.UUID, from, to time.Time) (*model.QueueStats, error) {
	return &model.QueueStats{}, nil
}

type fakeDeptRepo struct {
	dept    *model.Department
	counter int
}

func (f *fakeDeptRepo) Create(ctx context.Context, dept *model.Department) error { return nil }

func (f *fakeDeptRepo) Get(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	if f.dept == nil || f.dept.ID != id {
		return nil, fmt.Errorf("department not found")
	}
	return f.dept, nil
}

func (f *fakeDeptRepo) Update(ctx context.Context, dept *model.Department) error { return nil }
func (f *fakeDeptRepo) Delete(ctx context.Context, id uuid.UUID) error           { return nil }

func (f *fakeDeptRepo) List(ctx context.Context, branchID uuid.UUID) ([]*model.Department, error) {
	return nil, nil
}

func (f *fakeDeptRepo) AllocateTicketNumber(ctx context.Context, id uuid.UUID) (string, error) {
	f.counter++
	return fmt.Sprintf("%s-%03d", f.dept.TicketPrefix, f.counter), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*model.NotificationEvent
	seen   chan *model.NotificationEvent
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{seen: make(chan *model.NotificationEvent, 16)}
}

func (f *fakeNotifier) Notify(ctx context.Context, event *model.NotificationEvent) (*model.DeliveryResult, error) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	f.seen <- event
	return &model.DeliveryResult{}, nil
}

func (f *fakeNotifier) wait(t *testing.T) *model.NotificationEvent {
	t.Helper()
	select {
	case e := <-f.seen:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification dispatch")
		return nil
	}
}

type fakeBroker struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func testDepartment() *model.Department {
	return &model.Department{
		Base:           model.Base{ID: uuid.New()},
		OrganizationID: uuid.New(),
		BranchID:       uuid.New(),
		Name:           "General",
		TicketPrefix:   "GEN",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateTicketNormalizesPhoneAndDispatches(t *testing.T) {
	dept := testDepartment()
	repo := newFakeTicketRepo()
	n := newFakeNotifier()
	broker := &fakeBroker{}
	svc := NewService(repo, &fakeDeptRepo{dept: dept}, n, broker, logger.NewLogger(nil), nil, 3)

	ticket, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{
		DepartmentID:  dept.ID,
		CustomerName:  strPtr("Asha"),
		CustomerPhone: strPtr("+254 712 345 678"),
	})
	require.NoError(t, err)

	assert.Equal(t, "GEN-001", ticket.Number)
	assert.Equal(t, model.TicketStatusWaiting, ticket.Status)
	require.NotNil(t, ticket.CustomerPhone)
	assert.Equal(t, "254712345678", *ticket.CustomerPhone)

	event := n.wait(t)
	assert.Equal(t, model.NotificationTicketCreated, event.Type)
	assert.Equal(t, "254712345678", event.CustomerPhone)

	broker.mu.Lock()
	defer broker.mu.Unlock()
	require.Len(t, broker.channels, 1)
	assert.Equal(t, fmt.Sprintf("queue.%s", dept.ID), broker.channels[0])
}

func TestTicketNumbersAreSequential(t *testing.T) {
	dept := testDepartment()
	n := newFakeNotifier()
	svc := NewService(newFakeTicketRepo(), &fakeDeptRepo{dept: dept}, n, nil, logger.NewLogger(nil), nil, 3)

	for i := 1; i <= 3; i++ {
		ticket, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{DepartmentID: dept.ID})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("GEN-%03d", i), ticket.Number)
		n.wait(t)
	}
}

func TestCallNextServesOldestAndNudgesUpcoming(t *testing.T) {
	dept := testDepartment()
	repo := newFakeTicketRepo()
	n := newFakeNotifier()
	svc := NewService(repo, &fakeDeptRepo{dept: dept}, n, nil, logger.NewLogger(nil), nil, 3)

	var created []*model.Ticket
	for i := 0; i < 4; i++ {
		ticket, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{
			DepartmentID:  dept.ID,
			CustomerPhone: strPtr(fmt.Sprintf("25471100000%d", i)),
		})
		require.NoError(t, err)
		created = append(created, ticket)
		n.wait(t)
	}

	called, err := svc.CallNext(context.Background(), dept.ID, "3")
	require.NoError(t, err)
	require.NotNil(t, called)
	assert.Equal(t, created[0].ID, called.ID)
	assert.Equal(t, model.TicketStatusCalled, called.Status)
	require.NotNil(t, called.Counter)
	assert.Equal(t, "3", *called.Counter)

	// One your_turn for the called ticket, one almost_your_turn for the
	// ticket now third in line.
	first, second := n.wait(t), n.wait(t)
	types := map[model.NotificationType]*model.NotificationEvent{
		first.Type:  first,
		second.Type: second,
	}
	require.Contains(t, types, model.NotificationYourTurn)
	require.Contains(t, types, model.NotificationAlmostYourTurn)
	assert.Equal(t, called.ID, types[model.NotificationYourTurn].TicketID)
	assert.Equal(t, created[3].ID, types[model.NotificationAlmostYourTurn].TicketID)
}

func TestCallNextEmptyQueueReturnsNil(t *testing.T) {
	dept := testDepartment()
	svc := NewService(newFakeTicketRepo(), &fakeDeptRepo{dept: dept}, newFakeNotifier(), nil, logger.NewLogger(nil), nil, 3)

	ticket, err := svc.CallNext(context.Background(), dept.ID, "")
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestCompleteAndCancelTransitions(t *testing.T) {
	dept := testDepartment()
	repo := newFakeTicketRepo()
	n := newFakeNotifier()
	svc := NewService(repo, &fakeDeptRepo{dept: dept}, n, nil, logger.NewLogger(nil), nil, 3)

	first, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{DepartmentID: dept.ID})
	require.NoError(t, err)
	n.wait(t)
	second, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{DepartmentID: dept.ID})
	require.NoError(t, err)
	n.wait(t)

	require.NoError(t, svc.CompleteTicket(context.Background(), first.ID))
	got, err := svc.GetTicket(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusServed, got.Status)
	assert.NotNil(t, got.ServedAt)

	require.NoError(t, svc.CancelTicket(context.Background(), second.ID))
	got, err = svc.GetTicket(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusCancelled, got.Status)
}

func TestQueuePosition(t *testing.T) {
	dept := testDepartment()
	repo := newFakeTicketRepo()
	n := newFakeNotifier()
	svc := NewService(repo, &fakeDeptRepo{dept: dept}, n, nil, logger.NewLogger(nil), nil, 3)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ticket, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{DepartmentID: dept.ID})
		require.NoError(t, err)
		ids = append(ids, ticket.ID)
		n.wait(t)
	}

	pos, err := svc.QueuePosition(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Equal(t, 3, pos)

	_, err = svc.CallNext(context.Background(), dept.ID, "")
	require.NoError(t, err)
	n.wait(t)

	pos, err = svc.QueuePosition(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}
