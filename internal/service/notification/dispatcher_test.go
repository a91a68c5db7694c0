package notification

import (
	"context"
	"errors"
	"testing"

	"flagpost-service/internal/domain/customer"
	domainnotif "flagpost-service/internal/domain/notification"
	ws "flagpost-service/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memNotifStore struct {
	rows   []*domainnotif.Notification
	nextID int64
}

func (s *memNotifStore) Create(_ context.Context, n *domainnotif.Notification) error {
	s.nextID++
	n.ID = s.nextID
	clone := *n
	s.rows = append(s.rows, &clone)
	return nil
}

func (s *memNotifStore) UpdateStatus(_ context.Context, id int64, status domainnotif.Status) error {
	for _, row := range s.rows {
		if row.ID == id {
			row.Status = status
		}
	}
	return nil
}

func (s *memNotifStore) List(_ context.Context, _, _ int) ([]domainnotif.Notification, int64, error) {
	return nil, 0, nil
}

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Send(to, subject, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, to+": "+subject)
	return nil
}

type staticCustomers struct{}

func (staticCustomers) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	return &customer.Customer{ID: id, Email: "jane@example.com"}, nil
}

// runAndDrain enqueues through fn, then shuts the worker down so every queued
// message is delivered before assertions run.
func runAndDrain(d *Dispatcher, fn func()) {
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	fn()
	cancel()
	d.Stop()
}

func TestNotify_EmailDelivery(t *testing.T) {
	store := &memNotifStore{}
	sender := &recordingSender{}
	d := NewDispatcher(store, sender, staticCustomers{}, ws.NewHub(zap.NewNop()), zap.NewNop())

	runAndDrain(d, func() {
		d.Notify(7, "Your flags are coming", "Placements are scheduled.", domainnotif.ChannelEmail)
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "jane@example.com: Your flags are coming", sender.sent[0])

	require.Len(t, store.rows, 1)
	assert.Equal(t, domainnotif.StatusSent, store.rows[0].Status)
	assert.True(t, store.rows[0].CustomerID.Valid)
	assert.EqualValues(t, 7, store.rows[0].CustomerID.Int64)
}

func TestNotify_FailureIsRecordedNotPropagated(t *testing.T) {
	store := &memNotifStore{}
	sender := &recordingSender{err: errors.New("smtp connect refused")}
	d := NewDispatcher(store, sender, staticCustomers{}, ws.NewHub(zap.NewNop()), zap.NewNop())

	runAndDrain(d, func() {
		d.Notify(7, "Payment failed", "Please update your card.", domainnotif.ChannelEmail)
	})

	require.Len(t, store.rows, 1)
	assert.Equal(t, domainnotif.StatusFailed, store.rows[0].Status)
}

func TestNotify_OpsChannelHasNoCustomer(t *testing.T) {
	store := &memNotifStore{}
	d := NewDispatcher(store, &recordingSender{}, staticCustomers{}, ws.NewHub(zap.NewNop()), zap.NewNop())

	runAndDrain(d, func() {
		d.Notify(0, "Placement generation issues", "2 holidays skipped.", domainnotif.ChannelOps)
	})

	require.Len(t, store.rows, 1)
	assert.Equal(t, domainnotif.ChannelOps, store.rows[0].Channel)
	assert.Equal(t, domainnotif.StatusSent, store.rows[0].Status)
	assert.False(t, store.rows[0].CustomerID.Valid)
}
