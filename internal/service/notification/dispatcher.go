package notification

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"flagpost-service/internal/domain/customer"
	domainnotif "flagpost-service/internal/domain/notification"
	"flagpost-service/internal/pkg/metrics"
	ws "flagpost-service/internal/websocket"

	"go.uber.org/zap"
)

// Store persists notification rows for the admin audit view.
type Store interface {
	Create(ctx context.Context, n *domainnotif.Notification) error
	UpdateStatus(ctx context.Context, id int64, status domainnotif.Status) error
	List(ctx context.Context, limit, offset int) ([]domainnotif.Notification, int64, error)
}

// EmailSender delivers a single message. The SMTP implementation lives in
// this package; tests swap in a recorder.
type EmailSender interface {
	Send(to, subject, bodyHTML string) error
}

type CustomerLookup interface {
	FindByID(ctx context.Context, id int64) (*customer.Customer, error)
}

type message struct {
	customerID int64
	subject    string
	body       string
	channel    domainnotif.Channel
}

// Dispatcher delivers notifications off the request path. Notify never
// blocks and never returns an error to the caller; a full queue or a failed
// delivery is logged and counted, nothing more.
type Dispatcher struct {
	store     Store
	email     EmailSender
	customers CustomerLookup
	hub       *ws.Hub
	logger    *zap.Logger

	queue chan message
	wg    sync.WaitGroup
}

func NewDispatcher(store Store, email EmailSender, customers CustomerLookup, hub *ws.Hub, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		email:     email,
		customers: customers,
		hub:       hub,
		logger:    logger,
		queue:     make(chan message, 512),
	}
}

// Start launches the delivery worker. Stop drains what is already queued.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.drain()
				return
			case msg := <-d.queue:
				d.deliver(msg)
			}
		}
	}()
}

// Stop waits for the worker to exit after its context is canceled.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// Notify implements the notification boundary used by the subscription
// lifecycle and the payment event processor. customerID 0 means the message
// has no customer, ops-only events use it.
func (d *Dispatcher) Notify(customerID int64, subject, body string, channel domainnotif.Channel) {
	select {
	case d.queue <- message{customerID: customerID, subject: subject, body: body, channel: channel}:
	default:
		d.logger.Warn("notification queue full, dropping message",
			zap.Int64("customer_id", customerID),
			zap.String("subject", subject),
		)
		metrics.NotificationsSent.WithLabelValues(string(channel), "dropped").Inc()
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(msg message) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	row := &domainnotif.Notification{
		Subject: msg.subject,
		Message: msg.body,
		Channel: msg.channel,
		Status:  domainnotif.StatusQueued,
	}
	if msg.customerID != 0 {
		row.CustomerID = sql.NullInt64{Int64: msg.customerID, Valid: true}
	}
	if err := d.store.Create(ctx, row); err != nil {
		d.logger.Error("failed to persist notification", zap.Error(err))
	}

	err := d.send(ctx, msg)
	status := domainnotif.StatusSent
	outcome := "ok"
	if err != nil {
		status = domainnotif.StatusFailed
		outcome = "failed"
		d.logger.Error("notification delivery failed",
			zap.Int64("customer_id", msg.customerID),
			zap.String("channel", string(msg.channel)),
			zap.Error(err),
		)
	}
	metrics.NotificationsSent.WithLabelValues(string(msg.channel), outcome).Inc()

	if row.ID != 0 {
		if err := d.store.UpdateStatus(ctx, row.ID, status); err != nil {
			d.logger.Error("failed to update notification status", zap.Error(err))
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, msg message) error {
	switch msg.channel {
	case domainnotif.ChannelEmail:
		cust, err := d.customers.FindByID(ctx, msg.customerID)
		if err != nil {
			return fmt.Errorf("failed to resolve recipient: %w", err)
		}
		return d.email.Send(cust.Email, msg.subject, msg.body)

	case domainnotif.ChannelOps:
		d.hub.Broadcast(ws.OpsEvent{
			Type:    "notification",
			Subject: msg.subject,
			Message: msg.body,
		})
		return nil

	default:
		return fmt.Errorf("unknown notification channel %q", msg.channel)
	}
}
