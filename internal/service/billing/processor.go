package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainbilling "flagpost-service/internal/domain/billing"
	"flagpost-service/internal/domain/notification"
	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/pkg/metrics"
	"flagpost-service/internal/service/subscription"

	"go.uber.org/zap"
)

// Processor drives the subscription lifecycle from verified billing events.
// Every branch tolerates at-least-once delivery: the event id is claimed
// before processing and released again on a retryable failure so the
// provider's redelivery can succeed.
type Processor struct {
	lifecycle *subscription.Lifecycle
	subs      subscription.Store
	deduper   EventDeduper
	notifier  subscription.Notifier
	logger    *zap.Logger
}

func NewProcessor(
	lifecycle *subscription.Lifecycle,
	subs subscription.Store,
	deduper EventDeduper,
	notifier subscription.Notifier,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		lifecycle: lifecycle,
		subs:      subs,
		deduper:   deduper,
		notifier:  notifier,
		logger:    logger,
	}
}

// Process applies one event. A returned error means the delivery should be
// answered with a 500 so the provider retries it.
func (p *Processor) Process(ctx context.Context, ev domainbilling.Event) error {
	claimed, err := p.deduper.Claim(ctx, ev.EventID())
	if err != nil {
		return err
	}
	if !claimed {
		p.logger.Info("ignoring duplicate webhook event",
			zap.String("event_id", ev.EventID()),
			zap.String("kind", ev.Kind()),
		)
		metrics.WebhookEvents.WithLabelValues(ev.Kind(), "duplicate").Inc()
		return nil
	}

	if err := p.apply(ctx, ev); err != nil {
		p.logger.Error("failed to process webhook event",
			zap.String("event_id", ev.EventID()),
			zap.String("kind", ev.Kind()),
			zap.Error(err),
		)
		metrics.WebhookEvents.WithLabelValues(ev.Kind(), "failed").Inc()

		if !xerrors.IsRetryable(err) {
			// Redelivery cannot fix missing or misconfigured data; stay
			// claimed and acknowledge.
			return nil
		}
		if rerr := p.deduper.Release(ctx, ev.EventID()); rerr != nil {
			p.logger.Error("failed to release event claim",
				zap.String("event_id", ev.EventID()),
				zap.Error(rerr),
			)
		}
		return err
	}

	metrics.WebhookEvents.WithLabelValues(ev.Kind(), "ok").Inc()
	return nil
}

func (p *Processor) apply(ctx context.Context, ev domainbilling.Event) error {
	switch e := ev.(type) {
	case domainbilling.CheckoutCompleted:
		return p.checkoutCompleted(ctx, e)
	case domainbilling.SubscriptionCreated:
		return p.subscriptionCreated(ctx, e)
	case domainbilling.SubscriptionUpdated:
		return p.subscriptionUpdated(ctx, e)
	case domainbilling.SubscriptionDeleted:
		return p.subscriptionDeleted(ctx, e)
	case domainbilling.InvoicePaymentSucceeded:
		return p.invoicePaid(ctx, e)
	case domainbilling.InvoicePaymentFailed:
		return p.invoiceFailed(ctx, e)
	case domainbilling.TrialWillEnd:
		return p.trialWillEnd(ctx, e)
	default:
		p.logger.Warn("ignoring unhandled event kind", zap.String("kind", ev.Kind()))
		return nil
	}
}

func (p *Processor) checkoutCompleted(ctx context.Context, e domainbilling.CheckoutCompleted) error {
	sub, ok, err := p.lookupByReference(ctx, e.SubscriptionReference, e.EventID())
	if err != nil || !ok {
		return err
	}

	if e.BillingSubscriptionID != "" {
		if err := p.subs.SetBillingRefs(ctx, sub.ID, e.CheckoutSessionID, e.BillingSubscriptionID); err != nil {
			return fmt.Errorf("failed to save billing refs: %w", err)
		}
	}

	return p.lifecycle.Activate(ctx, sub.ID)
}

func (p *Processor) subscriptionCreated(ctx context.Context, e domainbilling.SubscriptionCreated) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}
	return p.lifecycle.Activate(ctx, sub.ID)
}

func (p *Processor) subscriptionUpdated(ctx context.Context, e domainbilling.SubscriptionUpdated) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}

	switch e.ProviderStatus {
	case "canceled", "unpaid", "incomplete_expired":
		return p.lifecycle.Cancel(ctx, sub.ID, "canceled with billing provider", false)
	case "active", "trialing":
		if e.CancelAtPeriodEnd {
			return p.lifecycle.Cancel(ctx, sub.ID, "cancellation scheduled with billing provider", true)
		}
		return p.lifecycle.Activate(ctx, sub.ID)
	default:
		p.logger.Info("no local transition for provider status",
			zap.String("provider_status", e.ProviderStatus),
			zap.Int64("subscription_id", sub.ID),
		)
		return nil
	}
}

func (p *Processor) subscriptionDeleted(ctx context.Context, e domainbilling.SubscriptionDeleted) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}
	return p.lifecycle.Cancel(ctx, sub.ID, "subscription deleted by billing provider", false)
}

func (p *Processor) invoicePaid(ctx context.Context, e domainbilling.InvoicePaymentSucceeded) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}

	if e.IsRenewalCycle() && !e.PeriodEnd.IsZero() {
		return p.lifecycle.ExtendPeriod(ctx, sub.ID, dateOnly(e.PeriodEnd))
	}
	return p.lifecycle.Activate(ctx, sub.ID)
}

func (p *Processor) invoiceFailed(ctx context.Context, e domainbilling.InvoicePaymentFailed) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}

	// No status change on its own; dunning is the provider's job.
	p.notifier.Notify(sub.CustomerID,
		"Payment failed",
		fmt.Sprintf("A payment of %.2f for subscription %s failed. Please update your payment method.",
			e.AmountDue, sub.SubscriptionReference),
		notification.ChannelEmail,
	)
	return nil
}

func (p *Processor) trialWillEnd(ctx context.Context, e domainbilling.TrialWillEnd) error {
	sub, ok, err := p.lookupByBillingID(ctx, e.BillingSubscriptionID, e.EventID())
	if err != nil || !ok {
		return err
	}

	p.notifier.Notify(sub.CustomerID,
		"Your trial is ending soon",
		fmt.Sprintf("The trial for subscription %s ends on %s.",
			sub.SubscriptionReference, e.TrialEnd.Format("January 2, 2006")),
		notification.ChannelEmail,
	)
	return nil
}

// lookupByReference resolves a subscription by its business reference. A miss
// usually means a redelivered or stale event, so it is logged and dropped.
func (p *Processor) lookupByReference(ctx context.Context, ref, eventID string) (*domainsub.Subscription, bool, error) {
	sub, err := p.subs.FindByReference(ctx, ref)
	if errors.Is(err, xerrors.ErrNotFound) {
		p.logger.Error("webhook references unknown subscription",
			zap.String("event_id", eventID),
			zap.String("subscription_reference", ref),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return sub, true, nil
}

func (p *Processor) lookupByBillingID(ctx context.Context, billingID, eventID string) (*domainsub.Subscription, bool, error) {
	sub, err := p.subs.FindByBillingSubscriptionID(ctx, billingID)
	if errors.Is(err, xerrors.ErrNotFound) {
		p.logger.Error("webhook references unknown billing subscription",
			zap.String("event_id", eventID),
			zap.String("billing_subscription_id", billingID),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up subscription: %w", err)
	}
	return sub, true, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
