package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainbilling "flagpost-service/internal/domain/billing"
	"flagpost-service/internal/domain/customer"
	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"
	"flagpost-service/internal/service/subscription"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// Adapter implements the billing boundary on Stripe. It is the only package
// that touches the Stripe SDK; everything past VerifyWebhook works with the
// internal event types.
type Adapter struct {
	client        *stripe.Client
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

func New(apiKey, webhookSecret, successURL, cancelURL string, logger *zap.Logger) *Adapter {
	return &Adapter{
		client:        stripe.NewClient(apiKey),
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		logger:        logger,
	}
}

func (a *Adapter) CreateCustomer(ctx context.Context, c *customer.Customer) (string, error) {
	params := &stripe.CustomerCreateParams{
		Name:  stripe.String(c.FullName),
		Email: stripe.String(c.Email),
		Phone: stripe.String(c.Phone),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(c.AddressLine),
			City:       stripe.String(c.City),
			State:      stripe.String(c.State),
			PostalCode: stripe.String(c.Zip),
			Country:    stripe.String("US"),
		},
	}
	params.AddMetadata("customer_id", fmt.Sprintf("%d", c.ID))

	cust, err := a.client.V1Customers.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create billing customer: %w", err)
	}
	return cust.ID, nil
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, p subscription.CheckoutSessionParams) (*subscription.CheckoutSession, error) {
	mode := stripe.CheckoutSessionModePayment
	if p.Type == domainsub.TypeAnnual {
		mode = stripe.CheckoutSessionModeSubscription
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(p.Lines))
	for _, line := range p.Lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			Price:    stripe.String(line.BillingPriceID),
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Customer:          stripe.String(p.BillingCustomerID),
		Mode:              stripe.String(string(mode)),
		LineItems:         lineItems,
		ClientReferenceID: stripe.String(p.SubscriptionReference),
		SuccessURL:        stripe.String(a.successURL),
		CancelURL:         stripe.String(a.cancelURL),
	}

	sess, err := a.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &subscription.CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the endpoint
// secret and maps the event to its internal representation. Event types the
// service does not react to come back as (nil, nil).
func (a *Adapter) VerifyWebhook(payload []byte, signatureHeader string) (domainbilling.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, a.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrAuthenticity, err)
	}
	return a.mapEvent(event)
}

// Wire shapes decoded out of event.Data.Raw. Only the fields the processor
// consumes are listed; everything else in the payload is ignored.
type wireCheckoutSession struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	AmountTotal       int64  `json:"amount_total"`
}

type wireSubscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	TrialEnd          int64  `json:"trial_end"`
}

type wireInvoice struct {
	ID            string `json:"id"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	AmountPaid    int64  `json:"amount_paid"`
	AmountDue     int64  `json:"amount_due"`
	PeriodEnd     int64  `json:"period_end"`
}

func (a *Adapter) mapEvent(event stripe.Event) (domainbilling.Event, error) {
	switch event.Type {
	case "checkout.session.completed":
		var sess wireCheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session payload: %w", err)
		}
		return domainbilling.CheckoutCompleted{
			ID:                    event.ID,
			CheckoutSessionID:     sess.ID,
			SubscriptionReference: sess.ClientReferenceID,
			BillingCustomerID:     sess.Customer,
			BillingSubscriptionID: sess.Subscription,
			AmountTotal:           centsToDollars(sess.AmountTotal),
		}, nil

	case "customer.subscription.created":
		var sub wireSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return domainbilling.SubscriptionCreated{
			ID:                    event.ID,
			BillingSubscriptionID: sub.ID,
			PeriodEnd:             unixTime(sub.CurrentPeriodEnd),
		}, nil

	case "customer.subscription.updated":
		var sub wireSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return domainbilling.SubscriptionUpdated{
			ID:                    event.ID,
			BillingSubscriptionID: sub.ID,
			ProviderStatus:        sub.Status,
			CancelAtPeriodEnd:     sub.CancelAtPeriodEnd,
			PeriodEnd:             unixTime(sub.CurrentPeriodEnd),
		}, nil

	case "customer.subscription.deleted":
		var sub wireSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return domainbilling.SubscriptionDeleted{
			ID:                    event.ID,
			BillingSubscriptionID: sub.ID,
		}, nil

	case "customer.subscription.trial_will_end":
		var sub wireSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription payload: %w", err)
		}
		return domainbilling.TrialWillEnd{
			ID:                    event.ID,
			BillingSubscriptionID: sub.ID,
			TrialEnd:              unixTime(sub.TrialEnd),
		}, nil

	case "invoice.payment_succeeded":
		var inv wireInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to decode invoice payload: %w", err)
		}
		return domainbilling.InvoicePaymentSucceeded{
			ID:                    event.ID,
			BillingSubscriptionID: inv.Subscription,
			BillingReason:         inv.BillingReason,
			PeriodEnd:             unixTime(inv.PeriodEnd),
			AmountPaid:            centsToDollars(inv.AmountPaid),
		}, nil

	case "invoice.payment_failed":
		var inv wireInvoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to decode invoice payload: %w", err)
		}
		return domainbilling.InvoicePaymentFailed{
			ID:                    event.ID,
			BillingSubscriptionID: inv.Subscription,
			AmountDue:             centsToDollars(inv.AmountDue),
		}, nil

	default:
		a.logger.Debug("ignoring unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
		)
		return nil, nil
	}
}

func centsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

// unixTime keeps zero timestamps zero so callers can test with IsZero.
func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
