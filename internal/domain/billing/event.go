package billing

import "time"

// Event is the internal representation of a verified billing-provider webhook
// event. Each kind carries only the fields the processor needs; the wire
// payload never travels past the provider adapter.
type Event interface {
	// EventID is the provider's delivery id, the idempotency key under
	// at-least-once delivery.
	EventID() string
	// Kind is a stable name for logging and metrics.
	Kind() string
}

type CheckoutCompleted struct {
	ID                    string
	CheckoutSessionID     string
	SubscriptionReference string
	BillingCustomerID     string
	BillingSubscriptionID string
	AmountTotal           float64
}

func (e CheckoutCompleted) EventID() string { return e.ID }
func (e CheckoutCompleted) Kind() string    { return "checkout_completed" }

type SubscriptionCreated struct {
	ID                    string
	BillingSubscriptionID string
	PeriodEnd             time.Time
}

func (e SubscriptionCreated) EventID() string { return e.ID }
func (e SubscriptionCreated) Kind() string    { return "subscription_created" }

type SubscriptionUpdated struct {
	ID                    string
	BillingSubscriptionID string
	ProviderStatus        string
	CancelAtPeriodEnd     bool
	PeriodEnd             time.Time
}

func (e SubscriptionUpdated) EventID() string { return e.ID }
func (e SubscriptionUpdated) Kind() string    { return "subscription_updated" }

type SubscriptionDeleted struct {
	ID                    string
	BillingSubscriptionID string
}

func (e SubscriptionDeleted) EventID() string { return e.ID }
func (e SubscriptionDeleted) Kind() string    { return "subscription_deleted" }

type InvoicePaymentSucceeded struct {
	ID                    string
	BillingSubscriptionID string
	// BillingReason distinguishes the first invoice of a subscription from a
	// renewal cycle invoice ("subscription_cycle").
	BillingReason string
	PeriodEnd     time.Time
	AmountPaid    float64
}

func (e InvoicePaymentSucceeded) EventID() string { return e.ID }
func (e InvoicePaymentSucceeded) Kind() string    { return "invoice_payment_succeeded" }

type InvoicePaymentFailed struct {
	ID                    string
	BillingSubscriptionID string
	AmountDue             float64
}

func (e InvoicePaymentFailed) EventID() string { return e.ID }
func (e InvoicePaymentFailed) Kind() string    { return "invoice_payment_failed" }

type TrialWillEnd struct {
	ID                    string
	BillingSubscriptionID string
	TrialEnd              time.Time
}

func (e TrialWillEnd) EventID() string { return e.ID }
func (e TrialWillEnd) Kind() string    { return "trial_will_end" }

// IsRenewalCycle reports whether an invoice belongs to a renewal period
// rather than the initial purchase.
func (e InvoicePaymentSucceeded) IsRenewalCycle() bool {
	return e.BillingReason == "subscription_cycle"
}
