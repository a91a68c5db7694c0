package billing

import (
	"context"

	domainbilling "flagpost-service/internal/domain/billing"
	"flagpost-service/internal/domain/customer"
	"flagpost-service/internal/service/subscription"
)

// Provider is the full billing boundary. The core never touches a concrete
// SDK; the stripe subpackage is the only implementation.
type Provider interface {
	// VerifyWebhook checks the payload signature and maps the wire event to
	// the internal event type. A bad signature yields xerrors.ErrAuthenticity.
	VerifyWebhook(payload []byte, signatureHeader string) (domainbilling.Event, error)

	CreateCustomer(ctx context.Context, c *customer.Customer) (string, error)
	CreateCheckoutSession(ctx context.Context, p subscription.CheckoutSessionParams) (*subscription.CheckoutSession, error)
}
