package subscription

import (
	"database/sql"
	"time"
)

type SubscriptionType string

const (
	TypeAnnual  SubscriptionType = "annual"
	TypeOneTime SubscriptionType = "onetime"
)

type SubscriptionStatus string

const (
	StatusPending  SubscriptionStatus = "pending"
	StatusActive   SubscriptionStatus = "active"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusExpired  SubscriptionStatus = "expired"
)

// Terminal reports whether no further status transition is allowed.
// Canceled and expired subscriptions are never resurrected.
func (s SubscriptionStatus) Terminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

type Subscription struct {
	ID                    int64            `json:"id" db:"id"`
	SubscriptionReference string           `json:"subscription_reference" db:"subscription_reference"`
	CustomerID            int64            `json:"customer_id" db:"customer_id"`
	Type                  SubscriptionType `json:"type" db:"type"`

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	// SelectedHolidays is a snapshot of the holiday ids the customer chose at
	// checkout. Generation intersects it with the currently-active holiday
	// set; it is never re-read from a live global query.
	SelectedHolidays []int64 `json:"selected_holidays" db:"selected_holidays"`

	TotalAmount float64 `json:"total_amount" db:"total_amount"`

	Status             SubscriptionStatus `json:"status" db:"status"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CanceledAt         sql.NullTime       `json:"canceled_at,omitempty" db:"canceled_at"`
	CancellationReason sql.NullString     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	// External billing references.
	BillingSubscriptionID    sql.NullString `json:"billing_subscription_id,omitempty" db:"billing_subscription_id"`
	BillingCheckoutSessionID sql.NullString `json:"billing_checkout_session_id,omitempty" db:"billing_checkout_session_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubscriptionItem is immutable once created; a correction requires a new
// item, not an edit.
type SubscriptionItem struct {
	ID             int64     `json:"id" db:"id"`
	SubscriptionID int64     `json:"subscription_id" db:"subscription_id"`
	FlagProductID  int64     `json:"flag_product_id" db:"flag_product_id"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPrice      float64   `json:"unit_price" db:"unit_price"`
	TotalPrice     float64   `json:"total_price" db:"total_price"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
