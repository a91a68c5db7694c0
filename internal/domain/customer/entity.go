package customer

import (
	"database/sql"
	"time"
)

type Customer struct {
	ID       int64  `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Phone    string `json:"phone" db:"phone"`

	// Service address. Flags are placed here unless a placement carries an
	// address override.
	AddressLine string          `json:"address_line" db:"address_line"`
	City        string          `json:"city" db:"city"`
	State       string          `json:"state" db:"state"`
	Zip         string          `json:"zip" db:"zip"`
	Latitude    sql.NullFloat64 `json:"latitude,omitempty" db:"latitude"`
	Longitude   sql.NullFloat64 `json:"longitude,omitempty" db:"longitude"`

	BillingCustomerID sql.NullString `json:"billing_customer_id,omitempty" db:"billing_customer_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PotentialCustomer captures a checkout attempt from an address outside the
// service area so the business can follow up if coverage expands.
type PotentialCustomer struct {
	ID          int64     `json:"id" db:"id"`
	FullName    string    `json:"full_name" db:"full_name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	AddressLine string    `json:"address_line" db:"address_line"`
	Zip         string    `json:"zip" db:"zip"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
