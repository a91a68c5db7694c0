package catalog

import (
	"database/sql"
	"time"
)

// FlagProduct is a sellable (flag type x flag size) combination. The pair is
// unique across the catalog.
type FlagProduct struct {
	ID            int64   `json:"id" db:"id"`
	FlagType      string  `json:"flag_type" db:"flag_type"`
	FlagSize      string  `json:"flag_size" db:"flag_size"`
	OneTimePrice  float64 `json:"one_time_price" db:"one_time_price"`
	AnnualPrice   float64 `json:"annual_price" db:"annual_price"`
	StockQuantity int     `json:"stock_quantity" db:"stock_quantity"`

	// External billing references, set once the product is mirrored with the
	// billing provider.
	BillingProductID      sql.NullString `json:"billing_product_id,omitempty" db:"billing_product_id"`
	BillingOneTimePriceID sql.NullString `json:"billing_one_time_price_id,omitempty" db:"billing_one_time_price_id"`
	BillingAnnualPriceID  sql.NullString `json:"billing_annual_price_id,omitempty" db:"billing_annual_price_id"`

	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
