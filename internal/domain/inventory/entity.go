package inventory

import (
	"database/sql"
	"time"
)

// Adjustment is an immutable stock ledger entry. NewQuantity must always
// equal PreviousQuantity + Delta; the repository refuses to commit otherwise.
type Adjustment struct {
	ID               int64          `json:"id" db:"id"`
	FlagProductID    int64          `json:"flag_product_id" db:"flag_product_id"`
	Delta            int            `json:"delta" db:"delta"`
	PreviousQuantity int            `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int            `json:"new_quantity" db:"new_quantity"`
	Reason           string         `json:"reason" db:"reason"`
	Reference        sql.NullString `json:"reference,omitempty" db:"reference"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

type AdjustRequest struct {
	Delta     int    `json:"delta" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	Reference string `json:"reference"`
}
