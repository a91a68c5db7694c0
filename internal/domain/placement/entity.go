package placement

import (
	"database/sql"
	"time"
)

type PlacementStatus string

const (
	StatusScheduled PlacementStatus = "scheduled"
	StatusPlaced    PlacementStatus = "placed"
	StatusRemoved   PlacementStatus = "removed"
	StatusSkipped   PlacementStatus = "skipped"
)

// FlagPlacement is one physical flag install/remove cycle for a subscription,
// holiday and product in a given coverage year. At most one non-skipped row
// may exist per (subscription, holiday, product, year); that key is enforced
// by a partial unique index so generation stays idempotent under duplicate
// webhook deliveries.
type FlagPlacement struct {
	ID             int64 `json:"id" db:"id"`
	SubscriptionID int64 `json:"subscription_id" db:"subscription_id"`
	HolidayID      int64 `json:"holiday_id" db:"holiday_id"`
	FlagProductID  int64 `json:"flag_product_id" db:"flag_product_id"`
	Year           int   `json:"year" db:"year"`

	PlacementDate time.Time `json:"placement_date" db:"placement_date"`
	RemovalDate   time.Time `json:"removal_date" db:"removal_date"`

	Status PlacementStatus `json:"status" db:"status"`

	PlacedBy  sql.NullInt64 `json:"placed_by,omitempty" db:"placed_by"`
	RemovedBy sql.NullInt64 `json:"removed_by,omitempty" db:"removed_by"`
	PlacedAt  sql.NullTime  `json:"placed_at,omitempty" db:"placed_at"`
	RemovedAt sql.NullTime  `json:"removed_at,omitempty" db:"removed_at"`

	// AddressOverride replaces the subscription owner's address for this
	// placement only.
	AddressOverride sql.NullString `json:"address_override,omitempty" db:"address_override"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type VisitType string

const (
	VisitPlacement VisitType = "placement"
	VisitRemoval   VisitType = "removal"
)

// Route groups placements for one holiday and visit type into an ordered
// visit sequence for a field worker.
type Route struct {
	ID         int64         `json:"id" db:"id"`
	Name       string        `json:"name" db:"name"`
	HolidayID  int64         `json:"holiday_id" db:"holiday_id"`
	VisitType  VisitType     `json:"visit_type" db:"visit_type"`
	RouteDate  time.Time     `json:"route_date" db:"route_date"`
	AssignedTo sql.NullInt64 `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

type RouteStop struct {
	ID          int64 `json:"id" db:"id"`
	RouteID     int64 `json:"route_id" db:"route_id"`
	PlacementID int64 `json:"placement_id" db:"placement_id"`
	Position    int   `json:"position" db:"position"`
}
