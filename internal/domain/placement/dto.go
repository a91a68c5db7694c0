package placement

import "time"

type PlacementListFilters struct {
	SubscriptionID int64  `form:"subscription_id"`
	HolidayID      int64  `form:"holiday_id"`
	Status         string `form:"status"`
	From           string `form:"from"` // YYYY-MM-DD
	To             string `form:"to"`   // YYYY-MM-DD
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

type MarkPlacedRequest struct {
	StaffID int64 `json:"staff_id" binding:"required"`
}

type MarkRemovedRequest struct {
	StaffID int64 `json:"staff_id" binding:"required"`
}

type CreateRouteRequest struct {
	Name       string    `json:"name" binding:"required"`
	HolidayID  int64     `json:"holiday_id" binding:"required"`
	VisitType  VisitType `json:"visit_type" binding:"required,oneof=placement removal"`
	RouteDate  string    `json:"route_date" binding:"required"` // YYYY-MM-DD
	AssignedTo *int64    `json:"assigned_to"`
	Placements []int64   `json:"placements" binding:"required,min=1"`
}

type RouteWithStops struct {
	Route Route       `json:"route"`
	Stops []RouteStop `json:"stops"`
}

// GenerationFailure reports one holiday the generator had to skip.
type GenerationFailure struct {
	HolidayID int64  `json:"holiday_id"`
	Reason    string `json:"reason"`
}

type GenerationResult struct {
	Created  []FlagPlacement     `json:"created"`
	Failures []GenerationFailure `json:"failures,omitempty"`
}

// Window is the resolved [placement_date, removal_date] interval for one
// holiday occurrence.
type Window struct {
	Occurrence    time.Time `json:"occurrence"`
	PlacementDate time.Time `json:"placement_date"`
	RemovalDate   time.Time `json:"removal_date"`
}
