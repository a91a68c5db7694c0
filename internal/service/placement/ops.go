package placement

import (
	"context"
	"fmt"
	"time"

	domainplacement "flagpost-service/internal/domain/placement"
	xerrors "flagpost-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// OpsStore is the field-operations slice of placement persistence. The mark
// transitions are conditional updates; false means the row was not in the
// required state.
type OpsStore interface {
	FindByID(ctx context.Context, id int64) (*domainplacement.FlagPlacement, error)
	MarkPlaced(ctx context.Context, id, staffID int64, at time.Time) (bool, error)
	MarkRemoved(ctx context.Context, id, staffID int64, at time.Time) (bool, error)
	SetAddressOverride(ctx context.Context, id int64, address string) error
	List(ctx context.Context, f *domainplacement.PlacementListFilters) ([]domainplacement.FlagPlacement, int64, error)
}

type RouteStore interface {
	CreateWithStops(ctx context.Context, r *domainplacement.Route, placementIDs []int64) ([]domainplacement.RouteStop, error)
	FindWithStops(ctx context.Context, id int64) (*domainplacement.Route, []domainplacement.RouteStop, error)
	ListByHoliday(ctx context.Context, holidayID int64) ([]domainplacement.Route, error)
}

// Ops covers the staff-facing placement workflow: the field crew marks flags
// placed and removed, dispatch builds routes over scheduled work.
type Ops struct {
	store  OpsStore
	routes RouteStore
	logger *zap.Logger
}

func NewOps(store OpsStore, routes RouteStore, logger *zap.Logger) *Ops {
	return &Ops{store: store, routes: routes, logger: logger}
}

func (o *Ops) Get(ctx context.Context, id int64) (*domainplacement.FlagPlacement, error) {
	p, err := o.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("placement not found: %w", err)
	}
	return p, nil
}

func (o *Ops) List(ctx context.Context, f *domainplacement.PlacementListFilters) ([]domainplacement.FlagPlacement, int64, error) {
	if f.PageSize <= 0 || f.PageSize > 200 {
		f.PageSize = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	placements, total, err := o.store.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list placements: %w", err)
	}
	return placements, total, nil
}

// MarkPlaced records that the flag is in the ground. Only scheduled
// placements accept it; anything else is a workflow conflict.
func (o *Ops) MarkPlaced(ctx context.Context, id, staffID int64) (*domainplacement.FlagPlacement, error) {
	ok, err := o.store.MarkPlaced(ctx, id, staffID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark placement placed: %w", err)
	}
	if !ok {
		p, ferr := o.store.FindByID(ctx, id)
		if ferr != nil {
			return nil, fmt.Errorf("placement not found: %w", ferr)
		}
		return nil, fmt.Errorf("%w: placement %d is %s, expected %s",
			xerrors.ErrConflict, id, p.Status, domainplacement.StatusScheduled)
	}

	p, err := o.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("placement not found after update: %w", err)
	}
	o.logger.Info("flag placed",
		zap.Int64("placement_id", id),
		zap.Int64("staff_id", staffID),
	)
	return p, nil
}

// MarkRemoved records pickup. Only placed placements accept it.
func (o *Ops) MarkRemoved(ctx context.Context, id, staffID int64) (*domainplacement.FlagPlacement, error) {
	ok, err := o.store.MarkRemoved(ctx, id, staffID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark placement removed: %w", err)
	}
	if !ok {
		p, ferr := o.store.FindByID(ctx, id)
		if ferr != nil {
			return nil, fmt.Errorf("placement not found: %w", ferr)
		}
		return nil, fmt.Errorf("%w: placement %d is %s, expected %s",
			xerrors.ErrConflict, id, p.Status, domainplacement.StatusPlaced)
	}

	p, err := o.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("placement not found after update: %w", err)
	}
	o.logger.Info("flag removed",
		zap.Int64("placement_id", id),
		zap.Int64("staff_id", staffID),
	)
	return p, nil
}

// OverrideAddress sets a one-off placement address, e.g. a gravesite or a
// second property, without touching the customer record.
func (o *Ops) OverrideAddress(ctx context.Context, id int64, address string) error {
	if address == "" {
		return fmt.Errorf("%w: address is required", xerrors.ErrInvalidInput)
	}
	if _, err := o.store.FindByID(ctx, id); err != nil {
		return fmt.Errorf("placement not found: %w", err)
	}
	if err := o.store.SetAddressOverride(ctx, id, address); err != nil {
		return fmt.Errorf("failed to set address override: %w", err)
	}
	return nil
}

// CreateRoute builds an ordered visit list. Stop order follows the request's
// placement order. Every placement must belong to the route's holiday.
func (o *Ops) CreateRoute(ctx context.Context, req *domainplacement.CreateRouteRequest) (*domainplacement.RouteWithStops, error) {
	routeDate, err := time.Parse("2006-01-02", req.RouteDate)
	if err != nil {
		return nil, fmt.Errorf("%w: route_date must be YYYY-MM-DD", xerrors.ErrInvalidInput)
	}

	for _, pid := range req.Placements {
		p, err := o.store.FindByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("placement %d not found: %w", pid, err)
		}
		if p.HolidayID != req.HolidayID {
			return nil, fmt.Errorf("%w: placement %d belongs to holiday %d, route is for holiday %d",
				xerrors.ErrInvalidInput, pid, p.HolidayID, req.HolidayID)
		}
	}

	route := &domainplacement.Route{
		Name:      req.Name,
		HolidayID: req.HolidayID,
		VisitType: req.VisitType,
		RouteDate: routeDate,
	}
	if req.AssignedTo != nil {
		route.AssignedTo.Int64 = *req.AssignedTo
		route.AssignedTo.Valid = true
	}

	stops, err := o.routes.CreateWithStops(ctx, route, req.Placements)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	o.logger.Info("route created",
		zap.Int64("route_id", route.ID),
		zap.Int64("holiday_id", route.HolidayID),
		zap.String("visit_type", string(route.VisitType)),
		zap.Int("stops", len(stops)),
	)
	return &domainplacement.RouteWithStops{Route: *route, Stops: stops}, nil
}

func (o *Ops) GetRoute(ctx context.Context, id int64) (*domainplacement.RouteWithStops, error) {
	route, stops, err := o.routes.FindWithStops(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("route not found: %w", err)
	}
	return &domainplacement.RouteWithStops{Route: *route, Stops: stops}, nil
}

func (o *Ops) ListRoutes(ctx context.Context, holidayID int64) ([]domainplacement.Route, error) {
	routes, err := o.routes.ListByHoliday(ctx, holidayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}
