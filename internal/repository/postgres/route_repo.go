// internal/repository/postgres/route_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	domainplacement "flagpost-service/internal/domain/placement"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RouteRepository struct {
	db *pgxpool.Pool
}

func NewRouteRepository(db *pgxpool.Pool) *RouteRepository {
	return &RouteRepository{db: db}
}

// CreateWithStops writes the route and its ordered stops atomically. Stop
// positions follow the placementIDs slice order, starting at 1.
func (r *RouteRepository) CreateWithStops(ctx context.Context, route *domainplacement.Route, placementIDs []int64) ([]domainplacement.RouteStop, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO routes (name, holiday_id, visit_type, route_date, assigned_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		route.Name, route.HolidayID, route.VisitType, route.RouteDate, route.AssignedTo,
	).Scan(&route.ID, &route.CreatedAt, &route.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}

	stopQuery := `
		INSERT INTO route_stops (route_id, placement_id, position)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	stops := make([]domainplacement.RouteStop, 0, len(placementIDs))
	for i, pid := range placementIDs {
		stop := domainplacement.RouteStop{RouteID: route.ID, PlacementID: pid, Position: i + 1}
		if err := tx.QueryRow(ctx, stopQuery, route.ID, pid, stop.Position).Scan(&stop.ID); err != nil {
			return nil, fmt.Errorf("failed to create route stop: %w", err)
		}
		stops = append(stops, stop)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit route: %w", err)
	}
	return stops, nil
}

func (r *RouteRepository) FindWithStops(ctx context.Context, id int64) (*domainplacement.Route, []domainplacement.RouteStop, error) {
	query := `
		SELECT id, name, holiday_id, visit_type, route_date, assigned_to, created_at, updated_at
		FROM routes WHERE id = $1
	`
	var route domainplacement.Route
	err := r.db.QueryRow(ctx, query, id).Scan(
		&route.ID, &route.Name, &route.HolidayID, &route.VisitType,
		&route.RouteDate, &route.AssignedTo, &route.CreatedAt, &route.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find route: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, route_id, placement_id, position FROM route_stops WHERE route_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list route stops: %w", err)
	}
	defer rows.Close()

	var stops []domainplacement.RouteStop
	for rows.Next() {
		var s domainplacement.RouteStop
		if err := rows.Scan(&s.ID, &s.RouteID, &s.PlacementID, &s.Position); err != nil {
			return nil, nil, fmt.Errorf("failed to scan route stop: %w", err)
		}
		stops = append(stops, s)
	}
	return &route, stops, rows.Err()
}

func (r *RouteRepository) ListByHoliday(ctx context.Context, holidayID int64) ([]domainplacement.Route, error) {
	query := `
		SELECT id, name, holiday_id, visit_type, route_date, assigned_to, created_at, updated_at
		FROM routes WHERE holiday_id = $1
		ORDER BY route_date, id
	`
	rows, err := r.db.Query(ctx, query, holidayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var routes []domainplacement.Route
	for rows.Next() {
		var route domainplacement.Route
		err := rows.Scan(
			&route.ID, &route.Name, &route.HolidayID, &route.VisitType,
			&route.RouteDate, &route.AssignedTo, &route.CreatedAt, &route.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}
