// internal/repository/postgres/holiday_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainholiday "flagpost-service/internal/domain/holiday"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HolidayRepository struct {
	db *pgxpool.Pool
}

func NewHolidayRepository(db *pgxpool.Pool) *HolidayRepository {
	return &HolidayRepository{db: db}
}

const holidayColumns = `
	id, name, description, rule, month, day, weekday, week_ordinal,
	observed_years, recurring, placement_days_before, removal_days_after,
	active, sort_order, created_at, updated_at
`

func (r *HolidayRepository) Create(ctx context.Context, h *domainholiday.Holiday) error {
	query := `
		INSERT INTO holidays (
			name, description, rule, month, day, weekday, week_ordinal,
			observed_years, recurring, placement_days_before, removal_days_after,
			active, sort_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		h.Name, h.Description, h.Rule, h.Month, h.Day, h.Weekday, h.WeekOrdinal,
		h.ObservedYears, h.Recurring, h.PlacementDaysBefore, h.RemovalDaysAfter,
		h.Active, h.SortOrder,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create holiday: %w", err)
	}
	return nil
}

func (r *HolidayRepository) Update(ctx context.Context, h *domainholiday.Holiday) error {
	query := `
		UPDATE holidays
		SET name = $1, description = $2, month = $3, day = $4, weekday = $5,
		    week_ordinal = $6, observed_years = $7, placement_days_before = $8,
		    removal_days_after = $9, active = $10, sort_order = $11, updated_at = $12
		WHERE id = $13
	`
	result, err := r.db.Exec(ctx, query,
		h.Name, h.Description, h.Month, h.Day, h.Weekday,
		h.WeekOrdinal, h.ObservedYears, h.PlacementDaysBefore,
		h.RemovalDaysAfter, h.Active, h.SortOrder, time.Now(), h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holiday: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *HolidayRepository) FindByID(ctx context.Context, id int64) (*domainholiday.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE id = $1`
	var h domainholiday.Holiday
	err := r.db.QueryRow(ctx, query, id).Scan(
		&h.ID, &h.Name, &h.Description, &h.Rule, &h.Month, &h.Day, &h.Weekday, &h.WeekOrdinal,
		&h.ObservedYears, &h.Recurring, &h.PlacementDaysBefore, &h.RemovalDaysAfter,
		&h.Active, &h.SortOrder, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find holiday: %w", err)
	}
	return &h, nil
}

func (r *HolidayRepository) List(ctx context.Context, includeInactive bool) ([]domainholiday.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()
	return collectHolidays(rows)
}

// ListActiveByIDs intersects the given ids with the currently-active holiday
// set. It is how a subscription's holiday snapshot is resolved at generation
// time.
func (r *HolidayRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]domainholiday.Holiday, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE active AND id = ANY($1) ORDER BY sort_order, id`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays by ids: %w", err)
	}
	defer rows.Close()
	return collectHolidays(rows)
}

func collectHolidays(rows pgx.Rows) ([]domainholiday.Holiday, error) {
	var holidays []domainholiday.Holiday
	for rows.Next() {
		var h domainholiday.Holiday
		err := rows.Scan(
			&h.ID, &h.Name, &h.Description, &h.Rule, &h.Month, &h.Day, &h.Weekday, &h.WeekOrdinal,
			&h.ObservedYears, &h.Recurring, &h.PlacementDaysBefore, &h.RemovalDaysAfter,
			&h.Active, &h.SortOrder, &h.CreatedAt, &h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
