// internal/repository/postgres/placement_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainplacement "flagpost-service/internal/domain/placement"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlacementRepository struct {
	db *pgxpool.Pool
}

func NewPlacementRepository(db *pgxpool.Pool) *PlacementRepository {
	return &PlacementRepository{db: db}
}

const placementColumns = `
	id, subscription_id, holiday_id, flag_product_id, year,
	placement_date, removal_date, status, placed_by, removed_by,
	placed_at, removed_at, address_override, created_at, updated_at
`

// InsertIfAbsent creates the placement unless a non-skipped row already
// exists for the same (subscription, holiday, product, year). The partial
// unique index idx_placements_once carries the invariant; ON CONFLICT makes
// the insert a no-op instead of an error.
func (r *PlacementRepository) InsertIfAbsent(ctx context.Context, p *domainplacement.FlagPlacement) (bool, error) {
	query := `
		INSERT INTO flag_placements (
			subscription_id, holiday_id, flag_product_id, year,
			placement_date, removal_date, status, address_override
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (subscription_id, holiday_id, flag_product_id, year)
			WHERE status <> 'skipped'
		DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.SubscriptionID, p.HolidayID, p.FlagProductID, p.Year,
		p.PlacementDate, p.RemovalDate, p.Status, p.AddressOverride,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert placement: %w", err)
	}
	return true, nil
}

// SkipFutureScheduled marks a subscription's upcoming scheduled placements
// skipped. Placed flags stay where they are until their removal visit.
func (r *PlacementRepository) SkipFutureScheduled(ctx context.Context, subscriptionID int64, after time.Time) (int64, error) {
	query := `
		UPDATE flag_placements
		SET status = $1, updated_at = $2
		WHERE subscription_id = $3 AND status = $4 AND placement_date > $5
	`
	result, err := r.db.Exec(ctx, query,
		domainplacement.StatusSkipped, time.Now(), subscriptionID, domainplacement.StatusScheduled, after,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to skip placements: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *PlacementRepository) FindByID(ctx context.Context, id int64) (*domainplacement.FlagPlacement, error) {
	query := `SELECT ` + placementColumns + ` FROM flag_placements WHERE id = $1`
	var p domainplacement.FlagPlacement
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SubscriptionID, &p.HolidayID, &p.FlagProductID, &p.Year,
		&p.PlacementDate, &p.RemovalDate, &p.Status, &p.PlacedBy, &p.RemovedBy,
		&p.PlacedAt, &p.RemovedAt, &p.AddressOverride, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find placement: %w", err)
	}
	return &p, nil
}

func (r *PlacementRepository) MarkPlaced(ctx context.Context, id, staffID int64, at time.Time) (bool, error) {
	query := `
		UPDATE flag_placements
		SET status = $1, placed_by = $2, placed_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.Exec(ctx, query,
		domainplacement.StatusPlaced, staffID, at, time.Now(), id, domainplacement.StatusScheduled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark placement placed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PlacementRepository) MarkRemoved(ctx context.Context, id, staffID int64, at time.Time) (bool, error) {
	query := `
		UPDATE flag_placements
		SET status = $1, removed_by = $2, removed_at = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.Exec(ctx, query,
		domainplacement.StatusRemoved, staffID, at, time.Now(), id, domainplacement.StatusPlaced,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark placement removed: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *PlacementRepository) SetAddressOverride(ctx context.Context, id int64, address string) error {
	query := `UPDATE flag_placements SET address_override = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, address, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set address override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *PlacementRepository) List(ctx context.Context, f *domainplacement.PlacementListFilters) ([]domainplacement.FlagPlacement, int64, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	add := func(cond string, val interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argPos))
		args = append(args, val)
		argPos++
	}

	if f.SubscriptionID != 0 {
		add("subscription_id = $%d", f.SubscriptionID)
	}
	if f.HolidayID != 0 {
		add("holiday_id = $%d", f.HolidayID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.From != "" {
		from, err := time.Parse("2006-01-02", f.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: from must be YYYY-MM-DD", xerrors.ErrInvalidInput)
		}
		add("placement_date >= $%d", from)
	}
	if f.To != "" {
		to, err := time.Parse("2006-01-02", f.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: to must be YYYY-MM-DD", xerrors.ErrInvalidInput)
		}
		add("placement_date <= $%d", to)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM flag_placements`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count placements: %w", err)
	}

	query := `SELECT ` + placementColumns + ` FROM flag_placements` + where +
		fmt.Sprintf(" ORDER BY placement_date, id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list placements: %w", err)
	}
	defer rows.Close()

	var placements []domainplacement.FlagPlacement
	for rows.Next() {
		var p domainplacement.FlagPlacement
		err := rows.Scan(
			&p.ID, &p.SubscriptionID, &p.HolidayID, &p.FlagProductID, &p.Year,
			&p.PlacementDate, &p.RemovalDate, &p.Status, &p.PlacedBy, &p.RemovedBy,
			&p.PlacedAt, &p.RemovedAt, &p.AddressOverride, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan placement: %w", err)
		}
		placements = append(placements, p)
	}
	return placements, total, rows.Err()
}
