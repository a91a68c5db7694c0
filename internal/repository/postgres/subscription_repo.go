// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainsub "flagpost-service/internal/domain/subscription"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `
	id, subscription_reference, customer_id, type, start_date, end_date,
	selected_holidays, total_amount, status, cancel_at_period_end,
	canceled_at, cancellation_reason, billing_subscription_id,
	billing_checkout_session_id, created_at, updated_at
`

func scanSubscription(row pgx.Row) (*domainsub.Subscription, error) {
	var s domainsub.Subscription
	err := row.Scan(
		&s.ID, &s.SubscriptionReference, &s.CustomerID, &s.Type, &s.StartDate, &s.EndDate,
		&s.SelectedHolidays, &s.TotalAmount, &s.Status, &s.CancelAtPeriodEnd,
		&s.CanceledAt, &s.CancellationReason, &s.BillingSubscriptionID,
		&s.BillingCheckoutSessionID, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return &s, nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id int64) (*domainsub.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

func (r *SubscriptionRepository) FindByReference(ctx context.Context, ref string) (*domainsub.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE subscription_reference = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, ref))
}

func (r *SubscriptionRepository) FindByBillingSubscriptionID(ctx context.Context, billingID string) (*domainsub.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE billing_subscription_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, billingID))
}

// Create inserts the subscription and its items in one transaction. Items
// are immutable after this point.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domainsub.Subscription, items []domainsub.SubscriptionItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO subscriptions (
			subscription_reference, customer_id, type, start_date, end_date,
			selected_holidays, total_amount, status, cancel_at_period_end,
			billing_subscription_id, billing_checkout_session_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		sub.SubscriptionReference, sub.CustomerID, sub.Type, sub.StartDate, sub.EndDate,
		sub.SelectedHolidays, sub.TotalAmount, sub.Status, sub.CancelAtPeriodEnd,
		sub.BillingSubscriptionID, sub.BillingCheckoutSessionID,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	itemQuery := `
		INSERT INTO subscription_items (subscription_id, flag_product_id, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	for i := range items {
		items[i].SubscriptionID = sub.ID
		err = tx.QueryRow(ctx, itemQuery,
			sub.ID, items[i].FlagProductID, items[i].Quantity, items[i].UnitPrice, items[i].TotalPrice,
		).Scan(&items[i].ID, &items[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create subscription item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ListItems(ctx context.Context, subscriptionID int64) ([]domainsub.SubscriptionItem, error) {
	query := `
		SELECT id, subscription_id, flag_product_id, quantity, unit_price, total_price, created_at
		FROM subscription_items
		WHERE subscription_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription items: %w", err)
	}
	defer rows.Close()

	var items []domainsub.SubscriptionItem
	for rows.Next() {
		var it domainsub.SubscriptionItem
		if err := rows.Scan(&it.ID, &it.SubscriptionID, &it.FlagProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkActive is a conditional update keyed on the pending status, which
// makes activation idempotent under duplicate webhook deliveries.
func (r *SubscriptionRepository) MarkActive(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, domainsub.StatusActive, time.Now(), id, domainsub.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to activate subscription: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (r *SubscriptionRepository) MarkCanceled(ctx context.Context, id int64, reason string, canceledAt time.Time) error {
	query := `
		UPDATE subscriptions
		SET status = $1, canceled_at = $2, cancellation_reason = NULLIF($3, ''), updated_at = $4
		WHERE id = $5 AND status NOT IN ($6, $7)
	`
	result, err := r.db.Exec(ctx, query,
		domainsub.StatusCanceled, canceledAt, reason, time.Now(),
		id, domainsub.StatusCanceled, domainsub.StatusExpired,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) MarkCancelAtPeriodEnd(ctx context.Context, id int64, reason string, canceledAt time.Time) error {
	// Pending rows take the flag too: the provider can deliver the scheduled
	// cancellation before the checkout completion that activates the row.
	query := `
		UPDATE subscriptions
		SET cancel_at_period_end = TRUE, canceled_at = $1, cancellation_reason = NULLIF($2, ''), updated_at = $3
		WHERE id = $4 AND status IN ($5, $6)
	`
	result, err := r.db.Exec(ctx, query, canceledAt, reason, time.Now(), id, domainsub.StatusPending, domainsub.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to schedule cancellation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) MarkExpired(ctx context.Context, id int64) error {
	query := `
		UPDATE subscriptions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, domainsub.StatusExpired, time.Now(), id, domainsub.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to expire subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ExtendEndDate(ctx context.Context, id int64, newEnd time.Time) error {
	query := `UPDATE subscriptions SET end_date = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, newEnd, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to extend subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepository) SetBillingRefs(ctx context.Context, id int64, checkoutSessionID, billingSubscriptionID string) error {
	query := `
		UPDATE subscriptions
		SET billing_checkout_session_id = COALESCE(NULLIF($1, ''), billing_checkout_session_id),
		    billing_subscription_id = COALESCE(NULLIF($2, ''), billing_subscription_id),
		    updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.Exec(ctx, query, checkoutSessionID, billingSubscriptionID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set billing refs: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ListDueForExpiry returns active subscriptions whose period has lapsed.
func (r *SubscriptionRepository) ListDueForExpiry(ctx context.Context, asOf time.Time) ([]domainsub.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = $1 AND end_date < $2
		ORDER BY end_date
	`
	rows, err := r.db.Query(ctx, query, domainsub.StatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (r *SubscriptionRepository) List(ctx context.Context, filters *domainsub.SubscriptionListFilters) ([]domainsub.Subscription, int64, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}
	if filters.CustomerID != 0 {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, filters.CustomerID)
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM subscriptions` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs, err := collectSubscriptions(rows)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func collectSubscriptions(rows pgx.Rows) ([]domainsub.Subscription, error) {
	var subs []domainsub.Subscription
	for rows.Next() {
		var s domainsub.Subscription
		err := rows.Scan(
			&s.ID, &s.SubscriptionReference, &s.CustomerID, &s.Type, &s.StartDate, &s.EndDate,
			&s.SelectedHolidays, &s.TotalAmount, &s.Status, &s.CancelAtPeriodEnd,
			&s.CanceledAt, &s.CancellationReason, &s.BillingSubscriptionID,
			&s.BillingCheckoutSessionID, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
