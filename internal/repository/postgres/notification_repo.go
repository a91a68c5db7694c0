// internal/repository/postgres/notification_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	domainnotif "flagpost-service/internal/domain/notification"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domainnotif.Notification) error {
	query := `
		INSERT INTO notifications (customer_id, subject, message, channel, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		n.CustomerID, n.Subject, n.Message, n.Channel, n.Status,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, id int64, status domainnotif.Status) error {
	result, err := r.db.Exec(ctx,
		`UPDATE notifications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, limit, offset int) ([]domainnotif.Notification, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, customer_id, subject, message, channel, status, created_at
		FROM notifications
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []domainnotif.Notification
	for rows.Next() {
		var n domainnotif.Notification
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.Subject, &n.Message, &n.Channel, &n.Status, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// PurgeOlderThan trims the audit table; notifications are operational
// breadcrumbs, not records of account activity.
func (r *NotificationRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return result.RowsAffected(), nil
}
