// internal/repository/postgres/inventory_repo.go
package postgres

import (
	"context"
	"fmt"

	domaininventory "flagpost-service/internal/domain/inventory"

	"github.com/jackc/pgx/v5/pgxpool"
)

type InventoryRepository struct {
	db *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ApplyAdjustment locks the product row, applies the delta and writes the
// ledger entry in the same transaction, so previous_quantity + delta =
// new_quantity holds even under concurrent adjustments.
func (r *InventoryRepository) ApplyAdjustment(ctx context.Context, productID int64, delta int, reason, reference string) (*domaininventory.Adjustment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var prev int
	err = tx.QueryRow(ctx,
		`SELECT stock_quantity FROM flag_products WHERE id = $1 FOR UPDATE`, productID,
	).Scan(&prev)
	if err != nil {
		return nil, fmt.Errorf("failed to lock product row: %w", err)
	}

	next := prev + delta
	if _, err := tx.Exec(ctx,
		`UPDATE flag_products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2`, next, productID,
	); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	adj := &domaininventory.Adjustment{
		FlagProductID:    productID,
		Delta:            delta,
		PreviousQuantity: prev,
		NewQuantity:      next,
		Reason:           reason,
	}
	if reference != "" {
		adj.Reference.String, adj.Reference.Valid = reference, true
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_adjustments (flag_product_id, delta, previous_quantity, new_quantity, reason, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, productID, delta, prev, next, reason, adj.Reference,
	).Scan(&adj.ID, &adj.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	return adj, nil
}

func (r *InventoryRepository) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]domaininventory.Adjustment, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM inventory_adjustments WHERE flag_product_id = $1`, productID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count adjustments: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, flag_product_id, delta, previous_quantity, new_quantity, reason, reference, created_at
		FROM inventory_adjustments
		WHERE flag_product_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var entries []domaininventory.Adjustment
	for rows.Next() {
		var a domaininventory.Adjustment
		err := rows.Scan(&a.ID, &a.FlagProductID, &a.Delta, &a.PreviousQuantity, &a.NewQuantity, &a.Reason, &a.Reference, &a.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, total, rows.Err()
}
