// internal/repository/postgres/product_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domaincatalog "flagpost-service/internal/domain/catalog"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id, flag_type, flag_size, one_time_price, annual_price, stock_quantity,
	billing_product_id, billing_one_time_price_id, billing_annual_price_id,
	active, created_at, updated_at
`

func (r *ProductRepository) Create(ctx context.Context, p *domaincatalog.FlagProduct) error {
	query := `
		INSERT INTO flag_products (flag_type, flag_size, one_time_price, annual_price, stock_quantity, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.FlagType, p.FlagSize, p.OneTimePrice, p.AnnualPrice, p.StockQuantity, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: product %s/%s already exists", xerrors.ErrDuplicateEntry, p.FlagType, p.FlagSize)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domaincatalog.FlagProduct) error {
	query := `
		UPDATE flag_products
		SET one_time_price = $1, annual_price = $2, stock_quantity = $3, active = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.Exec(ctx, query,
		p.OneTimePrice, p.AnnualPrice, p.StockQuantity, p.Active, time.Now(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domaincatalog.FlagProduct, error) {
	query := `SELECT ` + productColumns + ` FROM flag_products WHERE id = $1`
	var p domaincatalog.FlagProduct
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.FlagType, &p.FlagSize, &p.OneTimePrice, &p.AnnualPrice, &p.StockQuantity,
		&p.BillingProductID, &p.BillingOneTimePriceID, &p.BillingAnnualPriceID,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, includeInactive bool) ([]domaincatalog.FlagProduct, error) {
	query := `SELECT ` + productColumns + ` FROM flag_products`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY flag_type, flag_size`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domaincatalog.FlagProduct
	for rows.Next() {
		var p domaincatalog.FlagProduct
		err := rows.Scan(
			&p.ID, &p.FlagType, &p.FlagSize, &p.OneTimePrice, &p.AnnualPrice, &p.StockQuantity,
			&p.BillingProductID, &p.BillingOneTimePriceID, &p.BillingAnnualPriceID,
			&p.Active, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) SetBillingIDs(ctx context.Context, id int64, productID, oneTimePriceID, annualPriceID string) error {
	query := `
		UPDATE flag_products
		SET billing_product_id = $1, billing_one_time_price_id = $2, billing_annual_price_id = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.Exec(ctx, query, productID, oneTimePriceID, annualPriceID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set billing ids: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
