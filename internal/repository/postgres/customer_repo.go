// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domaincustomer "flagpost-service/internal/domain/customer"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `
	id, full_name, email, phone, address_line, city, state, zip,
	latitude, longitude, billing_customer_id, created_at, updated_at
`

func (r *CustomerRepository) Create(ctx context.Context, c *domaincustomer.Customer) error {
	query := `
		INSERT INTO customers (full_name, email, phone, address_line, city, state, zip, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.FullName, c.Email, c.Phone, c.AddressLine, c.City, c.State, c.Zip, c.Latitude, c.Longitude,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: email already registered", xerrors.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*domaincustomer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*domaincustomer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	return scanCustomer(r.db.QueryRow(ctx, query, email))
}

func scanCustomer(row pgx.Row) (*domaincustomer.Customer, error) {
	var c domaincustomer.Customer
	err := row.Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone, &c.AddressLine, &c.City, &c.State, &c.Zip,
		&c.Latitude, &c.Longitude, &c.BillingCustomerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepository) Update(ctx context.Context, c *domaincustomer.Customer) error {
	query := `
		UPDATE customers
		SET full_name = $1, phone = $2, address_line = $3, city = $4, state = $5,
		    zip = $6, latitude = $7, longitude = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.Exec(ctx, query,
		c.FullName, c.Phone, c.AddressLine, c.City, c.State,
		c.Zip, c.Latitude, c.Longitude, time.Now(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) SetBillingCustomerID(ctx context.Context, id int64, billingCustomerID string) error {
	query := `UPDATE customers SET billing_customer_id = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, billingCustomerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set billing customer id: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// CreatePotential records an address the business could not serve yet.
func (r *CustomerRepository) CreatePotential(ctx context.Context, p *domaincustomer.PotentialCustomer) error {
	query := `
		INSERT INTO potential_customers (full_name, email, phone, address_line, zip)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		p.FullName, p.Email, p.Phone, p.AddressLine, p.Zip,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create potential customer: %w", err)
	}
	return nil
}
