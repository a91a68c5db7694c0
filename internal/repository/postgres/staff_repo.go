// internal/repository/postgres/staff_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	domainstaff "flagpost-service/internal/domain/staff"
	xerrors "flagpost-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StaffRepository struct {
	db *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `id, full_name, email, password_hash, role, active, created_at, updated_at`

func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (*domainstaff.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE email = $1`
	return scanStaff(r.db.QueryRow(ctx, query, email))
}

func (r *StaffRepository) FindByID(ctx context.Context, id int64) (*domainstaff.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	return scanStaff(r.db.QueryRow(ctx, query, id))
}

func scanStaff(row pgx.Row) (*domainstaff.Staff, error) {
	var s domainstaff.Staff
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.PasswordHash, &s.Role, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff: %w", err)
	}
	return &s, nil
}
