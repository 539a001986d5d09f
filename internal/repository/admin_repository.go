package repository

import (
	"context"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminRepository handles admin (tutor/staff) data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetByID retrieves an admin by ID.
func (r *AdminRepository) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	a := &model.Admin{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM admins WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByEmail retrieves an admin by email for login.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a := &model.Admin{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at
		 FROM admins WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new admin account.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO admins (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.Email, a.Name, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
}
