package repository

import (
	"context"
	"fmt"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, phone, password_hash, batch_id, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.Phone, &s.PasswordHash, &s.BatchID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByEmail retrieves a student by email for login.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, phone, password_hash, batch_id, created_at, updated_at
		 FROM students WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.Phone, &s.PasswordHash, &s.BatchID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (email, name, phone, password_hash, batch_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.Email, s.Name, s.Phone, s.PasswordHash, s.BatchID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Update modifies a student's profile fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET name = $1, phone = $2, batch_id = $3, updated_at = NOW()
		 WHERE id = $4`,
		s.Name, s.Phone, s.BatchID, s.ID)
	return err
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}

// List retrieves students with pagination, optionally filtered by batch.
func (r *StudentRepository) List(ctx context.Context, page, perPage int, batchID *int) ([]model.Student, int, error) {
	offset := (page - 1) * perPage

	var total int
	var err error
	if batchID != nil {
		err = r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM students WHERE batch_id = $1`, *batchID).Scan(&total)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total)
	}
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, email, name, phone, password_hash, batch_id, created_at, updated_at
	          FROM students`
	args := []any{}
	if batchID != nil {
		query += ` WHERE batch_id = $1`
		args = append(args, *batchID)
	}
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.Phone, &s.PasswordHash,
			&s.BatchID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}
