package repository

import (
	"context"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchRepository handles batch and course data access.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// GetByID retrieves a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id int) (*model.Batch, error) {
	b := &model.Batch{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, name, timing, created_at
		 FROM batches WHERE id = $1`, id,
	).Scan(&b.ID, &b.CourseID, &b.Name, &b.Timing, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List retrieves all batches.
func (r *BatchRepository) List(ctx context.Context) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, name, timing, created_at
		 FROM batches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.CourseID, &b.Name, &b.Timing, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Create inserts a new batch.
func (r *BatchRepository) Create(ctx context.Context, b *model.Batch) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO batches (course_id, name, timing)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		b.CourseID, b.Name, b.Timing,
	).Scan(&b.ID, &b.CreatedAt)
}

// ListCourses retrieves all courses.
func (r *BatchRepository) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM courses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
