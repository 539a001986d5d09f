package service

import (
	"context"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/repository"
)

// BatchService handles batch and course reads and creation.
type BatchService struct {
	batchRepo *repository.BatchRepository
}

// NewBatchService creates a new BatchService.
func NewBatchService(batchRepo *repository.BatchRepository) *BatchService {
	return &BatchService{batchRepo: batchRepo}
}

// List retrieves all batches.
func (s *BatchService) List(ctx context.Context) ([]model.Batch, error) {
	return s.batchRepo.List(ctx)
}

// Create adds a new batch to a course.
func (s *BatchService) Create(ctx context.Context, req *model.CreateBatchRequest) (*model.Batch, error) {
	batch := &model.Batch{
		CourseID: req.CourseID,
		Name:     req.Name,
		Timing:   req.Timing,
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// ListCourses retrieves all courses.
func (s *BatchService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.batchRepo.ListCourses(ctx)
}
