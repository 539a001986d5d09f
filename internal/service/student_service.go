package service

import (
	"context"
	"fmt"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/repository"
)

// StudentService handles student account management.
type StudentService struct {
	studentRepo *repository.StudentRepository
	batchRepo   *repository.BatchRepository
	auth        *AuthService
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository, batchRepo *repository.BatchRepository, auth *AuthService) *StudentService {
	return &StudentService{studentRepo: studentRepo, batchRepo: batchRepo, auth: auth}
}

// GetByID retrieves a student.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// GetByEmail retrieves a student by email.
func (s *StudentService) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	return s.studentRepo.GetByEmail(ctx, email)
}

// GetBatch retrieves a student's batch, which also carries the course.
func (s *StudentService) GetBatch(ctx context.Context, batchID int) (*model.Batch, error) {
	return s.batchRepo.GetByID(ctx, batchID)
}

// Create registers a new student under an existing batch.
func (s *StudentService) Create(ctx context.Context, req *model.CreateStudentRequest) (*model.Student, error) {
	if _, err := s.batchRepo.GetByID(ctx, req.BatchID); err != nil {
		return nil, fmt.Errorf("batch %d: %w", req.BatchID, err)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	student := &model.Student{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		BatchID:      req.BatchID,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// Update modifies a student's profile.
func (s *StudentService) Update(ctx context.Context, id int, req *model.UpdateStudentRequest) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BatchID != student.BatchID {
		if _, err := s.batchRepo.GetByID(ctx, req.BatchID); err != nil {
			return nil, fmt.Errorf("batch %d: %w", req.BatchID, err)
		}
	}
	student.Name = req.Name
	student.Phone = req.Phone
	student.BatchID = req.BatchID

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Delete removes a student account.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	return s.studentRepo.Delete(ctx, id)
}

// List retrieves students with pagination, optionally filtered by batch.
func (s *StudentService) List(ctx context.Context, page, perPage int, batchID *int) ([]model.Student, int, error) {
	return s.studentRepo.List(ctx, page, perPage, batchID)
}
