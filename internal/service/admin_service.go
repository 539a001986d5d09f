package service

import (
	"context"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/repository"
)

// AdminService handles tutor/staff account reads and creation.
type AdminService struct {
	adminRepo *repository.AdminRepository
	auth      *AuthService
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, auth *AuthService) *AdminService {
	return &AdminService{adminRepo: adminRepo, auth: auth}
}

// GetByID retrieves an admin.
func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.adminRepo.GetByID(ctx, id)
}

// GetByEmail retrieves an admin by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.adminRepo.GetByEmail(ctx, email)
}

// Create registers a new admin account with a hashed password.
func (s *AdminService) Create(ctx context.Context, email, name, password string) (*model.Admin, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &model.Admin{Email: email, Name: name, PasswordHash: hash}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}
