package model

import "time"

// Student represents an enrolled student account.
type Student struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	BatchID      int       `json:"batch_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	BatchID  int    `json:"batch_id" binding:"required"`
}

// UpdateStudentRequest is the payload for updating a student account.
type UpdateStudentRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=100"`
	Phone   string `json:"phone" binding:"omitempty,max=20"`
	BatchID int    `json:"batch_id" binding:"required"`
}
