package model

import "time"

// Course represents a subject offered by the tutoring center.
type Course struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Batch represents a scheduled cohort of students for a course.
type Batch struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	Name      string    `json:"name"`
	Timing    string    `json:"timing,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateBatchRequest is the payload for creating a batch.
type CreateBatchRequest struct {
	CourseID int    `json:"course_id" binding:"required"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Timing   string `json:"timing" binding:"omitempty,max=100"`
}
