package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Quiz is a bank of questions for one chapter of a course. Multiple quizzes
// may share a chapter; attempt assembly draws from all of them together.
type Quiz struct {
	ID        uuid.UUID `json:"id"`
	CourseID  int       `json:"course_id"`
	Title     string    `json:"title"`
	Chapter   string    `json:"chapter"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Question represents a single multiple-choice question. CorrectAnswers holds
// option indices and supports multi-select questions.
type Question struct {
	ID             uuid.UUID `json:"id"`
	QuizID         uuid.UUID `json:"quiz_id"`
	QuestionText   string    `json:"question_text"`
	Options        []string  `json:"options"`
	CorrectAnswers []int     `json:"correct_answers"`
	OrderNum       int       `json:"order_num"`
}

// Validate checks the correct-answer invariant: a non-empty set of distinct
// indices inside the option range.
func (q *Question) Validate() error {
	if len(q.Options) != 4 {
		return fmt.Errorf("question must have exactly 4 options, got %d", len(q.Options))
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("question must have at least one correct answer")
	}
	seen := make(map[int]bool, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		if idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("correct answer index %d out of range [0,%d)", idx, len(q.Options))
		}
		if seen[idx] {
			return fmt.Errorf("duplicate correct answer index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

// CreateQuizRequest is the payload for creating a quiz with its questions.
type CreateQuizRequest struct {
	CourseID  int                  `json:"course_id" binding:"required"`
	Title     string               `json:"title" binding:"required,min=2,max=200"`
	Chapter   string               `json:"chapter" binding:"required,min=1,max=50"`
	Questions []AddQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// UpdateQuizRequest is the payload for updating quiz metadata.
type UpdateQuizRequest struct {
	Title   string `json:"title" binding:"required,min=2,max=200"`
	Chapter string `json:"chapter" binding:"required,min=1,max=50"`
}

// AddQuestionRequest is the payload for adding a question to a quiz.
type AddQuestionRequest struct {
	QuestionText   string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options        []string `json:"options" binding:"required,len=4,dive,required,max=500"`
	CorrectAnswers []int    `json:"correct_answers" binding:"required,min=1,max=4"`
	OrderNum       int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a quiz's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
