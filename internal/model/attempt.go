package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptRecord is the persisted result of one completed quiz attempt.
// Exactly one record may exist per (student, batch, chapter) triple; the
// attempts table carries a uniqueness constraint on that triple.
type AttemptRecord struct {
	ID             uuid.UUID         `json:"id"`
	StudentID      int               `json:"student_id"`
	BatchID        int               `json:"batch_id"`
	Chapter        string            `json:"chapter"`
	TotalQuestions int               `json:"total_questions"`
	CorrectCount   int               `json:"correct_answers"`
	WrongCount     int               `json:"wrong_answers"`
	Score          int               `json:"score"`
	Answers        []AttemptAnswer   `json:"answers"`
	Questions      []AttemptQuestion `json:"questions"`
	TimeTakenSecs  int               `json:"time_taken"`
	SubmittedAt    time.Time         `json:"submitted_at"`
}

// AttemptAnswer records the student's selections for one question, in the
// question's original option coordinates.
type AttemptAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Selected   []int     `json:"selected"`
	Correct    bool      `json:"correct"`
}

// AttemptQuestion is a snapshot of a question as it appeared in the attempt,
// kept with the record for later review.
type AttemptQuestion struct {
	QuestionID     uuid.UUID `json:"question_id"`
	QuestionText   string    `json:"question_text"`
	Options        []string  `json:"options"`
	CorrectAnswers []int     `json:"correct_answers"`
}

// StartQuizRequest is the payload for starting a quiz attempt.
type StartQuizRequest struct {
	Chapter string `json:"chapter" binding:"required,min=1,max=50"`
}

// SaveAnswerRequest is the payload for recording selections on one question.
// Selections are in shuffled option coordinates as shown to the student. An
// empty selection set clears the saved answer.
type SaveAnswerRequest struct {
	QuestionNum int   `json:"question_num" binding:"required,min=1"`
	Selections  []int `json:"selections" binding:"max=4"`
}
