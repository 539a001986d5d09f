package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateAttempt is returned when an attempt already exists for the
// (student, batch, chapter) triple. The uniqueness constraint on the attempts
// table makes this the authoritative guard against duplicate submissions,
// including racing retries that slip past the application pre-check.
var ErrDuplicateAttempt = errors.New("attempt already recorded for this student, batch and chapter")

// AttemptResult combines student data with their attempt details for the
// admin results view.
type AttemptResult struct {
	StudentID      int       `json:"student_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Chapter        string    `json:"chapter"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_answers"`
	WrongCount     int       `json:"wrong_answers"`
	Score          int       `json:"score"`
	TimeTakenSecs  int       `json:"time_taken"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// AttemptRepository is the persisted attempt ledger.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// CheckAttempt looks up an existing attempt for the triple. Returns nil
// (no error) when none exists.
func (r *AttemptRepository) CheckAttempt(ctx context.Context, studentID, batchID int, chapter string) (*model.AttemptRecord, error) {
	rec := &model.AttemptRecord{}
	var answers, questions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, batch_id, chapter, total_questions, correct_count,
		        wrong_count, score, answers, questions, time_taken_secs, submitted_at
		 FROM attempts
		 WHERE student_id = $1 AND batch_id = $2 AND chapter = $3`,
		studentID, batchID, chapter,
	).Scan(&rec.ID, &rec.StudentID, &rec.BatchID, &rec.Chapter, &rec.TotalQuestions,
		&rec.CorrectCount, &rec.WrongCount, &rec.Score, &answers, &questions,
		&rec.TimeTakenSecs, &rec.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(questions, &rec.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return rec, nil
}

// RecordAttempt persists a completed attempt exactly once per triple.
// ON CONFLICT DO NOTHING plus RETURNING turns a duplicate into zero rows,
// which is reported as ErrDuplicateAttempt.
func (r *AttemptRepository) RecordAttempt(ctx context.Context, rec *model.AttemptRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO attempts (student_id, batch_id, chapter, total_questions,
		                       correct_count, wrong_count, score, answers, questions,
		                       time_taken_secs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (student_id, batch_id, chapter) DO NOTHING
		 RETURNING id, submitted_at`,
		rec.StudentID, rec.BatchID, rec.Chapter, rec.TotalQuestions,
		rec.CorrectCount, rec.WrongCount, rec.Score, answers, questions,
		rec.TimeTakenSecs,
	).Scan(&rec.ID, &rec.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateAttempt
		}
		return err
	}
	return nil
}

// ListByStudent retrieves all attempts of a student, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.AttemptRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, batch_id, chapter, total_questions, correct_count,
		        wrong_count, score, answers, questions, time_taken_secs, submitted_at
		 FROM attempts
		 WHERE student_id = $1
		 ORDER BY submitted_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		var answers, questions []byte
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.BatchID, &rec.Chapter,
			&rec.TotalQuestions, &rec.CorrectCount, &rec.WrongCount, &rec.Score,
			&answers, &questions, &rec.TimeTakenSecs, &rec.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		if err := json.Unmarshal(questions, &rec.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListResults retrieves paginated attempt results with optional batch and
// chapter filters, for the admin results view.
func (r *AttemptRepository) ListResults(ctx context.Context, page, perPage int, batchID *int, chapter *string) ([]AttemptResult, int, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM attempts a
		JOIN students s ON a.student_id = s.id
		WHERE 1=1
	`
	args := []any{}

	if batchID != nil {
		args = append(args, *batchID)
		baseQuery += fmt.Sprintf(" AND a.batch_id = $%d", len(args))
	}
	if chapter != nil && *chapter != "" {
		args = append(args, *chapter)
		baseQuery += fmt.Sprintf(" AND a.chapter = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT s.id, s.name, s.email, a.chapter, a.total_questions,
		       a.correct_count, a.wrong_count, a.score, a.time_taken_secs, a.submitted_at
		` + baseQuery + `
		ORDER BY a.submitted_at DESC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var res AttemptResult
		if err := rows.Scan(&res.StudentID, &res.Name, &res.Email, &res.Chapter,
			&res.TotalQuestions, &res.CorrectCount, &res.WrongCount, &res.Score,
			&res.TimeTakenSecs, &res.SubmittedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
