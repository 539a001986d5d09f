package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuizRepository handles quiz and question data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Create inserts a new quiz.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (course_id, title, chapter)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		q.CourseID, q.Title, q.Chapter,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// GetByID retrieves a quiz by its UUID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, title, chapter, created_at, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.CourseID, &q.Title, &q.Chapter, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByCourse retrieves all quizzes for a course, newest first.
func (r *QuizRepository) ListByCourse(ctx context.Context, courseID int) ([]model.Quiz, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, chapter, created_at, updated_at
		 FROM quizzes WHERE course_id = $1
		 ORDER BY chapter, created_at DESC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Title, &q.Chapter, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// Update modifies quiz metadata.
func (r *QuizRepository) Update(ctx context.Context, q *model.Quiz) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET title = $1, chapter = $2, updated_at = NOW()
		 WHERE id = $3`,
		q.Title, q.Chapter, q.ID)
	return err
}

// Delete removes a quiz and its questions (FK cascade).
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

// AddQuestion inserts a new question. Options and correct answers are stored
// as JSONB.
func (r *QuizRepository) AddQuestion(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	correct, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return fmt.Errorf("marshal correct answers: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, question_text, options, correct_answers, order_num)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		q.QuizID, q.QuestionText, options, correct, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceQuestions atomically replaces all questions of a quiz.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quizID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		correct, err := json.Marshal(q.CorrectAnswers)
		if err != nil {
			return fmt.Errorf("marshal correct answers: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (quiz_id, question_text, options, correct_answers, order_num)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			quizID, q.QuestionText, options, correct, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListQuestions retrieves all questions of a quiz, ordered by order_num.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, question_text, options, correct_answers, order_num
		 FROM questions WHERE quiz_id = $1
		 ORDER BY order_num`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// ListByChapter flattens the questions of every quiz sharing a course and
// chapter. This is the raw pool the assembler draws from.
func (r *QuizRepository) ListByChapter(ctx context.Context, courseID int, chapter string) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT qn.id, qn.quiz_id, qn.question_text, qn.options, qn.correct_answers, qn.order_num
		 FROM questions qn
		 JOIN quizzes qz ON qn.quiz_id = qz.id
		 WHERE qz.course_id = $1 AND qz.chapter = $2
		 ORDER BY qz.created_at, qn.order_num`, courseID, chapter,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// ListChapters returns the distinct chapters that have quizzes for a course.
func (r *QuizRepository) ListChapters(ctx context.Context, courseID int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT chapter FROM quizzes
		 WHERE course_id = $1
		 ORDER BY chapter`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		chapters = append(chapters, c)
	}
	return chapters, rows.Err()
}

// ChapterKey identifies one chapter pool.
type ChapterKey struct {
	CourseID int
	Chapter  string
}

// ListChapterKeys returns every (course, chapter) pair that has quizzes.
// Used to prewarm the pool cache at startup.
func (r *QuizRepository) ListChapterKeys(ctx context.Context) ([]ChapterKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT course_id, chapter FROM quizzes
		 ORDER BY course_id, chapter`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []ChapterKey
	for rows.Next() {
		var k ChapterKey
		if err := rows.Scan(&k.CourseID, &k.Chapter); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type questionRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanQuestions(rows questionRows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options, correct []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.QuestionText, &options, &correct, &q.OrderNum); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		if err := json.Unmarshal(correct, &q.CorrectAnswers); err != nil {
			return nil, fmt.Errorf("unmarshal correct answers: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
