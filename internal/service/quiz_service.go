package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QuizService handles quiz and question management plus the chapter pool
// cache the attempt engine draws from.
type QuizService struct {
	quizRepo *repository.QuizRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizRepo *repository.QuizRepository, rdb *redis.Client) *QuizService {
	return &QuizService{
		quizRepo: quizRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "quiz_service").Logger(),
	}
}

// CreateQuiz creates a quiz with its initial question set. Every question is
// validated before anything is written.
func (s *QuizService) CreateQuiz(ctx context.Context, req *model.CreateQuizRequest) (*model.Quiz, error) {
	quiz := &model.Quiz{
		CourseID: req.CourseID,
		Title:    req.Title,
		Chapter:  req.Chapter,
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q := model.Question{
			QuestionText:   qr.QuestionText,
			Options:        qr.Options,
			CorrectAnswers: qr.CorrectAnswers,
			OrderNum:       i + 1,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	for i := range questions {
		questions[i].QuizID = quiz.ID
		if err := s.quizRepo.AddQuestion(ctx, &questions[i]); err != nil {
			return nil, fmt.Errorf("add question %d: %w", i+1, err)
		}
	}

	s.invalidatePool(ctx, quiz.CourseID, quiz.Chapter)
	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Str("chapter", quiz.Chapter).
		Int("questions", len(questions)).
		Msg("Quiz created")
	return quiz, nil
}

// GetQuiz retrieves a quiz with its questions.
func (s *QuizService) GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, []model.Question, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.quizRepo.ListQuestions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return quiz, questions, nil
}

// ListQuizzes retrieves all quizzes of a course.
func (s *QuizService) ListQuizzes(ctx context.Context, courseID int) ([]model.Quiz, error) {
	return s.quizRepo.ListByCourse(ctx, courseID)
}

// UpdateQuiz modifies quiz metadata. Both the old and new chapter pool are
// invalidated since a chapter change moves questions between pools.
func (s *QuizService) UpdateQuiz(ctx context.Context, id uuid.UUID, req *model.UpdateQuizRequest) (*model.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldChapter := quiz.Chapter

	quiz.Title = req.Title
	quiz.Chapter = req.Chapter
	if err := s.quizRepo.Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}

	s.invalidatePool(ctx, quiz.CourseID, oldChapter)
	if quiz.Chapter != oldChapter {
		s.invalidatePool(ctx, quiz.CourseID, quiz.Chapter)
	}
	return quiz, nil
}

// DeleteQuiz removes a quiz and its questions.
func (s *QuizService) DeleteQuiz(ctx context.Context, id uuid.UUID) error {
	quiz, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.quizRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidatePool(ctx, quiz.CourseID, quiz.Chapter)
	return nil
}

// AddQuestion appends a question to a quiz.
func (s *QuizService) AddQuestion(ctx context.Context, quizID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	existing, err := s.quizRepo.ListQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	q := &model.Question{
		QuizID:         quizID,
		QuestionText:   req.QuestionText,
		Options:        req.Options,
		CorrectAnswers: req.CorrectAnswers,
		OrderNum:       len(existing) + 1,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.quizRepo.AddQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}

	s.invalidatePool(ctx, quiz.CourseID, quiz.Chapter)
	return q, nil
}

// ReplaceQuestions atomically replaces the full question set of a quiz.
func (s *QuizService) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, req *model.ReplaceQuestionsRequest) ([]model.Question, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, qr := range req.Questions {
		q := model.Question{
			QuizID:         quizID,
			QuestionText:   qr.QuestionText,
			Options:        qr.Options,
			CorrectAnswers: qr.CorrectAnswers,
			OrderNum:       i + 1,
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}

	if err := s.quizRepo.ReplaceQuestions(ctx, quizID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}

	s.invalidatePool(ctx, quiz.CourseID, quiz.Chapter)
	return questions, nil
}

// ListChapters returns the chapters that have quizzes for a course.
func (s *QuizService) ListChapters(ctx context.Context, courseID int) ([]string, error) {
	return s.quizRepo.ListChapters(ctx, courseID)
}

// ChapterPool returns the flattened question pool for a course chapter. The
// pool is served from Redis when cached, with Postgres as fallback and
// self-healing of the cache on a miss.
func (s *QuizService) ChapterPool(ctx context.Context, courseID int, chapter string) ([]model.Question, error) {
	key := config.CacheKey.ChapterPoolKey(courseID, chapter)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var pool []model.Question
		if err := json.Unmarshal(data, &pool); err == nil {
			return pool, nil
		}
		// Corrupt cache entry, fall through to database.
		s.log.Warn().Str("key", key).Msg("Corrupt chapter pool cache entry, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("key", key).Msg("Chapter pool cache read failed, falling back to database")
	}

	pool, err := s.quizRepo.ListByChapter(ctx, courseID, chapter)
	if err != nil {
		return nil, fmt.Errorf("load chapter pool: %w", err)
	}

	if data, err := json.Marshal(pool); err == nil {
		if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache chapter pool")
		}
	}
	return pool, nil
}

// PrewarmPools loads every chapter pool into Redis. Called at startup so the
// first quiz start of the day does not pay the database round trip.
func (s *QuizService) PrewarmPools(ctx context.Context) error {
	keys, err := s.quizRepo.ListChapterKeys(ctx)
	if err != nil {
		return fmt.Errorf("list chapter keys: %w", err)
	}

	for _, k := range keys {
		pool, err := s.quizRepo.ListByChapter(ctx, k.CourseID, k.Chapter)
		if err != nil {
			return fmt.Errorf("load pool %d/%s: %w", k.CourseID, k.Chapter, err)
		}
		data, err := json.Marshal(pool)
		if err != nil {
			return fmt.Errorf("marshal pool %d/%s: %w", k.CourseID, k.Chapter, err)
		}
		cacheKey := config.CacheKey.ChapterPoolKey(k.CourseID, k.Chapter)
		if err := s.rdb.Set(ctx, cacheKey, data, 0).Err(); err != nil {
			return fmt.Errorf("cache pool %d/%s: %w", k.CourseID, k.Chapter, err)
		}
	}

	s.log.Info().Int("pools", len(keys)).Msg("Chapter pools prewarmed")
	return nil
}

func (s *QuizService) invalidatePool(ctx context.Context, courseID int, chapter string) {
	key := config.CacheKey.ChapterPoolKey(courseID, chapter)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate chapter pool cache")
	}
}
