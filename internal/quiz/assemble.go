package quiz

import (
	"errors"
	"math/rand/v2"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/google/uuid"
)

// DefaultMaxQuestions caps how many questions a generated instance may hold.
const DefaultMaxQuestions = 50

// ErrNoQuestions is returned when a chapter has no questions to draw from.
var ErrNoQuestions = errors.New("no questions available for this chapter")

// InstanceQuestion is one question of a generated instance: a shuffled view of
// a pool question plus the mapping needed to grade shuffled selections.
type InstanceQuestion struct {
	Number  int       // 1-based display number within the instance
	ID      uuid.UUID // identity of the source pool question
	Text    string
	Options []string // shuffled copy, no aliasing into the pool
	Mapping []int    // shuffled position → original option index
	Correct []int    // correct indices in shuffled coordinates, sorted
}

// Instance is an ephemeral quiz assembled for a single attempt. It is owned
// by the session that requested it and is never persisted.
type Instance struct {
	Title     string
	Chapter   string
	Questions []InstanceQuestion
}

// Assemble draws min(maxQuestions, len(pool)) questions without replacement
// from the flattened chapter pool, shuffling both question order and each
// question's options. The rand source is injectable so assembly is
// reproducible under test.
func Assemble(title, chapter string, pool []model.Question, maxQuestions int, rng *rand.Rand) (*Instance, error) {
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}

	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	n := min(maxQuestions, len(pool))
	questions := make([]InstanceQuestion, 0, n)
	for i, ix := range order[:n] {
		q := pool[ix]
		options, mapping, correct := ShuffleOptions(q.Options, q.CorrectAnswers, rng)
		questions = append(questions, InstanceQuestion{
			Number:  i + 1,
			ID:      q.ID,
			Text:    q.QuestionText,
			Options: options,
			Mapping: mapping,
			Correct: correct,
		})
	}

	return &Instance{
		Title:     title,
		Chapter:   chapter,
		Questions: questions,
	}, nil
}
