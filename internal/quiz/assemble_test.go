package quiz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/google/uuid"
)

func makePool(n int) []model.Question {
	pool := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, model.Question{
			ID:             uuid.New(),
			QuestionText:   fmt.Sprintf("question %d", i),
			Options:        []string{"opt a", "opt b", "opt c", "opt d"},
			CorrectAnswers: []int{i % 4},
		})
	}
	return pool
}

func TestAssembleEmptyPool(t *testing.T) {
	_, err := Assemble("Quiz", "3", nil, 50, testRand(1))
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestAssembleSmallPoolUsesAllQuestions(t *testing.T) {
	pool := makePool(7)

	inst, err := Assemble("Quiz", "3", pool, 50, testRand(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(inst.Questions) != 7 {
		t.Fatalf("got %d questions, want 7", len(inst.Questions))
	}
}

func TestAssembleCapsAtMaxQuestions(t *testing.T) {
	pool := makePool(80)

	inst, err := Assemble("Quiz", "3", pool, 50, testRand(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(inst.Questions) != 50 {
		t.Fatalf("got %d questions, want 50", len(inst.Questions))
	}
}

func TestAssembleDrawsWithoutReplacement(t *testing.T) {
	pool := makePool(30)

	inst, err := Assemble("Quiz", "3", pool, 20, testRand(4))
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uuid.UUID]bool)
	for _, q := range inst.Questions {
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestAssembleNumbersQuestionsSequentially(t *testing.T) {
	pool := makePool(10)

	inst, err := Assemble("Quiz", "3", pool, 50, testRand(5))
	if err != nil {
		t.Fatal(err)
	}
	for i, q := range inst.Questions {
		if q.Number != i+1 {
			t.Fatalf("question at index %d has number %d", i, q.Number)
		}
	}
}

func TestAssembleIsDeterministicPerSeed(t *testing.T) {
	pool := makePool(25)

	a, err := Assemble("Quiz", "3", pool, 20, testRand(6))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Assemble("Quiz", "3", pool, 20, testRand(6))
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Questions {
		if a.Questions[i].ID != b.Questions[i].ID {
			t.Fatalf("question order differs at %d with identical seed", i)
		}
		if a.Questions[i].Options[0] != b.Questions[i].Options[0] {
			t.Fatalf("option order differs at %d with identical seed", i)
		}
	}
}

func TestAssembleDoesNotAliasPoolOptions(t *testing.T) {
	pool := makePool(1)

	inst, err := Assemble("Quiz", "3", pool, 50, testRand(7))
	if err != nil {
		t.Fatal(err)
	}

	inst.Questions[0].Options[0] = "mutated"
	for _, opt := range pool[0].Options {
		if opt == "mutated" {
			t.Fatal("instance options alias the pool slice")
		}
	}
}
