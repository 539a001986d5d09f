package quiz

import (
	"math"
	"slices"
)

// Result is the outcome of grading one attempt.
type Result struct {
	TotalQuestions int
	CorrectCount   int
	WrongCount     int
	Score          int // rounded percentage, each question worth an equal share
}

// Score grades an answer set against the instance. Answers are keyed by
// display number and hold selections in original option coordinates. A
// question is correct iff the selection set equals the correct set exactly;
// multi-select questions earn no partial credit. Unanswered questions count
// as wrong. Scoring is pure and deterministic.
func Score(inst *Instance, answers map[int][]int) Result {
	total := len(inst.Questions)
	correct := 0

	for _, q := range inst.Questions {
		want := ToOriginal(q.Mapping, q.Correct)
		got := slices.Clone(answers[q.Number])
		slices.Sort(got)
		if len(got) > 0 && slices.Equal(got, want) {
			correct++
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return Result{
		TotalQuestions: total,
		CorrectCount:   correct,
		WrongCount:     total - correct,
		Score:          score,
	}
}
