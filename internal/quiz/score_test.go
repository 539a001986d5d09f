package quiz

import (
	"testing"

	"github.com/google/uuid"
)

// identityQuestion builds an instance question whose options were not moved,
// so original and shuffled coordinates coincide.
func identityQuestion(number int, correct []int) InstanceQuestion {
	return InstanceQuestion{
		Number:  number,
		ID:      uuid.New(),
		Text:    "q",
		Options: []string{"a", "b", "c", "d"},
		Mapping: []int{0, 1, 2, 3},
		Correct: correct,
	}
}

func identityInstance(correct ...[]int) *Instance {
	inst := &Instance{Title: "Quiz", Chapter: "1"}
	for i, c := range correct {
		inst.Questions = append(inst.Questions, identityQuestion(i+1, c))
	}
	return inst
}

func TestScoreExactSetMatch(t *testing.T) {
	inst := identityInstance([]int{0, 2})

	cases := []struct {
		name     string
		answer   []int
		wantHits int
	}{
		{"exact match", []int{0, 2}, 1},
		{"unordered match", []int{2, 0}, 1},
		{"subset earns nothing", []int{0}, 0},
		{"superset earns nothing", []int{0, 1, 2}, 0},
		{"disjoint", []int{1, 3}, 0},
		{"empty counts as unanswered", []int{}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Score(inst, map[int][]int{1: tc.answer})
			if res.CorrectCount != tc.wantHits {
				t.Fatalf("correct = %d, want %d", res.CorrectCount, tc.wantHits)
			}
		})
	}
}

func TestScoreUnansweredCountsAsWrong(t *testing.T) {
	inst := identityInstance([]int{0}, []int{1}, []int{2})

	res := Score(inst, map[int][]int{1: {0}})
	if res.CorrectCount != 1 || res.WrongCount != 2 {
		t.Fatalf("got %d correct / %d wrong, want 1 / 2", res.CorrectCount, res.WrongCount)
	}
}

func TestScoreRounding(t *testing.T) {
	cases := []struct {
		total   int
		correct int
		want    int
	}{
		{12, 9, 75},
		{3, 1, 33},
		{3, 2, 67},
		{7, 5, 71},
		{10, 10, 100},
		{10, 0, 0},
	}

	for _, tc := range cases {
		var correctSets [][]int
		for i := 0; i < tc.total; i++ {
			correctSets = append(correctSets, []int{0})
		}
		inst := identityInstance(correctSets...)

		answers := make(map[int][]int)
		for i := 1; i <= tc.correct; i++ {
			answers[i] = []int{0}
		}
		for i := tc.correct + 1; i <= tc.total; i++ {
			answers[i] = []int{1}
		}

		res := Score(inst, answers)
		if res.Score != tc.want {
			t.Fatalf("%d/%d: score = %d, want %d", tc.correct, tc.total, res.Score, tc.want)
		}
		if res.TotalQuestions != tc.total {
			t.Fatalf("total = %d, want %d", res.TotalQuestions, tc.total)
		}
	}
}

func TestScoreGradesInOriginalCoordinates(t *testing.T) {
	// Options were reversed by the shuffle: shuffled position p holds
	// original option 3-p. The correct original option is 1, which now sits
	// at shuffled position 2.
	q := InstanceQuestion{
		Number:  1,
		ID:      uuid.New(),
		Text:    "q",
		Options: []string{"d", "c", "b", "a"},
		Mapping: []int{3, 2, 1, 0},
		Correct: []int{2},
	}
	inst := &Instance{Questions: []InstanceQuestion{q}}

	// The grader receives answers already translated to original indices.
	res := Score(inst, map[int][]int{1: {1}})
	if res.CorrectCount != 1 {
		t.Fatalf("translated answer not accepted: %+v", res)
	}

	// An untranslated shuffled position must not be accepted.
	res = Score(inst, map[int][]int{1: {2}})
	if res.CorrectCount != 0 {
		t.Fatalf("shuffled-coordinate answer accepted: %+v", res)
	}
}

func TestScoreEmptyInstance(t *testing.T) {
	res := Score(&Instance{}, nil)
	if res.Score != 0 || res.TotalQuestions != 0 {
		t.Fatalf("empty instance scored %+v", res)
	}
}
