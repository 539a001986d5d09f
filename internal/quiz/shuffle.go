package quiz

import (
	"math/rand/v2"
	"slices"
)

// ShuffleOptions permutes a question's options with Fisher–Yates and returns
// the shuffled option strings, the option mapping (shuffled position →
// original index), and the correct-answer indices recomputed in shuffled
// coordinates (sorted).
//
// Shuffling exists so students cannot memorize option positions across
// structurally similar question pools. The mapping must stay a permutation of
// [0, len(options)): applying it to any shuffled selection recovers the
// original selection exactly.
func ShuffleOptions(options []string, correct []int, rng *rand.Rand) (shuffled []string, mapping []int, shuffledCorrect []int) {
	n := len(options)

	mapping = make([]int, n)
	for i := range mapping {
		mapping[i] = i
	}
	rng.Shuffle(n, func(i, j int) {
		mapping[i], mapping[j] = mapping[j], mapping[i]
	})

	shuffled = make([]string, n)
	for pos, orig := range mapping {
		shuffled[pos] = options[orig]
	}

	shuffledCorrect = make([]int, 0, len(correct))
	for _, orig := range correct {
		shuffledCorrect = append(shuffledCorrect, slices.Index(mapping, orig))
	}
	slices.Sort(shuffledCorrect)

	return shuffled, mapping, shuffledCorrect
}

// ToOriginal converts a selection set from shuffled coordinates back to
// original option indices, sorted. Out-of-range positions are dropped.
func ToOriginal(mapping, selection []int) []int {
	out := make([]int, 0, len(selection))
	for _, pos := range selection {
		if pos < 0 || pos >= len(mapping) {
			continue
		}
		out = append(out, mapping[pos])
	}
	slices.Sort(out)
	return out
}
