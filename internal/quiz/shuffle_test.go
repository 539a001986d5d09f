package quiz

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func TestShuffleOptionsIsPermutation(t *testing.T) {
	options := []string{"alpha", "beta", "gamma", "delta"}

	for seed := uint64(0); seed < 50; seed++ {
		shuffled, mapping, _ := ShuffleOptions(options, []int{1}, testRand(seed))

		if len(shuffled) != len(options) || len(mapping) != len(options) {
			t.Fatalf("seed %d: length changed: %d options, %d mapping", seed, len(shuffled), len(mapping))
		}

		seen := make([]bool, len(options))
		for pos, orig := range mapping {
			if orig < 0 || orig >= len(options) {
				t.Fatalf("seed %d: mapping[%d] = %d out of range", seed, pos, orig)
			}
			if seen[orig] {
				t.Fatalf("seed %d: original index %d appears twice", seed, orig)
			}
			seen[orig] = true

			if shuffled[pos] != options[orig] {
				t.Fatalf("seed %d: shuffled[%d] = %q, want %q", seed, pos, shuffled[pos], options[orig])
			}
		}
	}
}

func TestShuffleOptionsTracksCorrectSet(t *testing.T) {
	options := []string{"a", "b", "c", "d"}
	correct := []int{0, 2}

	for seed := uint64(0); seed < 50; seed++ {
		shuffled, _, shuffledCorrect := ShuffleOptions(options, correct, testRand(seed))

		if len(shuffledCorrect) != len(correct) {
			t.Fatalf("seed %d: correct set size changed: %d", seed, len(shuffledCorrect))
		}
		if !slices.IsSorted(shuffledCorrect) {
			t.Fatalf("seed %d: correct set not sorted: %v", seed, shuffledCorrect)
		}

		// The correct positions must still point at the same option texts.
		var texts []string
		for _, pos := range shuffledCorrect {
			texts = append(texts, shuffled[pos])
		}
		slices.Sort(texts)
		if !slices.Equal(texts, []string{"a", "c"}) {
			t.Fatalf("seed %d: correct texts = %v, want [a c]", seed, texts)
		}
	}
}

func TestToOriginalRoundTrip(t *testing.T) {
	options := []string{"w", "x", "y", "z"}

	for seed := uint64(0); seed < 50; seed++ {
		_, mapping, shuffledCorrect := ShuffleOptions(options, []int{1, 3}, testRand(seed))

		got := ToOriginal(mapping, shuffledCorrect)
		if !slices.Equal(got, []int{1, 3}) {
			t.Fatalf("seed %d: round trip = %v, want [1 3]", seed, got)
		}
	}
}

func TestToOriginalDropsOutOfRange(t *testing.T) {
	mapping := []int{2, 0, 3, 1}

	got := ToOriginal(mapping, []int{0, -1, 4, 2})
	if !slices.Equal(got, []int{2, 3}) {
		t.Fatalf("ToOriginal = %v, want [2 3]", got)
	}
}

func TestToOriginalSortsOutput(t *testing.T) {
	mapping := []int{3, 2, 1, 0}

	got := ToOriginal(mapping, []int{0, 3})
	if !slices.Equal(got, []int{0, 3}) {
		t.Fatalf("ToOriginal = %v, want [0 3]", got)
	}
}
