package quiz

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func testSession(t *testing.T, questions int) *Session {
	t.Helper()
	inst, err := Assemble("Quiz", "2", makePool(questions), 50, testRand(11))
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(101, 7, 1, inst, 50*time.Minute)
}

func TestSessionSaveAnswer(t *testing.T) {
	sess := testSession(t, 5)

	if err := sess.SaveAnswer(1, []int{2, 0, 2}); err != nil {
		t.Fatal(err)
	}

	answers := sess.Answers()
	if !slices.Equal(answers[1], []int{0, 2}) {
		t.Fatalf("answers[1] = %v, want deduplicated sorted [0 2]", answers[1])
	}
	if sess.AnsweredCount() != 1 {
		t.Fatalf("answered = %d, want 1", sess.AnsweredCount())
	}
}

func TestSessionSaveAnswerValidation(t *testing.T) {
	sess := testSession(t, 3)

	if err := sess.SaveAnswer(0, []int{0}); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Fatalf("question 0: err = %v", err)
	}
	if err := sess.SaveAnswer(4, []int{0}); !errors.Is(err, ErrQuestionOutOfRange) {
		t.Fatalf("question 4: err = %v", err)
	}
	if err := sess.SaveAnswer(1, []int{4}); !errors.Is(err, ErrOptionOutOfRange) {
		t.Fatalf("option 4: err = %v", err)
	}
	if err := sess.SaveAnswer(1, []int{-1}); !errors.Is(err, ErrOptionOutOfRange) {
		t.Fatalf("option -1: err = %v", err)
	}
}

func TestSessionEmptySelectionClearsAnswer(t *testing.T) {
	sess := testSession(t, 3)

	if err := sess.SaveAnswer(2, []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := sess.SaveAnswer(2, nil); err != nil {
		t.Fatal(err)
	}
	if sess.AnsweredCount() != 0 {
		t.Fatalf("answered = %d after clearing, want 0", sess.AnsweredCount())
	}
}

func TestSessionAnswersReturnsCopy(t *testing.T) {
	sess := testSession(t, 3)
	if err := sess.SaveAnswer(1, []int{1, 2}); err != nil {
		t.Fatal(err)
	}

	answers := sess.Answers()
	answers[1][0] = 99

	fresh := sess.Answers()
	if !slices.Equal(fresh[1], []int{1, 2}) {
		t.Fatalf("internal answers mutated through the returned map: %v", fresh[1])
	}
}

func TestSessionSubmitStateMachine(t *testing.T) {
	sess := testSession(t, 3)

	if sess.State() != StateRunning {
		t.Fatalf("initial state = %s", sess.State())
	}

	if err := sess.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	if sess.State() != StateSubmitting {
		t.Fatalf("state after BeginSubmit = %s", sess.State())
	}

	// A second submitter must lose.
	if err := sess.BeginSubmit(); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("second BeginSubmit err = %v", err)
	}
	// Answers are frozen while submitting.
	if err := sess.SaveAnswer(1, []int{0}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("SaveAnswer while submitting err = %v", err)
	}

	// A failed ledger write reopens the session with answers intact.
	sess.FailSubmit()
	if sess.State() != StateRunning {
		t.Fatalf("state after FailSubmit = %s", sess.State())
	}
	if err := sess.SaveAnswer(1, []int{0}); err != nil {
		t.Fatal(err)
	}

	// Closing is terminal.
	if err := sess.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	sess.Close()
	if err := sess.BeginSubmit(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("BeginSubmit after close err = %v", err)
	}
	sess.FailSubmit()
	if sess.State() != StateClosed {
		t.Fatalf("FailSubmit reopened a closed session: %s", sess.State())
	}
}

func TestSessionBeginSubmitSingleWinner(t *testing.T) {
	sess := testSession(t, 3)

	const contenders = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sess.BeginSubmit() == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("%d goroutines won BeginSubmit, want exactly 1", won)
	}
}

func TestSessionCountdown(t *testing.T) {
	sess := testSession(t, 1)

	if sess.Expired(sess.StartedAt.Add(49 * time.Minute)) {
		t.Fatal("expired before the duration elapsed")
	}
	if !sess.Expired(sess.StartedAt.Add(50 * time.Minute)) {
		t.Fatal("not expired at the deadline")
	}
	if got := sess.Remaining(sess.StartedAt.Add(time.Hour)); got != 0 {
		t.Fatalf("remaining past deadline = %v, want 0", got)
	}
	if got := sess.Remaining(sess.StartedAt.Add(20 * time.Minute)); got != 30*time.Minute {
		t.Fatalf("remaining = %v, want 30m", got)
	}
}

func TestStoreOnePerStudentChapter(t *testing.T) {
	store := NewStore()

	inst, err := Assemble("Quiz", "2", makePool(3), 50, testRand(12))
	if err != nil {
		t.Fatal(err)
	}

	first := NewSession(101, 7, 1, inst, time.Minute)
	if err := store.Put(first); err != nil {
		t.Fatal(err)
	}

	second := NewSession(101, 7, 1, inst, time.Minute)
	if err := store.Put(second); !errors.Is(err, ErrActiveSession) {
		t.Fatalf("second Put err = %v, want ErrActiveSession", err)
	}

	// Same student, different chapter is fine.
	otherInst, err := Assemble("Quiz", "3", makePool(3), 50, testRand(13))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(NewSession(101, 7, 1, otherInst, time.Minute)); err != nil {
		t.Fatal(err)
	}

	// Removing frees the slot.
	store.Remove(first.ID)
	if err := store.Put(second); err != nil {
		t.Fatalf("Put after Remove err = %v", err)
	}

	if got, ok := store.GetByOwner(101, "2"); !ok || got.ID != second.ID {
		t.Fatalf("GetByOwner returned %v, %v", got, ok)
	}
}

func TestStoreExpiredRunning(t *testing.T) {
	store := NewStore()

	inst, err := Assemble("Quiz", "2", makePool(3), 50, testRand(14))
	if err != nil {
		t.Fatal(err)
	}

	sess := NewSession(101, 7, 1, inst, time.Minute)
	if err := store.Put(sess); err != nil {
		t.Fatal(err)
	}

	if got := store.ExpiredRunning(sess.StartedAt.Add(30 * time.Second)); len(got) != 0 {
		t.Fatalf("%d sessions expired before the deadline", len(got))
	}

	deadline := sess.StartedAt.Add(2 * time.Minute)
	got := store.ExpiredRunning(deadline)
	if len(got) != 1 || got[0].ID != sess.ID {
		t.Fatalf("ExpiredRunning = %v", got)
	}

	// A session already mid-submit is not picked up again.
	if err := sess.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	if got := store.ExpiredRunning(deadline); len(got) != 0 {
		t.Fatalf("submitting session still swept: %v", got)
	}
}
