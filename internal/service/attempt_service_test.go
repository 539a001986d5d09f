package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/brightlearn/tutoring-backend/internal/config"
	"github.com/brightlearn/tutoring-backend/internal/model"
	"github.com/brightlearn/tutoring-backend/internal/quiz"
	"github.com/brightlearn/tutoring-backend/internal/repository"
)

type fakeLedger struct {
	mu          sync.Mutex
	records     map[string]*model.AttemptRecord
	recordCalls int
	failWith    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]*model.AttemptRecord)}
}

func ledgerKey(studentID, batchID int, chapter string) string {
	return fmt.Sprintf("%d:%d:%s", studentID, batchID, chapter)
}

func (f *fakeLedger) CheckAttempt(_ context.Context, studentID, batchID int, chapter string) (*model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[ledgerKey(studentID, batchID, chapter)], nil
}

func (f *fakeLedger) RecordAttempt(_ context.Context, rec *model.AttemptRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.recordCalls++
	if f.failWith != nil {
		return f.failWith
	}

	key := ledgerKey(rec.StudentID, rec.BatchID, rec.Chapter)
	if _, exists := f.records[key]; exists {
		return repository.ErrDuplicateAttempt
	}
	rec.SubmittedAt = time.Now()
	f.records[key] = rec
	return nil
}

func (f *fakeLedger) ListByStudent(_ context.Context, studentID int) ([]model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.AttemptRecord
	for _, rec := range f.records {
		if rec.StudentID == studentID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakePool struct {
	questions []model.Question
}

func (f *fakePool) ChapterPool(_ context.Context, _ int, _ string) ([]model.Question, error) {
	return f.questions, nil
}

func testQuestions(n int) []model.Question {
	out := make([]model.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Question{
			QuestionText:   fmt.Sprintf("question %d", i),
			Options:        []string{"a", "b", "c", "d"},
			CorrectAnswers: []int{i % 4},
		})
	}
	return out
}

func newTestService(ledger AttemptLedger, pool QuestionPool) *AttemptService {
	svc := NewAttemptService(ledger, pool, quiz.NewStore(), &config.Config{
		QuizDuration:     50 * time.Minute,
		QuizMaxQuestions: 50,
	})
	svc.newRand = func() *rand.Rand {
		return rand.New(rand.NewPCG(42, 43))
	}
	return svc
}

// answerAll fills every question; correct selects the right set, the rest
// get a deliberately wrong single option.
func answerAll(t *testing.T, svc *AttemptService, payload *SessionPayload, studentID, correct int) {
	t.Helper()

	sess, ok := svc.sessions.Get(payload.SessionID)
	if !ok {
		t.Fatal("session missing from store")
	}

	for i, q := range sess.Instance.Questions {
		sels := q.Correct
		if i >= correct {
			// Pick an option outside the correct set.
			wrong := -1
			for opt := range q.Options {
				inCorrect := false
				for _, c := range q.Correct {
					if c == opt {
						inCorrect = true
						break
					}
				}
				if !inCorrect {
					wrong = opt
					break
				}
			}
			sels = []int{wrong}
		}
		if err := svc.SaveAnswer(payload.SessionID, studentID, q.Number, sels); err != nil {
			t.Fatalf("save answer %d: %v", q.Number, err)
		}
	}
}

func TestStartRejectsSecondAttempt(t *testing.T) {
	ledger := newFakeLedger()
	ledger.records[ledgerKey(101, 7, "3")] = &model.AttemptRecord{StudentID: 101, BatchID: 7, Chapter: "3"}

	svc := newTestService(ledger, &fakePool{questions: testQuestions(5)})

	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
}

func TestStartEmptyChapter(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{})

	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); !errors.Is(err, quiz.ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestStartRejectsParallelSession(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{questions: testQuestions(5)})

	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); !errors.Is(err, quiz.ErrActiveSession) {
		t.Fatalf("err = %v, want ErrActiveSession", err)
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestService(ledger, &fakePool{questions: testQuestions(12)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}
	if len(payload.Questions) != 12 {
		t.Fatalf("payload has %d questions, want 12", len(payload.Questions))
	}

	answerAll(t, svc, payload, 101, 9)

	rec, err := svc.Submit(context.Background(), payload.SessionID, 101)
	if err != nil {
		t.Fatal(err)
	}

	if rec.CorrectCount != 9 || rec.WrongCount != 3 {
		t.Fatalf("got %d correct / %d wrong, want 9 / 3", rec.CorrectCount, rec.WrongCount)
	}
	if rec.Score != 75 {
		t.Fatalf("score = %d, want 75", rec.Score)
	}
	if ledger.recordCalls != 1 {
		t.Fatalf("ledger called %d times, want 1", ledger.recordCalls)
	}

	// The session is spent: no state, no resubmission.
	if _, err := svc.State(payload.SessionID, 101); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("state after submit err = %v", err)
	}
	if _, err := svc.Submit(context.Background(), payload.SessionID, 101); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("resubmit err = %v", err)
	}

	// And the ledger now blocks a new attempt.
	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("restart after submit err = %v", err)
	}
}

func TestSubmitRequiresAllAnswers(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{questions: testQuestions(10)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}

	sess, _ := svc.sessions.Get(payload.SessionID)
	for _, q := range sess.Instance.Questions[:6] {
		if err := svc.SaveAnswer(payload.SessionID, 101, q.Number, q.Correct); err != nil {
			t.Fatal(err)
		}
	}

	_, err = svc.Submit(context.Background(), payload.SessionID, 101)
	var incomplete *IncompleteAnswersError
	if !errors.As(err, &incomplete) {
		t.Fatalf("err = %v, want IncompleteAnswersError", err)
	}
	if incomplete.Unanswered != 4 {
		t.Fatalf("unanswered = %d, want 4", incomplete.Unanswered)
	}

	// The session survives the rejection.
	if _, err := svc.State(payload.SessionID, 101); err != nil {
		t.Fatalf("state after rejected submit: %v", err)
	}
}

func TestSubmitExpiredScoresUnansweredAsWrong(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestService(ledger, &fakePool{questions: testQuestions(10)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}

	sess, _ := svc.sessions.Get(payload.SessionID)
	for _, q := range sess.Instance.Questions[:6] {
		if err := svc.SaveAnswer(payload.SessionID, 101, q.Number, q.Correct); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := svc.SubmitExpired(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}

	if rec.CorrectCount != 6 || rec.WrongCount != 4 {
		t.Fatalf("got %d correct / %d wrong, want 6 / 4", rec.CorrectCount, rec.WrongCount)
	}
	if rec.Score != 60 {
		t.Fatalf("score = %d, want 60", rec.Score)
	}
	if rec.TimeTakenSecs != int((50 * time.Minute).Seconds()) {
		t.Fatalf("time taken = %d, want full duration", rec.TimeTakenSecs)
	}
	if svc.sessions.Len() != 0 {
		t.Fatalf("%d sessions left in store", svc.sessions.Len())
	}
}

func TestSubmitFailureKeepsSessionAlive(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestService(ledger, &fakePool{questions: testQuestions(5)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}
	answerAll(t, svc, payload, 101, 5)

	ledger.failWith = errors.New("connection refused")
	if _, err := svc.Submit(context.Background(), payload.SessionID, 101); !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("err = %v, want ErrSubmissionFailed", err)
	}

	// The session reopened with its answers intact.
	state, err := svc.State(payload.SessionID, 101)
	if err != nil {
		t.Fatal(err)
	}
	if state.State != quiz.StateRunning {
		t.Fatalf("state = %s, want RUNNING", state.State)
	}
	if state.AnsweredCount != 5 {
		t.Fatalf("answered = %d after failed submit, want 5", state.AnsweredCount)
	}

	// The retry goes through once the ledger recovers.
	ledger.failWith = nil
	rec, err := svc.Submit(context.Background(), payload.SessionID, 101)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Score != 100 {
		t.Fatalf("score = %d, want 100", rec.Score)
	}
	if ledger.recordCalls != 2 {
		t.Fatalf("ledger called %d times, want 2", ledger.recordCalls)
	}
	if len(ledger.records) != 1 {
		t.Fatalf("%d records stored, want 1", len(ledger.records))
	}
}

func TestSubmitDuplicateRaceClosesSession(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestService(ledger, &fakePool{questions: testQuestions(5)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}
	answerAll(t, svc, payload, 101, 5)

	// Another server instance recorded the triple first.
	ledger.records[ledgerKey(101, 7, "3")] = &model.AttemptRecord{StudentID: 101, BatchID: 7, Chapter: "3"}

	if _, err := svc.Submit(context.Background(), payload.SessionID, 101); !errors.Is(err, ErrAlreadyAttempted) {
		t.Fatalf("err = %v, want ErrAlreadyAttempted", err)
	}
	if svc.sessions.Len() != 0 {
		t.Fatal("spent session left in store after duplicate race")
	}
}

func TestCancelLeavesNoRecord(t *testing.T) {
	ledger := newFakeLedger()
	svc := newTestService(ledger, &fakePool{questions: testQuestions(5)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}
	answerAll(t, svc, payload, 101, 5)

	if err := svc.Cancel(payload.SessionID, 101); err != nil {
		t.Fatal(err)
	}
	if ledger.recordCalls != 0 {
		t.Fatal("cancel wrote to the ledger")
	}

	// The chapter can be started again.
	if _, err := svc.Start(context.Background(), 101, 7, 1, "3"); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{questions: testQuestions(5)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.State(payload.SessionID, 202); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("state err = %v, want ErrNotSessionOwner", err)
	}
	if err := svc.SaveAnswer(payload.SessionID, 202, 1, []int{0}); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("save err = %v, want ErrNotSessionOwner", err)
	}
	if _, err := svc.Submit(context.Background(), payload.SessionID, 202); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("submit err = %v, want ErrNotSessionOwner", err)
	}
}

func TestPayloadHidesAnswerKey(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{questions: testQuestions(8)})

	payload, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}

	// The payload question type carries only number, text, and options;
	// verify the options are copies, not views into the session.
	sess, _ := svc.sessions.Get(payload.SessionID)
	payload.Questions[0].Options[0] = "tampered"
	if sess.Instance.Questions[0].Options[0] == "tampered" {
		t.Fatal("payload options alias the session instance")
	}
}

func TestResume(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakePool{questions: testQuestions(5)})

	if _, err := svc.Resume(101, "3"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("resume without session err = %v", err)
	}

	started, err := svc.Start(context.Background(), 101, 7, 1, "3")
	if err != nil {
		t.Fatal(err)
	}

	resumed, err := svc.Resume(101, "3")
	if err != nil {
		t.Fatal(err)
	}
	if resumed.SessionID != started.SessionID {
		t.Fatalf("resumed session %s, want %s", resumed.SessionID, started.SessionID)
	}
}
