package quiz

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State enumerates quiz session states. Modeling submission as a state (not a
// boolean) makes the manual/auto submit mutual exclusion structural: only a
// RUNNING session can transition into SUBMITTING, and only once at a time.
type State string

const (
	StateRunning    State = "RUNNING"
	StateSubmitting State = "SUBMITTING"
	StateClosed     State = "CLOSED"
)

// Session errors.
var (
	ErrSessionClosed      = errors.New("quiz session is closed")
	ErrSubmitInProgress   = errors.New("submission already in progress")
	ErrQuestionOutOfRange = errors.New("question number out of range")
	ErrOptionOutOfRange   = errors.New("selected option out of range")
)

// Session is one in-flight quiz attempt: the generated instance, the answer
// set recorded so far (in shuffled coordinates), and a countdown anchored at
// StartedAt. Sessions live only in memory; a cancelled or crashed session
// leaves no attempt record.
type Session struct {
	ID        uuid.UUID
	StudentID int
	BatchID   int
	CourseID  int
	Chapter   string
	Instance  *Instance
	StartedAt time.Time
	Duration  time.Duration

	mu      sync.Mutex
	state   State
	answers map[int][]int // display number → shuffled selections
}

// NewSession creates a running session owning the given instance. The
// countdown starts immediately.
func NewSession(studentID, batchID, courseID int, inst *Instance, duration time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		StudentID: studentID,
		BatchID:   batchID,
		CourseID:  courseID,
		Chapter:   inst.Chapter,
		Instance:  inst,
		StartedAt: time.Now(),
		Duration:  duration,
		state:     StateRunning,
		answers:   make(map[int][]int),
	}
}

// Remaining returns the time left on the countdown, floored at zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	remaining := s.StartedAt.Add(s.Duration).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the countdown has reached zero.
func (s *Session) Expired(now time.Time) bool {
	return s.Remaining(now) == 0
}

// SaveAnswer records the selection set for one question. Selections are in
// shuffled coordinates; they are deduplicated and sorted before storage.
// Saving is rejected once the session has left the RUNNING state.
func (s *Session) SaveAnswer(number int, selections []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return ErrSessionClosed
	}
	if number < 1 || number > len(s.Instance.Questions) {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, number)
	}

	q := s.Instance.Questions[number-1]
	clean := make([]int, 0, len(selections))
	for _, sel := range selections {
		if sel < 0 || sel >= len(q.Options) {
			return fmt.Errorf("%w: %d", ErrOptionOutOfRange, sel)
		}
		if !slices.Contains(clean, sel) {
			clean = append(clean, sel)
		}
	}
	slices.Sort(clean)

	if len(clean) == 0 {
		delete(s.answers, number)
		return nil
	}
	s.answers[number] = clean
	return nil
}

// Answers returns a deep copy of the recorded answer set, still in shuffled
// coordinates.
func (s *Session) Answers() map[int][]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int][]int, len(s.answers))
	for num, sels := range s.answers {
		out[num] = slices.Clone(sels)
	}
	return out
}

// AnsweredCount returns how many questions have at least one selection.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BeginSubmit atomically transitions RUNNING → SUBMITTING. It is the
// re-entrancy guard shared by the manual and expiry submit paths: whichever
// caller wins the transition owns the submission, the loser gets an error.
func (s *Session) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return ErrSubmitInProgress
	case StateClosed:
		return ErrSessionClosed
	}
	s.state = StateSubmitting
	return nil
}

// FailSubmit returns a SUBMITTING session to RUNNING after a failed ledger
// write, keeping the answer set intact so the submission can be retried.
func (s *Session) FailSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		s.state = StateRunning
	}
}

// Close terminates the session. Used after a successful submission and on
// cancellation; closed sessions accept no further answers or submits.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}
