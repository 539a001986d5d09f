package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionCancel   Action = "cancel"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest saves one question's selection set. Selections are option
// indices as displayed. An empty set clears the answer.
type AutosaveRequest struct {
	Action      Action `json:"action"`
	QuestionNum int    `json:"question_num"`
	Selections  []int  `json:"selections"`
}

// SubmitRequest finishes and grades the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// CancelRequest abandons the session without recording an attempt.
type CancelRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSuccess   Event = "success"
	EventGraded    Event = "graded"
	EventExpired   Event = "expired"
	EventCancelled Event = "cancelled"
	EventState     Event = "state"
	EventPong      Event = "pong"
)

type AutosaveResponse struct {
	Event         Event `json:"event"`
	QuestionNum   int   `json:"question_num"`
	AnsweredCount int   `json:"answered_count"`
}

// GradedResponse carries the final result after a successful submit.
type GradedResponse struct {
	Event          Event `json:"event"`
	Score          int   `json:"score"`
	CorrectAnswers int   `json:"correct_answers"`
	WrongAnswers   int   `json:"wrong_answers"`
	TotalQuestions int   `json:"total_questions"`
	TimeTaken      int   `json:"time_taken"`
}

// StateResponse is the progress snapshot returned for a state request.
type StateResponse struct {
	Event          Event         `json:"event"`
	State          string        `json:"state"`
	RemainingSecs  int           `json:"remaining_secs"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
	Answers        map[int][]int `json:"answers,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type CancelledResponse struct {
	Event Event `json:"event"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
