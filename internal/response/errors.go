package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Quiz attempts ─────────────────────────────────────────────────
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrAlreadyAttempted  ErrCode = "ALREADY_ATTEMPTED"
	ErrActiveQuizSession ErrCode = "QUIZ_SESSION_ACTIVE"
	ErrIncompleteAnswers ErrCode = "INCOMPLETE_ANSWERS"
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed     ErrCode = "SESSION_CLOSED"
	ErrSubmissionFailed  ErrCode = "SUBMISSION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record is still referenced by other data and cannot be deleted."

	// ─── Quiz attempts ─────────────────────────────────────────────────
	case ErrNoQuestions:
		return "No questions are available for this chapter."
	case ErrAlreadyAttempted:
		return "You have already attempted the quiz for this chapter."
	case ErrActiveQuizSession:
		return "A quiz session for this chapter is already in progress."
	case ErrIncompleteAnswers:
		return "Please answer every question before submitting."
	case ErrSessionNotFound:
		return "Quiz session not found. It may have been cancelled or completed."
	case ErrSessionClosed:
		return "This quiz session is no longer active."
	case ErrSubmissionFailed:
		return "Submitting your quiz failed. Your answers are safe, please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
