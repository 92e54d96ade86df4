package dialogue

import "errors"

var (
	// ErrValidation marks requests with missing or malformed fields.
	ErrValidation = errors.New("validation error")

	ErrNoActiveQuestion = errors.New("no active question")
	ErrInvalidQuestion  = errors.New("invalid question number")

	ErrWeekNotConfigured = errors.New("week is not configured")
	ErrContentNotFound   = errors.New("week content not found")
	ErrPromptNotFound    = errors.New("system prompt not found")

	ErrSessionNotFound = errors.New("conversation state not found")
)

// RequestError carries a user-facing message while still matching one of
// the sentinels above through errors.Is.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

func requestError(kind error, message string) error {
	return &RequestError{Kind: kind, Message: message}
}

// IsStateError reports whether err comes from asking about a question the
// conversation is not on.
func IsStateError(err error) bool {
	return errors.Is(err, ErrNoActiveQuestion) || errors.Is(err, ErrInvalidQuestion)
}

// IsConfigError reports whether err comes from missing week setup or content.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrWeekNotConfigured) ||
		errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrPromptNotFound)
}
