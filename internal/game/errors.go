package game

import "fmt"

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeInvalidPlayerCount Code = "INVALID_PLAYER_COUNT"
	CodeCardNotFound       Code = "CARD_NOT_FOUND"
	CodeInvalidTarget      Code = "INVALID_TARGET"
	CodeActionNotAllowed   Code = "ACTION_NOT_ALLOWED"
	CodeGameOver           Code = "GAME_OVER"
	CodeGameNotStarted     Code = "GAME_NOT_STARTED"
	CodeInvalidAction      Code = "INVALID_ACTION"

	// Fatal codes. The session refuses every command after one of these.
	CodeConsistency      Code = "CONSISTENCY_ERROR"
	CodeSessionCorrupted Code = "SESSION_CORRUPTED"
)

// Error is returned for every rejected command. Match with errors.Is against
// the Err* values below; only the Code is compared.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Fatal reports whether the session must be abandoned.
func (e *Error) Fatal() bool {
	return e.Code == CodeConsistency || e.Code == CodeSessionCorrupted
}

var (
	ErrInvalidPlayerCount = &Error{Code: CodeInvalidPlayerCount}
	ErrCardNotFound       = &Error{Code: CodeCardNotFound}
	ErrInvalidTarget      = &Error{Code: CodeInvalidTarget}
	ErrActionNotAllowed   = &Error{Code: CodeActionNotAllowed}
	ErrGameOver           = &Error{Code: CodeGameOver}
	ErrGameNotStarted     = &Error{Code: CodeGameNotStarted}
	ErrInvalidAction      = &Error{Code: CodeInvalidAction}
	ErrConsistency        = &Error{Code: CodeConsistency}
	ErrSessionCorrupted   = &Error{Code: CodeSessionCorrupted}
)

func reject(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
