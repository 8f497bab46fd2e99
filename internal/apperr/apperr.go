package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a business error independently of its message.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidState
	Validation
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	case Validation:
		return "validation_failure"
	case Unauthorized:
		return "unauthorized_role"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code a transport should answer with.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case InvalidState, Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error returned by the core services
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is match any *Error of the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error     { return newf(NotFound, format, args...) }
func InvalidStatef(format string, args ...any) *Error { return newf(InvalidState, format, args...) }
func Validationf(format string, args ...any) *Error   { return newf(Validation, format, args...) }
func Unauthorizedf(format string, args ...any) *Error { return newf(Unauthorized, format, args...) }

// Wrap classifies an infrastructure failure as Internal.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: Internal, Msg: msg, Err: err}
}

// KindOf reports the kind of err, Internal when err is not classified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
