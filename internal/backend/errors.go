package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error kinds. Every error returned by Client matches exactly one of these
// through errors.Is.
var (
	ErrNetwork    = errors.New("backend unreachable")
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("not authorized")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrServer     = errors.New("server error")
	ErrUnknown    = errors.New("unexpected backend response")
)

// Error is a classified failure of a backend call.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError builds a validation error that never reached the backend.
func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

// FieldErrors returns the per-field messages carried by err, or nil.
func FieldErrors(err error) map[string]string {
	var be *Error
	if errors.As(err, &be) && len(be.Fields) > 0 {
		return be.Fields
	}
	return nil
}

// KindOf returns the classified kind of err, ErrUnknown for foreign errors.
func KindOf(err error) error {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ErrUnknown
}

// errorBody is the JSON body the backend sends with non-2xx responses.
type errorBody struct {
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	StatusCode int               `json:"status_code"`
	Fields     map[string]string `json:"fields"`
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return ErrValidation
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code >= 500:
		return ErrServer
	default:
		return ErrUnknown
	}
}

// errorFromResponse classifies a non-2xx response. The body is best effort:
// a body that is not JSON still yields a classified error.
func errorFromResponse(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	message := body.Message
	if message == "" {
		message = body.Error
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	return &Error{
		Kind:       kindForStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
		Fields:     body.Fields,
	}
}
