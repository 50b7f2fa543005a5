package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Business rule codes.
const (
	CodeEmailInUse         = "EMAIL_IN_USE"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeLoanAlreadySettled = "LOAN_ALREADY_SETTLED"
)

var ErrUnauthorized = errors.New("unauthorized")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated rule of one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Errors groups messages by field, keeping rule order within a field.
func (e *ValidationError) Errors() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.Message)
	}
	return out
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error { return e.Err }

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{Code: code, Message: message, Err: err}
}

type unauthorizedError struct{ msg string }

func (e *unauthorizedError) Error() string { return e.msg }
func (e *unauthorizedError) Unwrap() error { return ErrUnauthorized }

// Unauthorized returns an error matching ErrUnauthorized with a caller-facing message.
func Unauthorized(msg string) error { return &unauthorizedError{msg: msg} }

func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

func AsBusiness(err error) (*BusinessError, bool) {
	var be *BusinessError
	ok := errors.As(err, &be)
	return be, ok
}

func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
