package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
)

// Kind classifies every failure a lifecycle operation reports.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindPermissionDenied Kind = "permission_denied"
	KindIDGeneration     Kind = "id_generation"
	KindNotFound         Kind = "not_found"
	KindBackend          Kind = "backend"
)

// FieldError one violated input rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single error type returned across the service boundary.
type Error struct {
	Kind    Kind
	Message string
	// Fields lists every violation of an aggregated validation.
	Fields []FieldError
	// Remaining is set when an allocation exceeded the output's remaining weight.
	Remaining *float64
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	if e.Remaining != nil {
		msg += fmt.Sprintf(" (remaining %.3f kg)", *e.Remaining)
	}
	if e.Err != nil && e.Kind == KindBackend {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err. Errors that did not come from this package are backend failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func conflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func notFoundError(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func idGenerationError(prefix string, err error) *Error {
	return &Error{Kind: KindIDGeneration, Message: "generate " + prefix + " code failed", Err: err}
}

// fieldErrors collects violations so they can be reported together.
type fieldErrors []FieldError

func (f *fieldErrors) add(field, msg string) {
	*f = append(*f, FieldError{Field: field, Message: msg})
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: f}
}

// storeError maps a repository failure onto the taxonomy. what names the entity for not-found messages.
func storeError(what string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFoundError(what)
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, repository.ErrForbidden):
		return &Error{Kind: KindPermissionDenied, Message: "not authorized", Err: err}
	case errors.Is(err, repository.ErrInvalidTransition):
		return &Error{Kind: KindConflict, Message: what + " cannot change to that status", Err: err}
	}
	return &Error{Kind: KindBackend, Message: "system error", Err: err}
}
