package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the coarse classification of every failure crossing a component
// boundary. The set is closed.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindAuthentication Kind = "authentication"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Error is implemented only by the five error types in this file.
type Error interface {
	error
	Kind() Kind
	ledgerError()
}

// Validation rules reported in ValidationError.Rule.
const (
	RuleRequired  = "required"
	RuleMaxLength = "max_length"
	RuleCharset   = "charset"
	RuleFormat    = "format"
	RuleVersion   = "version"
	RuleOneOf     = "one_of"
	RuleUnique    = "unique"
	RuleImmutable = "immutable"
	RuleRange     = "range"
	RuleUnknown   = "unknown_field"
)

// ValidationError names the offending field and the rule it broke.
type ValidationError struct {
	Field  string
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Rule)
	}
	return fmt.Sprintf("validation failed: %s: %s: %s", e.Field, e.Rule, e.Detail)
}

func (*ValidationError) Kind() Kind  { return KindValidation }
func (*ValidationError) ledgerError() {}

// NotFoundError names the lookup key that matched nothing.
type NotFoundError struct {
	Resource string
	Key      string
	Value    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %q not found", e.Resource, e.Key, e.Value)
}

func (*NotFoundError) Kind() Kind  { return KindNotFound }
func (*NotFoundError) ledgerError() {}

// AuthenticationError reports a missing or rejected caller credential.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "unauthenticated: " + e.Reason
}

func (*AuthenticationError) Kind() Kind  { return KindAuthentication }
func (*AuthenticationError) ledgerError() {}

// ConflictError reports a failed optimistic concurrency check.
type ConflictError struct {
	Resource string
	ID       string
	Detail   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Resource, e.ID, e.Detail)
}

func (*ConflictError) Kind() Kind  { return KindConflict }
func (*ConflictError) ledgerError() {}

// InternalError wraps an unanticipated failure. Err is for logs only.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Op + ": internal error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func (*InternalError) Kind() Kind  { return KindInternal }
func (*InternalError) ledgerError() {}

// Timeout reports whether the failure was caused by a deadline.
func (e *InternalError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Canceled reports whether the caller went away.
func (e *InternalError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

// Invalid builds a ValidationError.
func Invalid(field, rule, detail string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Detail: detail}
}

// NotFound builds a NotFoundError for the categories resource.
func NotFound(key, value string) *NotFoundError {
	return &NotFoundError{Resource: "category", Key: key, Value: value}
}

// Unauthenticated builds an AuthenticationError.
func Unauthenticated(reason string) *AuthenticationError {
	return &AuthenticationError{Reason: reason}
}

// Conflict builds a ConflictError for the categories resource.
func Conflict(id, detail string) *ConflictError {
	return &ConflictError{Resource: "category", ID: id, Detail: detail}
}

// Internal builds an InternalError. A core error passed as err is returned
// unchanged so classification is never lost by rewrapping.
func Internal(op string, err error) Error {
	if ce, ok := AsError(err); ok {
		return ce
	}
	return &InternalError{Op: op, Err: err}
}

// AsError extracts the classified error from err's chain.
func AsError(err error) (Error, bool) {
	var ce Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf classifies any error. Unclassified errors are Internal.
func KindOf(err error) Kind {
	if ce, ok := AsError(err); ok {
		return ce.Kind()
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
