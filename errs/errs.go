// Package errs defines the error categories surfaced by the core packages.
// Each category is a concrete type so callers can branch with errors.As and
// render a user-facing message without parsing strings.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input: wrong file type, a missing note,
// an exceeded artist cap, an illegal status transition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// AuthorizationError reports an actor lacking the role or permission for an action.
type AuthorizationError struct {
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s: %s", e.Action, e.Reason)
}

// IntegrityLockError reports a mutation blocked by a release in a protected status.
type IntegrityLockError struct {
	Entity       string // "artist" or "label"
	EntityID     string
	ArtistID     string // set when a label is locked through one of its artists
	ReleaseID    string
	ReleaseTitle string
	Status       string
}

func (e *IntegrityLockError) Error() string {
	if e.Entity == "label" && e.ArtistID != "" {
		return fmt.Sprintf("label %s is locked: artist %s is referenced by release %q (%s)", e.EntityID, e.ArtistID, e.ReleaseTitle, e.Status)
	}
	return fmt.Sprintf("%s %s is locked by release %q (%s)", e.Entity, e.EntityID, e.ReleaseTitle, e.Status)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UpstreamError wraps a failure of the storage service or the entity store.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(action, format string, args ...interface{}) error {
	return &AuthorizationError{Action: action, Reason: fmt.Sprintf(format, args...)}
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Upstream wraps err unless it already carries one of the categories above,
// in which case it is returned as is.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if Categorized(err) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsIntegrityLock(err error) bool {
	var target *IntegrityLockError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// Categorized reports whether err already belongs to one of the categories.
func Categorized(err error) bool {
	return IsValidation(err) || IsAuthorization(err) || IsIntegrityLock(err) || IsNotFound(err) || IsUpstream(err)
}
