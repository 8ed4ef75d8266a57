package framework

import (
	"errors"
	"fmt"

	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Sentinel errors for framework operations
var (
	// ErrBaseURLRequired indicates that no organization URL was configured
	ErrBaseURLRequired = config.ErrBaseURLRequired

	// ErrNoCredentials indicates there is no way to authenticate Web API calls
	ErrNoCredentials = config.ErrNoCredentials

	// ErrRecordNotTracked indicates an untrack request for a record the framework did not create
	ErrRecordNotTracked = errors.New("record not tracked")

	// ErrPrerequisites indicates the organization is not ready for tests
	ErrPrerequisites = errors.New("prerequisites not met")

	// ErrLoginFailed indicates the interactive sign-in did not reach the app
	ErrLoginFailed = errors.New("login failed")

	// ErrBrowserLaunch indicates playwright or the browser could not be started
	ErrBrowserLaunch = errors.New("failed to launch browser")

	// ErrNoBrowser indicates a browser operation before OpenBrowser or Authenticate
	ErrNoBrowser = errors.New("browser not started")

	// ErrCleanupTimeout indicates that deleted records were still readable after the cleanup timeout
	ErrCleanupTimeout = errors.New("record deletion timed out")

	// ErrContextCancelled indicates the operation was cancelled
	ErrContextCancelled = errors.New("operation cancelled")
)

// RecordError represents an error related to a specific record
type RecordError struct {
	Collection string
	ID         string
	Err        error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s(%s): %v", e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Collection, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError creates a new RecordError
func NewRecordError(collection, id string, err error) *RecordError {
	return &RecordError{
		Collection: collection,
		ID:         id,
		Err:        err,
	}
}

// PrerequisiteError represents an error when checking prerequisites
type PrerequisiteError struct {
	Component string
	Err       error
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisite check failed for %s: %v", e.Component, e.Err)
}

func (e *PrerequisiteError) Unwrap() error {
	return e.Err
}

func (e *PrerequisiteError) Is(target error) bool {
	return target == ErrPrerequisites
}

// NewPrerequisiteError creates a new PrerequisiteError
func NewPrerequisiteError(component string, err error) *PrerequisiteError {
	return &PrerequisiteError{
		Component: component,
		Err:       err,
	}
}

// CleanupError represents errors during cleanup operations
type CleanupError struct {
	Phase string
	Errs  []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed during %s phase: %v", e.Phase, errors.Join(e.Errs...))
}

func (e *CleanupError) Unwrap() error {
	return errors.Join(e.Errs...)
}

// NewCleanupError creates a new CleanupError
func NewCleanupError(phase string, errs ...error) *CleanupError {
	return &CleanupError{
		Phase: phase,
		Errs:  errs,
	}
}

// TimeoutError represents a timeout during an operation
type TimeoutError struct {
	Operation string
	Duration  string
	Details   string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout after %s waiting for %s", e.Duration, e.Operation)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrCleanupTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, details string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Details:   details,
	}
}

// IsNotFound returns true if the error is a 404 from the Web API
func IsNotFound(err error) bool {
	return webapi.IsNotFound(err)
}

// IsTimeout returns true if the error is a timeout error
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, ErrCleanupTimeout)
}

// IsCancelled returns true if the error indicates cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, ErrContextCancelled)
}
