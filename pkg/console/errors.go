package console

import (
	"context"
	"errors"

	"task-console/pkg/apiclient"
	"task-console/pkg/task"
)

// Fixed messages shown in place of server text.
const (
	SessionExpired   = "Session expired"
	UnauthorizedUser = "Unauthorized user"
)

var (
	// ErrNotPermitted is returned when the session's role lacks the capability.
	ErrNotPermitted = errors.New("action not permitted for this role")
	// ErrSelectionRequired is returned when an assignment is submitted without a user.
	ErrSelectionRequired = &ValidationError{Field: "email", Message: "Please select a user"}
	// ErrNotActive is returned when a sub-controller is used outside its mode.
	ErrNotActive = errors.New("no task selected")
)

// ValidationError is a form precondition failure detected before any request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Describe turns an error into the text a screen shows. expired replaces
// server text whenever the credential was rejected.
func Describe(err error, expired string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var tve *task.ValidationError
	if errors.As(err, &tve) {
		return tve.Message
	}
	if errors.Is(err, apiclient.ErrUnauthenticated) {
		return expired
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Description != "" {
		return apiErr.Description
	}
	return err.Error()
}

func superseded(err error) bool {
	return errors.Is(err, context.Canceled)
}
