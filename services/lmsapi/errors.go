package lmsapi

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// GenericErrorMessage is shown when the LMS gave no usable error message.
const GenericErrorMessage = "Something went wrong. Please try again."

var (
	// ErrUnauthorized is returned when there is no token or when the LMS rejects it. It is never retried.
	ErrUnauthorized = errors.New("authentication required")
	ErrNotFound     = errors.New("not found")
)

// APIError is a business or validation error returned by the LMS.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lms: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsNotFound reports whether err means that the requested entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Message returns the message to show to the user for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}
