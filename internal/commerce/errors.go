package commerce

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("commerce: not found")
	ErrUnauthorized   = errors.New("commerce: unauthorized")
	ErrStateMismatch  = errors.New("commerce: oauth state mismatch")
	ErrMissingAPIKey  = errors.New("commerce: admin api key not configured")
	ErrServiceFailure = errors.New("commerce: service failure")
)

const (
	CodeCartNotFound             = "OWNED_CART_NOT_FOUND"
	CodeBackInStockAlreadyExists = "BACK_IN_STOCK_NOTIFICATION_REQUEST_ALREADY_EXISTS"
)

// ErrorBody is the platform's error envelope.
type ErrorBody struct {
	Message string       `json:"message"`
	Details ErrorDetails `json:"details"`
}

type ErrorDetails struct {
	ApplicationError *ApplicationError `json:"applicationError,omitempty"`
}

type ApplicationError struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// RemoteError is a non-2xx answer from the platform.
type RemoteError struct {
	Status int
	Body   ErrorBody
}

func (e *RemoteError) Error() string {
	msg := e.Body.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if code := e.Code(); code != "" {
		return fmt.Sprintf("commerce: %d %s (%s)", e.Status, msg, code)
	}
	return fmt.Sprintf("commerce: %d %s", e.Status, msg)
}

// Code returns details.applicationError.code, or "".
func (e *RemoteError) Code() string {
	if e.Body.Details.ApplicationError == nil {
		return ""
	}
	return e.Body.Details.ApplicationError.Code
}

func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrServiceFailure:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// HasApplicationCode reports whether err carries the given platform
// application error code.
func HasApplicationCode(err error, code string) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	return remote.Code() == code
}
