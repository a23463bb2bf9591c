package paymentprovider

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("not found in provider")
	ErrInvalidRequest   = errors.New("invalid request to provider")
	ErrCardDeclined     = errors.New("card declined")
	ErrInvalidSignature = errors.New("invalid event signature")
	ErrUnavailable      = errors.New("provider is unavailable")
)

// Error is a failure reported by the provider. Its cause is one of the
// sentinels above so callers can use errors.Cause.
type Error struct {
	Kind       error
	Type       string
	Code       string
	Message    string
	HTTPStatus int
	RequestID  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (type=%s code=%s status=%d request=%s)",
		e.Kind, e.Message, e.Type, e.Code, e.HTTPStatus, e.RequestID)
}

func (e *Error) Cause() error {
	return e.Kind
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// IsPermanent reports whether retrying the call can't change the result.
func IsPermanent(err error) bool {
	switch errors.Cause(err) {
	case ErrNotFound, ErrInvalidRequest, ErrCardDeclined, ErrInvalidSignature:
		return true
	}

	return false
}
