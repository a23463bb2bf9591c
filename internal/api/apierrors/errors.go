package apierrors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound        = errors.New("no data")
	ErrBadRequest      = errors.New("bad request")
	ErrInternal        = errors.New("interal error")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrPayloadTooLarge = errors.New("payload too large")
)

type LocalizedError interface {
	GetMessage() string
}

// RaceConditionError is returned when a concurrent request holds the
// resource. The caller (or the provider for webhooks) should retry.
type RaceConditionError struct {
	message string
}

func NewRaceConditionError(m string) *RaceConditionError {
	return &RaceConditionError{message: m}
}

func (e RaceConditionError) Error() string {
	return fmt.Sprintf("race condition: %s", e.message)
}

func (e RaceConditionError) GetMessage() string {
	return e.message
}
