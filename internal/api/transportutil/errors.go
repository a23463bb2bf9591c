package transportutil

import (
	"net/http"
	"strconv"

	"github.com/golangci/golangci-billing/internal/api/apierrors"
	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/pkg/api/billing"
	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int
	Message  string
}

func (e Error) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(e.Message)), nil
}

func (e Error) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *Error `json:"error,omitempty"`
}

func makeError(code int, e error) *Error {
	return &Error{
		HTTPCode: code,
		Message:  e.Error(),
	}
}

func MakeError(e error) *Error {
	var raceErr *apierrors.RaceConditionError
	if errors.As(e, &raceErr) {
		return makeError(http.StatusConflict, errors.New(raceErr.GetMessage()))
	}

	srcErr := errors.Cause(e)
	switch srcErr {
	case apierrors.ErrNotFound, billing.ErrInvoiceNotFound, paymentprovider.ErrNotFound:
		return makeError(http.StatusNotFound, e)
	case apierrors.ErrBadRequest, paymentprovider.ErrInvalidRequest:
		return makeError(http.StatusBadRequest, e)
	case apierrors.ErrNotAuthorized, paymentprovider.ErrInvalidSignature:
		return makeError(http.StatusForbidden, srcErr)
	case apierrors.ErrPayloadTooLarge:
		return makeError(http.StatusRequestEntityTooLarge, srcErr)
	}

	return makeError(http.StatusInternalServerError, errors.New("internal error"))
}
