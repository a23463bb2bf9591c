package billing

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoPaymentSource   = errors.New("no payment source or customer to charge")
	ErrNotCustomer       = errors.New("not a payment provider customer yet")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrAlreadyReconciled = errors.New("remote subscription is already reconciled")
)

// InvalidStateError rejects an operation before any remote call is made.
type InvalidStateError struct {
	Op     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("can't %s: %s", e.Op, e.Reason)
}

// NotSavedError means the remote mutation succeeded but the local record
// wasn't persisted. The remote state is authoritative then.
type NotSavedError struct {
	Op  string
	Err error
}

func (e *NotSavedError) Error() string {
	return fmt.Sprintf("%s was applied remotely but not saved: %s", e.Op, e.Err)
}

func (e *NotSavedError) Unwrap() error {
	return e.Err
}

// NotInvoicedError means the change was applied remotely and saved, but
// invoicing the customer for it failed afterwards.
type NotInvoicedError struct {
	Op  string
	Err error
}

func (e *NotInvoicedError) Error() string {
	return fmt.Sprintf("%s was applied but the customer wasn't invoiced: %s", e.Op, e.Err)
}

func (e *NotInvoicedError) Unwrap() error {
	return e.Err
}

func (e *NotInvoicedError) Cause() error {
	return e.Err
}

func IsNotInvoiced(err error) bool {
	var nie *NotInvoicedError
	return errors.As(err, &nie)
}

func IsNotSaved(err error) bool {
	var nse *NotSavedError
	return errors.As(err, &nse)
}

func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}
