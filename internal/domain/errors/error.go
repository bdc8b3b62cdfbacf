package errors

import (
	"errors"
	"fmt"
)

// Re-export the standard helpers so callers only import one errors package.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// BillingError carries a machine-readable code alongside the message. The
// code drives the HTTP status and tells callers whether a retry can help.
type BillingError struct {
	code    string
	message string
	err     error
}

func (e *BillingError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *BillingError) Code() string {
	return e.code
}

func (e *BillingError) Unwrap() error {
	return e.err
}

func NewBillingError(code, message string, err error) *BillingError {
	return &BillingError{code: code, message: message, err: err}
}

// Validation builds an INVALID_ARGUMENT error.
func Validation(message string) *BillingError {
	return NewBillingError(CodeInvalidArgument, message, nil)
}

// Conflict builds a CONFLICT error with a user-facing message.
func Conflict(message string) *BillingError {
	return NewBillingError(CodeConflict, message, nil)
}

// NotFound builds a NOT_FOUND error.
func NotFound(message string) *BillingError {
	return NewBillingError(CodeNotFound, message, nil)
}

// Signature builds a SIGNATURE_INVALID error.
func Signature(message string) *BillingError {
	return NewBillingError(CodeSignature, message, nil)
}

// Gateway builds a GATEWAY_ERROR wrapping the gateway's failure.
func Gateway(message string, err error) *BillingError {
	return NewBillingError(CodeGateway, message, err)
}

// Internal builds an INTERNAL error wrapping err.
func Internal(message string, err error) *BillingError {
	return NewBillingError(CodeInternal, message, err)
}

// Wrap keeps the code of an existing BillingError while adding context;
// everything else becomes INTERNAL.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var billErr *BillingError
	if As(err, &billErr) {
		return NewBillingError(billErr.Code(), message, err)
	}
	return NewBillingError(CodeInternal, message, err)
}

// CodeOf extracts the error code, defaulting to INTERNAL.
func CodeOf(err error) string {
	var billErr *BillingError
	if As(err, &billErr) {
		return billErr.Code()
	}
	return CodeInternal
}
