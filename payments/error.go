package payments

import "fmt"

type ErrorReason string

const (
	REASON_ORDER_CREATION_FAILED ErrorReason = "ORDER_CREATION_FAILED"
	REASON_VERIFICATION_FAILED   ErrorReason = "VERIFICATION_FAILED"
	REASON_ORDER_DOES_NOT_EXIST  ErrorReason = "ORDER_DOES_NOT_EXIST"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newPaymentsError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewOrderCreationFailedError(message string, cause error) *Error {
	return newPaymentsError(REASON_ORDER_CREATION_FAILED, message, cause)
}

func NewVerificationFailedError(message string, cause error) *Error {
	return newPaymentsError(REASON_VERIFICATION_FAILED, message, cause)
}

func NewOrderDoesNotExistError(message string, cause error) *Error {
	return newPaymentsError(REASON_ORDER_DOES_NOT_EXIST, message, cause)
}
