package registration

import (
	"fmt"
	"strings"
)

type ErrorReason string

const (
	REASON_VALIDATION_FAILED               ErrorReason = "VALIDATION_FAILED"
	REASON_ALLOCATION_EXHAUSTED            ErrorReason = "ALLOCATION_EXHAUSTED"
	REASON_EMAIL_ALREADY_REGISTERED        ErrorReason = "EMAIL_ALREADY_REGISTERED"
	REASON_REGISTRATION_ID_CONFLICT        ErrorReason = "REGISTRATION_ID_CONFLICT"
	REASON_REGISTRATION_DOES_NOT_EXIST     ErrorReason = "REGISTRATION_DOES_NOT_EXIST"
	REASON_STAGING_NOT_FOUND               ErrorReason = "STAGING_NOT_FOUND"
	REASON_STAGING_EXPIRED                 ErrorReason = "STAGING_EXPIRED"
	REASON_STAGING_CONFLICT                ErrorReason = "STAGING_CONFLICT"
	REASON_PAYMENT_NOT_COMPLETED           ErrorReason = "PAYMENT_NOT_COMPLETED"
	REASON_PAYMENT_FAILED                  ErrorReason = "PAYMENT_FAILED"
	REASON_INVALID_STATUS_TRANSITION       ErrorReason = "INVALID_STATUS_TRANSITION"
	REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL ErrorReason = "FAILED_TO_TRANSLATE_TO_DB_MODEL"
	REASON_FAILED_TO_WRITE                 ErrorReason = "FAILED_TO_WRITE"
	REASON_FAILED_TO_FETCH                 ErrorReason = "FAILED_TO_FETCH"
	REASON_INVALID_CURSOR                  ErrorReason = "INVALID_CURSOR"
	REASON_TIMEOUT                         ErrorReason = "TIMEOUT"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error

	// Fields names the offending request fields for VALIDATION_FAILED.
	Fields []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewValidationError(fields []string) *Error {
	return &Error{
		Reason:  REASON_VALIDATION_FAILED,
		Message: fmt.Sprintf("Invalid fields: %s", strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

func NewAllocationExhaustedError(attempts int) *Error {
	return newRegistrationError(REASON_ALLOCATION_EXHAUSTED, fmt.Sprintf("No unique registration id found after %d attempts", attempts), nil)
}

func NewEmailAlreadyRegisteredError(message string, cause error) *Error {
	return newRegistrationError(REASON_EMAIL_ALREADY_REGISTERED, message, cause)
}

func NewRegistrationIDConflictError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_ID_CONFLICT, message, cause)
}

func NewRegistrationDoesNotExistError(message string, cause error) *Error {
	return newRegistrationError(REASON_REGISTRATION_DOES_NOT_EXIST, message, cause)
}

func NewStagingNotFoundError(message string, cause error) *Error {
	return newRegistrationError(REASON_STAGING_NOT_FOUND, message, cause)
}

func NewStagingExpiredError(stagingKey string) *Error {
	return newRegistrationError(REASON_STAGING_EXPIRED, fmt.Sprintf("Staged registration %q has expired", stagingKey), nil)
}

func NewStagingConflictError(message string, cause error) *Error {
	return newRegistrationError(REASON_STAGING_CONFLICT, message, cause)
}

func NewPaymentNotCompletedError(stagingKey string) *Error {
	return newRegistrationError(REASON_PAYMENT_NOT_COMPLETED, fmt.Sprintf("Payment for order %q is not completed yet", stagingKey), nil)
}

func NewPaymentFailedError(stagingKey string) *Error {
	return newRegistrationError(REASON_PAYMENT_FAILED, fmt.Sprintf("Payment for order %q failed", stagingKey), nil)
}

func NewInvalidStatusTransitionError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_STATUS_TRANSITION, message, cause)
}

func NewFailedToTranslateToDBModelError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_TRANSLATE_TO_DB_MODEL, message, cause)
}

func NewFailedToWriteError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_WRITE, message, cause)
}

func NewFailedToFetchError(message string, cause error) *Error {
	return newRegistrationError(REASON_FAILED_TO_FETCH, message, cause)
}

func NewInvalidCursorError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_CURSOR, message, cause)
}

func NewTimeoutError(message string) *Error {
	return newRegistrationError(REASON_TIMEOUT, message, nil)
}
