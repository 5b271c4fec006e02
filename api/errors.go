package api

import (
	"encoding/json"
	"net/http"
)

type ErrorCode string

const (
	EmptyBody             ErrorCode = "EmptyBody"
	InvalidBody           ErrorCode = "InvalidBody"
	InputValidationError  ErrorCode = "InputValidationError"
	AlreadyRegistered     ErrorCode = "AlreadyRegistered"
	NotFound              ErrorCode = "NotFound"
	PaymentSessionExpired ErrorCode = "PaymentSessionExpired"
	PaymentNotCompleted   ErrorCode = "PaymentNotCompleted"
	PaymentFailed         ErrorCode = "PaymentFailed"
	GatewayError          ErrorCode = "GatewayError"
	CapacityError         ErrorCode = "CapacityError"
	LimitOutOfBounds      ErrorCode = "LimitOutOfBounds"
	InvalidCursor         ErrorCode = "InvalidCursor"
	InternalError         ErrorCode = "InternalError"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, code ErrorCode, message string) {
	writeJSON(w, statusCode, Error{Code: code, Message: message})
}
