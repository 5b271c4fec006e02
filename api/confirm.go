package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/summitworks/conference-registration/payments"
	"github.com/summitworks/conference-registration/registration"
)

type ConfirmPaymentRequest struct {
	OrderID string `json:"orderId"`
}

type ConfirmPaymentResponse struct {
	Registration Registration `json:"registration"`
}

// handleConfirmPayment is the client-driven confirmation path: the payment
// UI calls it after the gateway reports success. The gateway is re-verified
// server side, so a forged call cannot commit an unpaid registration.
func (a *API) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	logger := a.getLoggerOrBaseLogger(r.Context())

	var body ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("Invalid body for payment confirmation", "error", err)

		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}
	if body.OrderID == "" {
		writeError(w, http.StatusBadRequest, InvalidBody, "Must specify orderId")
		return
	}

	record, err := a.coordinator.Confirm(r.Context(), body.OrderID)
	if err != nil {
		logger.Error("Failed to confirm payment", "error", err, "orderId", body.OrderID)

		writeConfirmError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmPaymentResponse{
		Registration: recordToApiRegistration(record),
	})
}

func writeConfirmError(w http.ResponseWriter, err error) {
	var registrationErr *registration.Error
	if errors.As(err, &registrationErr) {
		switch registrationErr.Reason {
		case registration.REASON_STAGING_NOT_FOUND:
			writeError(w, http.StatusNotFound, NotFound, "No pending registration for this order")
			return
		case registration.REASON_STAGING_EXPIRED:
			writeError(w, http.StatusGone, PaymentSessionExpired, "The payment session has expired, register again")
			return
		case registration.REASON_PAYMENT_NOT_COMPLETED:
			writeError(w, http.StatusPaymentRequired, PaymentNotCompleted, "Payment has not completed yet")
			return
		case registration.REASON_PAYMENT_FAILED:
			writeError(w, http.StatusPaymentRequired, PaymentFailed, "Payment failed")
			return
		case registration.REASON_EMAIL_ALREADY_REGISTERED, registration.REASON_REGISTRATION_ID_CONFLICT:
			writeError(w, http.StatusConflict, AlreadyRegistered, "A different registration already exists for this email")
			return
		}
	}

	var paymentsErr *payments.Error
	if errors.As(err, &paymentsErr) && paymentsErr.Reason == payments.REASON_ORDER_DOES_NOT_EXIST {
		writeError(w, http.StatusNotFound, NotFound, "Order does not exist at the payment gateway")
		return
	}

	writeError(w, http.StatusInternalServerError, InternalError, "Failed to confirm payment")
}

type gatewayEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// gatewayWebhookMiddleware handles the gateway's server-to-server
// confirmation events. Terminal outcomes return 200 so the gateway stops
// retrying; only transient failures return 5xx.
func (a *API) gatewayWebhookMiddleware(path string) middlewareFunc {
	server := http.NewServeMux()

	server.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logger := a.getLoggerOrBaseLogger(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, 65536)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("Failed to read gateway webhook body", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var event gatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Error("Failed to parse gateway webhook event", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if event.Type != "payment_intent.succeeded" || event.Data.Object.ID == "" {
			logger.Info("Ignoring gateway webhook event", slog.String("type", event.Type))
			w.WriteHeader(http.StatusOK)
			return
		}

		_, err = a.coordinator.Confirm(ctx, event.Data.Object.ID)
		if err != nil {
			if isTerminalConfirmError(err) {
				// Retrying cannot change the outcome; ack so the gateway
				// stops redelivering.
				logger.Warn("Gateway webhook event is terminal", slog.String("error", err.Error()), slog.String("orderId", event.Data.Object.ID))
				w.WriteHeader(http.StatusOK)
				return
			}

			logger.Error("Failed to confirm payment from gateway webhook", slog.String("error", err.Error()), slog.String("orderId", event.Data.Object.ID))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler, matchedPath := server.Handler(r)

			if matchedPath == "" {
				next.ServeHTTP(w, r)
				return
			}

			handler.ServeHTTP(w, r)
		})
	}
}

func isTerminalConfirmError(err error) bool {
	var registrationErr *registration.Error
	if !errors.As(err, &registrationErr) {
		return false
	}

	switch registrationErr.Reason {
	case registration.REASON_STAGING_NOT_FOUND,
		registration.REASON_STAGING_EXPIRED,
		registration.REASON_PAYMENT_FAILED,
		registration.REASON_EMAIL_ALREADY_REGISTERED,
		registration.REASON_REGISTRATION_ID_CONFLICT:
		return true
	default:
		return false
	}
}
