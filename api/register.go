package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/summitworks/conference-registration/payments"
	"github.com/summitworks/conference-registration/registration"
)

type PaymentMethod string

const (
	PayNow        PaymentMethod = "pay-now"
	BankTransfer  PaymentMethod = "bank-transfer"
	Complimentary PaymentMethod = "complimentary"
	Sponsored     PaymentMethod = "sponsored"
)

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Profile struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Phone       string  `json:"phone"`
	Institution string  `json:"institution,omitempty"`
	MCINumber   string  `json:"mciNumber,omitempty"`
	Address     Address `json:"address"`
}

type Selection struct {
	Category            string   `json:"category"`
	Workshops           []string `json:"workshops,omitempty"`
	AccompanyingPersons int      `json:"accompanyingPersons,omitempty"`
}

type Payment struct {
	Method   PaymentMethod `json:"method"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
}

type RegisterRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Profile   Profile   `json:"profile"`
	Selection Selection `json:"selection"`
	Payment   Payment   `json:"payment"`
}

type Registration struct {
	RegistrationID string    `json:"registrationId"`
	Email          string    `json:"email"`
	Status         string    `json:"status"`
	PaymentType    string    `json:"paymentType"`
	PaymentStatus  string    `json:"paymentStatus"`
	Profile        Profile   `json:"profile"`
	Selection      Selection `json:"selection"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RegisterCommittedResponse struct {
	Registration Registration `json:"registration"`
}

type RegisterAwaitingPaymentResponse struct {
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	GatewayKey string `json:"gatewayKey,omitempty"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	logger := a.getLoggerOrBaseLogger(r.Context())

	var body RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("Invalid body for registration", "error", err)

		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	validated, err := registration.Validate(apiRequestToRegistrationRequest(body))
	if err != nil {
		logger.Warn("Registration failed validation", "error", err)

		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) && registrationErr.Reason == registration.REASON_VALIDATION_FAILED {
			writeJSON(w, http.StatusBadRequest, Error{
				Code:    InputValidationError,
				Message: registrationErr.Message,
				Fields:  registrationErr.Fields,
			})
			return
		}

		writeError(w, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	result, err := a.coordinator.Submit(r.Context(), validated)
	if err != nil {
		logger.Error("Error trying to register", "error", err)

		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) {
			switch registrationErr.Reason {
			case registration.REASON_EMAIL_ALREADY_REGISTERED:
				writeError(w, http.StatusConflict, AlreadyRegistered, "A registration already exists for this email")
				return
			case registration.REASON_REGISTRATION_ID_CONFLICT, registration.REASON_STAGING_CONFLICT:
				writeError(w, http.StatusConflict, AlreadyRegistered, "Registration conflicts with one in progress, try again")
				return
			case registration.REASON_ALLOCATION_EXHAUSTED:
				writeError(w, http.StatusServiceUnavailable, CapacityError, "Could not allocate a registration id, try again later")
				return
			}
		}

		var paymentsErr *payments.Error
		if errors.As(err, &paymentsErr) {
			writeError(w, http.StatusBadGateway, GatewayError, "Payment gateway is unavailable, try again later")
			return
		}

		writeError(w, http.StatusInternalServerError, InternalError, "Failed to register")
		return
	}

	switch result.Outcome {
	case registration.OUTCOME_AWAITING_PAYMENT:
		writeJSON(w, http.StatusAccepted, RegisterAwaitingPaymentResponse{
			OrderID:    result.Order.ID,
			Amount:     result.Order.Amount.Amount(),
			Currency:   result.Order.Amount.Currency().Code,
			GatewayKey: result.Order.ClientKey,
		})
	default:
		writeJSON(w, http.StatusOK, RegisterCommittedResponse{
			Registration: recordToApiRegistration(result.Record),
		})
	}
}

func apiRequestToRegistrationRequest(body RegisterRequest) registration.RegistrationRequest {
	return registration.RegistrationRequest{
		Email:    body.Email,
		Password: body.Password,
		Profile: registration.Profile{
			FirstName:   body.Profile.FirstName,
			LastName:    body.Profile.LastName,
			Phone:       body.Profile.Phone,
			Institution: body.Profile.Institution,
			MCINumber:   body.Profile.MCINumber,
			Address: registration.Address{
				Street:     body.Profile.Address.Street,
				City:       body.Profile.Address.City,
				State:      body.Profile.Address.State,
				PostalCode: body.Profile.Address.PostalCode,
				Country:    body.Profile.Address.Country,
			},
		},
		Selection: registration.Selection{
			Category:            body.Selection.Category,
			Workshops:           body.Selection.Workshops,
			AccompanyingPersons: body.Selection.AccompanyingPersons,
		},
		Payment: registration.PaymentIntent{
			Method:   apiMethodToMethod(body.Payment.Method),
			Amount:   body.Payment.Amount,
			Currency: body.Payment.Currency,
		},
	}
}

func recordToApiRegistration(record registration.RegistrationRecord) Registration {
	var amount int64
	currency := ""
	if record.Payment.Amount != nil {
		amount = record.Payment.Amount.Amount()
		currency = record.Payment.Amount.Currency().Code
	}

	return Registration{
		RegistrationID: record.RegistrationID,
		Email:          record.Email,
		Status:         string(record.Status),
		PaymentType:    string(record.PaymentType),
		PaymentStatus:  string(record.Payment.Status),
		Profile: Profile{
			FirstName:   record.Profile.FirstName,
			LastName:    record.Profile.LastName,
			Phone:       record.Profile.Phone,
			Institution: record.Profile.Institution,
			MCINumber:   record.Profile.MCINumber,
			Address: Address{
				Street:     record.Profile.Address.Street,
				City:       record.Profile.Address.City,
				State:      record.Profile.Address.State,
				PostalCode: record.Profile.Address.PostalCode,
				Country:    record.Profile.Address.Country,
			},
		},
		Selection: Selection{
			Category:            record.Selection.Category,
			Workshops:           record.Selection.Workshops,
			AccompanyingPersons: record.Selection.AccompanyingPersons,
		},
		Amount:    amount,
		Currency:  currency,
		CreatedAt: record.CreatedAt,
	}
}

func apiMethodToMethod(method PaymentMethod) registration.PaymentMethod {
	switch method {
	case PayNow:
		return registration.METHOD_PAY_NOW
	case BankTransfer:
		return registration.METHOD_BANK_TRANSFER
	case Complimentary:
		return registration.METHOD_COMPLIMENTARY
	case Sponsored:
		return registration.METHOD_SPONSORED
	default:
		// Unknown methods fail validation downstream.
		return registration.PaymentMethod(fmt.Sprintf("UNKNOWN_%s", method))
	}
}
