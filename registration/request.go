package registration

import (
	"github.com/Rhymond/go-money"
)

// RegistrationRequest is the raw intake shape, as submitted by the caller.
// It is never persisted as-is.
type RegistrationRequest struct {
	Email     string
	Password  string
	Profile   Profile
	Selection Selection
	Payment   PaymentIntent
}

// PaymentIntent carries the already-computed amount to collect, in the
// currency's minor units (e.g. paise for INR).
type PaymentIntent struct {
	Method   PaymentMethod
	Amount   int64
	Currency string
}

// ValidatedRequest is the output of Validate: normalized, with derived
// fields filled in. It still holds the plaintext password; call Payload
// before handing it to anything that persists.
type ValidatedRequest struct {
	Email       string
	Password    string
	Profile     Profile
	Selection   Selection
	Method      PaymentMethod
	PaymentType PaymentType
	Amount      *money.Money
}

// RegistrationPayload is the stageable/committable form of a request. The
// password has been replaced by its bcrypt hash so plaintext never reaches
// the staging store.
type RegistrationPayload struct {
	Email        string
	PasswordHash string
	Profile      Profile
	Selection    Selection
	Method       PaymentMethod
	PaymentType  PaymentType
	Amount       *money.Money
}

func (v ValidatedRequest) Payload() (RegistrationPayload, error) {
	hash, err := HashPassword(v.Password)
	if err != nil {
		return RegistrationPayload{}, err
	}

	return RegistrationPayload{
		Email:        v.Email,
		PasswordHash: hash,
		Profile:      v.Profile,
		Selection:    v.Selection,
		Method:       v.Method,
		PaymentType:  v.PaymentType,
		Amount:       v.Amount,
	}, nil
}
