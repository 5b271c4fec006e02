package registration

import (
	"net/mail"
	"strings"

	"github.com/Rhymond/go-money"
)

const MinPasswordLength = 8

// Validate checks an incoming request structurally and returns its
// normalized form. It is a pure function: no storage is touched, so a
// passing request can still fail later on uniqueness.
func Validate(req RegistrationRequest) (ValidatedRequest, error) {
	var fields []string

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		fields = append(fields, "email")
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields = append(fields, "email")
	}

	if len(req.Password) < MinPasswordLength {
		fields = append(fields, "password")
	}

	if strings.TrimSpace(req.Profile.FirstName) == "" {
		fields = append(fields, "profile.firstName")
	}
	if strings.TrimSpace(req.Profile.LastName) == "" {
		fields = append(fields, "profile.lastName")
	}
	if strings.TrimSpace(req.Profile.Phone) == "" {
		fields = append(fields, "profile.phone")
	}

	if strings.TrimSpace(req.Selection.Category) == "" {
		fields = append(fields, "selection.category")
	}
	if req.Selection.AccompanyingPersons < 0 {
		fields = append(fields, "selection.accompanyingPersons")
	}

	paymentType, methodKnown := paymentTypeForMethod(req.Payment.Method)
	if !methodKnown {
		fields = append(fields, "payment.method")
	}

	var amount *money.Money
	if methodKnown && methodRequiresCharge(req.Payment.Method) {
		currency := money.GetCurrency(strings.ToUpper(req.Payment.Currency))
		switch {
		case req.Payment.Amount <= 0:
			fields = append(fields, "payment.amount")
		case currency == nil:
			fields = append(fields, "payment.currency")
		default:
			amount = money.New(req.Payment.Amount, currency.Code)
		}
	}

	if len(fields) > 0 {
		return ValidatedRequest{}, NewValidationError(fields)
	}

	return ValidatedRequest{
		Email:       email,
		Password:    req.Password,
		Profile:     req.Profile,
		Selection:   req.Selection,
		Method:      req.Payment.Method,
		PaymentType: paymentType,
		Amount:      amount,
	}, nil
}

func paymentTypeForMethod(method PaymentMethod) (PaymentType, bool) {
	switch method {
	case METHOD_PAY_NOW, METHOD_BANK_TRANSFER:
		return PAYMENT_TYPE_SELF_PAY, true
	case METHOD_COMPLIMENTARY:
		return PAYMENT_TYPE_COMPLIMENTARY, true
	case METHOD_SPONSORED:
		return PAYMENT_TYPE_SPONSORED, true
	default:
		return "", false
	}
}

func methodRequiresCharge(method PaymentMethod) bool {
	return method == METHOD_PAY_NOW || method == METHOD_BANK_TRANSFER
}
