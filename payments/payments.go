// Package payments defines the contract this service consumes from the
// external payment gateway. The gateway itself is a collaborator: order
// creation and payment verification happen on its side, and its view of a
// payment is always the authoritative one.
package payments

import (
	"context"
	"time"

	"github.com/Rhymond/go-money"
)

type PaymentState string

const (
	PAYMENT_STATE_PAID    PaymentState = "PAID"
	PAYMENT_STATE_FAILED  PaymentState = "FAILED"
	PAYMENT_STATE_PENDING PaymentState = "PENDING"
)

// Metadata keys attached to every order so a late confirmation can be
// correlated back to the staged registration that opened it.
const (
	MetadataKeyRegistrationID = "REGISTRATION_ID"
	MetadataKeyEmail          = "EMAIL"
)

type OrderParams struct {
	Amount   *money.Money
	Metadata map[string]string
}

// Order is the gateway's representation of an amount to be collected. The
// ID doubles as the staging key for the deferred registration.
type Order struct {
	ID        string
	Amount    *money.Money
	ClientKey string
	ExpiresAt time.Time
	Metadata  map[string]string
}

type Gateway interface {
	CreateOrder(ctx context.Context, params OrderParams) (Order, error)
	VerifyPayment(ctx context.Context, orderID string) (PaymentState, error)
}
