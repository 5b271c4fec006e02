// Package stripe implements the payments.Gateway contract on top of Stripe
// PaymentIntents.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/summitworks/conference-registration/payments"

	stripego "github.com/stripe/stripe-go/v85"
	"github.com/stripe/stripe-go/v85/client"
)

var _ payments.Gateway = &Gateway{}

type Gateway struct {
	api *client.API

	// orderValidity bounds how long a created order is considered payable
	// by this service; Stripe keeps intents alive much longer, but a stale
	// checkout should not hold a staged registration open indefinitely.
	orderValidity time.Duration
}

func NewGateway(apiKey string, orderValidity time.Duration) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &Gateway{
		api:           api,
		orderValidity: orderValidity,
	}
}

func (g *Gateway) CreateOrder(ctx context.Context, params payments.OrderParams) (payments.Order, error) {
	piParams := &stripego.PaymentIntentParams{
		Params: stripego.Params{
			Context: ctx,
		},
		Amount:   stripego.Int64(params.Amount.Amount()),
		Currency: stripego.String(strings.ToLower(params.Amount.Currency().Code)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	for k, v := range params.Metadata {
		piParams.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(piParams)
	if err != nil {
		return payments.Order{}, payments.NewOrderCreationFailedError("Failed to create payment intent", err)
	}

	return payments.Order{
		ID:        intent.ID,
		Amount:    params.Amount,
		ClientKey: intent.ClientSecret,
		ExpiresAt: time.Now().UTC().Add(g.orderValidity),
		Metadata:  params.Metadata,
	}, nil
}

func (g *Gateway) VerifyPayment(ctx context.Context, orderID string) (payments.PaymentState, error) {
	intent, err := g.api.PaymentIntents.Get(orderID, &stripego.PaymentIntentParams{
		Params: stripego.Params{
			Context: ctx,
		},
	})
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripego.ErrorCodeResourceMissing {
			return "", payments.NewOrderDoesNotExistError(fmt.Sprintf("No payment intent with id %q", orderID), err)
		}
		return "", payments.NewVerificationFailedError(fmt.Sprintf("Failed to fetch payment intent %q", orderID), err)
	}

	switch intent.Status {
	case stripego.PaymentIntentStatusSucceeded:
		return payments.PAYMENT_STATE_PAID, nil
	case stripego.PaymentIntentStatusCanceled:
		return payments.PAYMENT_STATE_FAILED, nil
	default:
		return payments.PAYMENT_STATE_PENDING, nil
	}
}
