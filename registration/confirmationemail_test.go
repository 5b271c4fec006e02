package registration

import (
	"context"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/summitworks/conference-registration/email"
)

type captureSender struct {
	sent []email.Email
}

func (c *captureSender) SendEmail(ctx context.Context, e email.Email) error {
	c.sent = append(c.sent, e)
	return nil
}

func TestEmailNotifierSend(t *testing.T) {
	record := RegistrationRecord{
		Email: "jane.doe@example.com",
		Profile: Profile{
			FirstName: "Jane",
			LastName:  "Doe",
		},
		Selection: Selection{
			Category:  "delegate",
			Workshops: []string{"workshop-a", "workshop-b"},
		},
		RegistrationID: "CONF-000123",
		Status:         STATUS_CONFIRMED,
		PaymentType:    PAYMENT_TYPE_SELF_PAY,
		Payment: PaymentDetails{
			Method: METHOD_PAY_NOW,
			Status: PAYMENT_STATUS_PAID,
			Amount: money.New(1250000, money.INR),
		},
		CreatedAt: time.Now().UTC(),
	}

	sender := &captureSender{}
	notifier := NewEmailNotifier(sender, "Summit Works <registrations@summitworks.example>", "Summit Works Conference")

	err := notifier.Send(context.Background(), record)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]

	assert.Equal(t, []string{"jane.doe@example.com"}, sent.ToAddresses)
	assert.Equal(t, "Registration confirmed - Summit Works Conference", sent.Subject)
	assert.Contains(t, sent.HTMLBody, "CONF-000123")
	assert.Contains(t, sent.HTMLBody, "workshop-a")
	assert.Contains(t, sent.TextBody, "CONF-000123")
	assert.Contains(t, sent.TextBody, "Jane Doe")
}
