package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/summitworks/conference-registration/email"
)

//go:embed templates
var templates embed.FS

var _ ConfirmationNotifier = &EmailNotifier{}

// EmailNotifier sends the templated confirmation email for a committed
// registration. It implements ConfirmationNotifier; the at-most-once
// guarantee lives in the Committer, not here.
type EmailNotifier struct {
	sender         email.Sender
	fromAddress    string
	conferenceName string
}

func NewEmailNotifier(sender email.Sender, fromAddress string, conferenceName string) *EmailNotifier {
	return &EmailNotifier{
		sender:         sender,
		fromAddress:    fromAddress,
		conferenceName: conferenceName,
	}
}

func (n *EmailNotifier) Send(ctx context.Context, record RegistrationRecord) error {
	htmlBody, err := n.makeHtmlBody(record)
	if err != nil {
		return err
	}

	textOnlyBody, err := n.makeTextOnlyBody(record)
	if err != nil {
		return err
	}

	return n.sender.SendEmail(ctx, email.Email{
		FromAddress: n.fromAddress,
		ToAddresses: []string{record.Email},
		Subject:     fmt.Sprintf("Registration confirmed - %s", n.conferenceName),
		HTMLBody:    htmlBody,
		TextBody:    textOnlyBody,
	})
}

func (n *EmailNotifier) makeHtmlBody(record RegistrationRecord) (string, error) {
	tmpl, err := template.New("registration-confirmation.tmpl").ParseFS(templates, "templates/registration-confirmation.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Conference":   n.conferenceName,
		"Registration": record,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

func (n *EmailNotifier) makeTextOnlyBody(record RegistrationRecord) (string, error) {
	tmpl, err := template.New("registration-confirmation-textonly.tmpl").ParseFS(templates, "templates/registration-confirmation-textonly.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Conference":   n.conferenceName,
		"Registration": record,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}
