package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

var _ Sender = &SESSender{}

type SESSender struct {
	client *sesv2.Client
}

func NewSESSender(client *sesv2.Client) *SESSender {
	return &SESSender{client: client}
}

func (s *SESSender) SendEmail(ctx context.Context, e Email) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.FromAddress),
		Destination: &types.Destination{
			ToAddresses: e.ToAddresses,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data: aws.String(e.Subject),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data: aws.String(e.HTMLBody),
					},
					Text: &types.Content{
						Data: aws.String(e.TextBody),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email over SES: %w", err)
	}

	return nil
}
