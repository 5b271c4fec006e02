package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/summitworks/conference-registration/api"
)

// getStripeAPIKey reads the key from the environment locally and from an
// encrypted SSM parameter in prod.
func getStripeAPIKey(ctx context.Context, settings ServerSettings) (string, error) {
	if settings.Env == api.LOCAL {
		key, ok := os.LookupEnv("STRIPE_API_KEY")
		if !ok {
			return "", fmt.Errorf("STRIPE_API_KEY must be set when running locally")
		}
		return key, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get aws config: %w", err)
	}

	ssmClient := ssm.NewFromConfig(cfg)

	out, err := ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(settings.StripeKeyParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get stripe key from ssm: %w", err)
	}

	return *out.Parameter.Value, nil
}
