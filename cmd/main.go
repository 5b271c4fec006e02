package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/summitworks/conference-registration/api"
	"github.com/summitworks/conference-registration/dynamo"
	"github.com/summitworks/conference-registration/payments/stripe"
	"github.com/summitworks/conference-registration/registration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := getServerSettingsFromEnv()

	db, err := createDB(ctx, settings)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}

	stripeKey, err := getStripeAPIKey(ctx, settings)
	if err != nil {
		logger.Error("Failed to get stripe api key", "error", err)
		os.Exit(1)
	}
	gateway := stripe.NewGateway(stripeKey, settings.StagingTTL)

	emailSender, err := createEmailSender(ctx, logger, settings.Env)
	if err != nil {
		logger.Error("Failed to set up email sender", "error", err)
		os.Exit(1)
	}
	notifier := registration.NewEmailNotifier(emailSender, settings.EmailFrom, settings.ConferenceName)

	allocator := registration.NewAllocator(db, settings.IDPrefix, registration.DefaultAllocationAttempts)
	committer := registration.NewCommitter(db, notifier, logger, settings.SuppressNotifyFor)
	coordinator := registration.NewCoordinator(allocator, committer, db, gateway, db, settings.StagingTTL, logger)

	sweeper := registration.NewSweeper(db, gateway, committer, settings.SweepInterval, settings.SweepBatchSize, logger)
	go sweeper.Run(ctx)

	registrationAPI := api.NewAPI(db, coordinator, logger, settings.Env, settings.AllowedOrigin)

	s := &http.Server{
		Handler: registrationAPI.Handler(settings.WebhookPath),
		Addr:    net.JoinHostPort(settings.Host, settings.Port),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server cleanly", "error", err)
		}
	}()

	logger.Info("Starting server", "addr", s.Addr, "env", settings.Env)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

type ServerSettings struct {
	Host              string
	Port              string
	Env               api.Environment
	TableName         string
	DynamoEndpoint    string
	IDPrefix          string
	StagingTTL        time.Duration
	SweepInterval     time.Duration
	SweepBatchSize    int32
	EmailFrom         string
	ConferenceName    string
	AllowedOrigin     string
	WebhookPath       string
	StripeKeyParam    string
	SuppressNotifyFor []registration.PaymentType
}

func getServerSettingsFromEnv() ServerSettings {
	return ServerSettings{
		Host:              getEnvOrDefault("HOST", "0.0.0.0"),
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               api.Environment(getEnvOrDefault("ENV", string(api.LOCAL))),
		TableName:         getEnvOrDefault("TABLE_NAME", "conference-registration"),
		DynamoEndpoint:    getEnvOrDefault("DYNAMO_ENDPOINT", "http://localhost:8000"),
		IDPrefix:          getEnvOrDefault("REGISTRATION_ID_PREFIX", "CONF-"),
		StagingTTL:        getDurationOrDefault("STAGING_TTL", 30*time.Minute),
		SweepInterval:     getDurationOrDefault("SWEEP_INTERVAL", 5*time.Minute),
		SweepBatchSize:    25,
		EmailFrom:         getEnvOrDefault("EMAIL_FROM", "Summit Works <registrations@summitworks.example>"),
		ConferenceName:    getEnvOrDefault("CONFERENCE_NAME", "Summit Works Conference"),
		AllowedOrigin:     getEnvOrDefault("ALLOWED_ORIGIN", "https://summitworks.example"),
		WebhookPath:       getEnvOrDefault("WEBHOOK_PATH", "/webhooks/payment"),
		StripeKeyParam:    getEnvOrDefault("STRIPE_KEY_SSM_PARAM", "/conference-registration/stripe-api-key"),
		SuppressNotifyFor: paymentTypesFromEnv("SUPPRESS_NOTIFY_FOR", []registration.PaymentType{registration.PAYMENT_TYPE_COMPLIMENTARY, registration.PAYMENT_TYPE_SPONSORED}),
	}
}

func createDB(ctx context.Context, settings ServerSettings) (*dynamo.DB, error) {
	var opts []func(*config.LoadOptions) error
	if settings.Env == api.LOCAL {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "local"),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if settings.Env == api.LOCAL {
			o.BaseEndpoint = aws.String(settings.DynamoEndpoint)
		}
	})

	return dynamo.NewDB(client, settings.TableName), nil
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return defaultVal
}

func getDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}

	return d
}

func paymentTypesFromEnv(key string, defaultVal []registration.PaymentType) []registration.PaymentType {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}

	types := []registration.PaymentType{}
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			types = append(types, registration.PaymentType(s))
		}
	}

	return types
}
