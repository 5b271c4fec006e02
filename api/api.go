package api

import (
	"log/slog"
	"net/http"

	"github.com/summitworks/conference-registration/registration"
)

type Environment string

const (
	LOCAL Environment = "local"
	PROD  Environment = "prod"
)

// DB is everything the handlers need from storage.
type DB interface {
	registration.Repository
	registration.StagingStore
}

type API struct {
	db            DB
	coordinator   *registration.Coordinator
	logger        *slog.Logger
	env           Environment
	allowedOrigin string
}

func NewAPI(db DB, coordinator *registration.Coordinator, logger *slog.Logger, env Environment, allowedOrigin string) *API {
	return &API{
		db:            db,
		coordinator:   coordinator,
		logger:        logger,
		env:           env,
		allowedOrigin: allowedOrigin,
	}
}

// Handler wires the routes and middleware chain. webhookPath is where the
// payment gateway delivers its events; it bypasses the JSON API surface.
func (a *API) Handler(webhookPath string) http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("POST /register", a.handleRegister)
	r.HandleFunc("POST /register/confirm", a.handleConfirmPayment)
	r.HandleFunc("GET /registrations", a.handleListRegistrations)

	return useMiddlewares(r,
		a.gatewayWebhookMiddleware(webhookPath),
		a.corsMiddleware(),
		a.loggingMiddleware(),
		a.requestIDMiddleware(),
	)
}
