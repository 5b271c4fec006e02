package registration

import (
	"context"
	"log/slog"
	"time"

	"github.com/summitworks/conference-registration/payments"
)

// Sweeper drives staged registrations whose order is overdue to a terminal
// state. It covers lost webhooks, abandoned checkouts, and crashes between
// payment and commit: paid orders get a late commit, everything else is
// expired and the reserved registration id released.
type Sweeper struct {
	staging   StagingStore
	gateway   payments.Gateway
	committer *Committer
	interval  time.Duration
	batchSize int32
	logger    *slog.Logger
}

func NewSweeper(staging StagingStore, gateway payments.Gateway, committer *Committer, interval time.Duration, batchSize int32, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		staging:   staging,
		gateway:   gateway,
		committer: committer,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce reconciles one batch of overdue staged registrations. Entries
// it cannot resolve this pass (gateway errors, lost write races) are left
// staged and picked up again on the next pass.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "registration.SweepOnce")
	defer span.End()

	overdue, err := s.staging.ListExpiredStaged(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list overdue staged registrations", slog.String("error", err.Error()))
		return
	}

	for _, staged := range overdue {
		s.reconcile(ctx, staged)
	}
}

func (s *Sweeper) reconcile(ctx context.Context, staged StagedRegistration) {
	state, err := s.gateway.VerifyPayment(ctx, staged.StagingKey)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to verify overdue order with gateway, will retry next pass",
			slog.String("error", err.Error()),
			slog.String("stagingKey", staged.StagingKey),
		)
		return
	}

	switch state {
	case payments.PAYMENT_STATE_PAID:
		// The confirmation event never made it; commit late. Commit is
		// idempotent, so racing a webhook that did arrive is harmless.
		stagingKey := staged.StagingKey
		_, err := s.committer.Commit(ctx, CommitInput{
			Payload:        staged.Payload,
			RegistrationID: staged.RegistrationID,
			StagingKey:     &stagingKey,
			Status:         STATUS_CONFIRMED,
			PaymentStatus:  PAYMENT_STATUS_PAID,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to commit paid overdue registration",
				slog.String("error", err.Error()),
				slog.String("stagingKey", staged.StagingKey),
			)
			return
		}
		s.logger.InfoContext(ctx, "Committed overdue paid registration",
			slog.String("stagingKey", staged.StagingKey),
			slog.String("registrationId", staged.RegistrationID),
		)
	default:
		// Failed, or still pending after the grace window: the gateway can
		// no longer collect for this order, so the entry is dead.
		err := s.staging.MarkStagingExpired(ctx, staged.StagingKey, staged.RegistrationID)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to expire overdue staged registration",
				slog.String("error", err.Error()),
				slog.String("stagingKey", staged.StagingKey),
			)
			return
		}
		s.logger.InfoContext(ctx, "Expired overdue staged registration",
			slog.String("stagingKey", staged.StagingKey),
			slog.String("gatewayState", string(state)),
		)
	}
}
