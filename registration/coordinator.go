package registration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/summitworks/conference-registration/payments"
	"go.opentelemetry.io/otel/attribute"
)

type SubmitOutcome string

const (
	OUTCOME_COMMITTED        SubmitOutcome = "COMMITTED"
	OUTCOME_AWAITING_PAYMENT SubmitOutcome = "AWAITING_PAYMENT"
)

// SubmitResult is either a committed record (non-gateway methods) or the
// gateway order details the payment UI needs (gateway method).
type SubmitResult struct {
	Outcome    SubmitOutcome
	Record     RegistrationRecord
	Order      payments.Order
	StagingKey string
}

// Coordinator decides, per payment method, whether a submission commits
// immediately or is staged until the gateway confirms payment.
type Coordinator struct {
	allocator  *Allocator
	committer  *Committer
	staging    StagingStore
	gateway    payments.Gateway
	repo       Repository
	stagingTTL time.Duration
	logger     *slog.Logger
}

func NewCoordinator(
	allocator *Allocator,
	committer *Committer,
	staging StagingStore,
	gateway payments.Gateway,
	repo Repository,
	stagingTTL time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		allocator:  allocator,
		committer:  committer,
		staging:    staging,
		gateway:    gateway,
		repo:       repo,
		stagingTTL: stagingTTL,
		logger:     logger,
	}
}

func (c *Coordinator) Submit(ctx context.Context, request ValidatedRequest) (SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "registration.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("payment.method", string(request.Method)))

	payload, err := request.Payload()
	if err != nil {
		return SubmitResult{}, NewFailedToWriteError("Failed to prepare registration payload", err)
	}

	registrationID, err := c.allocator.Allocate(ctx)
	if err != nil {
		return SubmitResult{}, err
	}

	switch request.Method {
	case METHOD_BANK_TRANSFER:
		return c.commitDirect(ctx, payload, registrationID, STATUS_PENDING, PAYMENT_STATUS_PENDING)
	case METHOD_COMPLIMENTARY, METHOD_SPONSORED:
		return c.commitDirect(ctx, payload, registrationID, STATUS_CONFIRMED, PAYMENT_STATUS_PAID)
	case METHOD_PAY_NOW:
		return c.stageForPayment(ctx, payload, registrationID)
	default:
		return SubmitResult{}, NewValidationError([]string{"payment.method"})
	}
}

func (c *Coordinator) commitDirect(ctx context.Context, payload RegistrationPayload, registrationID string, status Status, paymentStatus PaymentStatus) (SubmitResult, error) {
	record, err := c.committer.Commit(ctx, CommitInput{
		Payload:        payload,
		RegistrationID: registrationID,
		Status:         status,
		PaymentStatus:  paymentStatus,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{Outcome: OUTCOME_COMMITTED, Record: record}, nil
}

// stageForPayment opens a gateway order and stages the payload under the
// order id. No registration record exists until a confirmation event is
// processed. If the order cannot be created, nothing has been persisted and
// the submission fails cleanly.
func (c *Coordinator) stageForPayment(ctx context.Context, payload RegistrationPayload, registrationID string) (SubmitResult, error) {
	order, err := c.gateway.CreateOrder(ctx, payments.OrderParams{
		Amount: payload.Amount,
		Metadata: map[string]string{
			payments.MetadataKeyRegistrationID: registrationID,
			payments.MetadataKeyEmail:          payload.Email,
		},
	})
	if err != nil {
		return SubmitResult{}, err
	}

	now := time.Now().UTC()
	expiresAt := order.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(c.stagingTTL)
	}

	staged := StagedRegistration{
		StagingKey:     order.ID,
		Payload:        payload,
		RegistrationID: registrationID,
		Status:         STAGING_STATUS_STAGED,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}

	if err := c.staging.Stage(ctx, staged); err != nil {
		// The gateway order exists but nothing references it; it dies at the
		// gateway's own expiry. The record store was never touched.
		return SubmitResult{}, err
	}

	return SubmitResult{
		Outcome:    OUTCOME_AWAITING_PAYMENT,
		Order:      order,
		StagingKey: order.ID,
	}, nil
}

// Confirm processes a payment-confirmation event for a staged registration.
// It is the re-entry point for both the gateway webhook and client-driven
// verification calls, and is idempotent per staging key: a key that already
// committed returns the existing record. The gateway is always asked for
// the authoritative payment state; the event itself is not trusted.
func (c *Coordinator) Confirm(ctx context.Context, stagingKey string) (RegistrationRecord, error) {
	ctx, span := tracer.Start(ctx, "registration.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("staging.key", stagingKey))

	staged, err := c.staging.GetStaged(ctx, stagingKey)
	if err != nil {
		return RegistrationRecord{}, err
	}

	switch staged.Status {
	case STAGING_STATUS_COMMITTED:
		record, err := c.repo.GetRegistrationByEmail(ctx, staged.Payload.Email)
		if err != nil {
			return RegistrationRecord{}, NewFailedToFetchError(fmt.Sprintf("Staged registration %q is committed but its record could not be fetched", stagingKey), err)
		}
		return record, nil
	case STAGING_STATUS_EXPIRED:
		return RegistrationRecord{}, NewStagingExpiredError(stagingKey)
	}

	state, err := c.gateway.VerifyPayment(ctx, stagingKey)
	if err != nil {
		return RegistrationRecord{}, err
	}

	switch state {
	case payments.PAYMENT_STATE_PAID:
		return c.committer.Commit(ctx, CommitInput{
			Payload:        staged.Payload,
			RegistrationID: staged.RegistrationID,
			StagingKey:     &stagingKey,
			Status:         STATUS_CONFIRMED,
			PaymentStatus:  PAYMENT_STATUS_PAID,
		})
	case payments.PAYMENT_STATE_FAILED:
		// Left staged; the sweeper expires it once the grace period passes.
		return RegistrationRecord{}, NewPaymentFailedError(stagingKey)
	default:
		return RegistrationRecord{}, NewPaymentNotCompletedError(stagingKey)
	}
}
