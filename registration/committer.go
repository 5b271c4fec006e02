package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ConfirmationNotifier delivers the registration confirmation. The
// committer calls it at most once per committed record; a delivery failure
// never rolls the commit back.
type ConfirmationNotifier interface {
	Send(ctx context.Context, record RegistrationRecord) error
}

type CommitInput struct {
	Payload        RegistrationPayload
	RegistrationID string

	// StagingKey is set on the gateway path so the staged entry is
	// transitioned to committed in the same transaction as the record write.
	StagingKey *string

	Status        Status
	PaymentStatus PaymentStatus
}

// Committer is the single authority that persists registration records.
type Committer struct {
	repo           Repository
	notifier       ConfirmationNotifier
	logger         *slog.Logger
	suppressNotify map[PaymentType]struct{}
}

// NewCommitter builds a Committer. suppressNotifyFor is the explicit
// allow-list of payment types whose confirmation is sent by a different
// trigger and must not be dispatched here.
func NewCommitter(repo Repository, notifier ConfirmationNotifier, logger *slog.Logger, suppressNotifyFor []PaymentType) *Committer {
	suppress := make(map[PaymentType]struct{}, len(suppressNotifyFor))
	for _, pt := range suppressNotifyFor {
		suppress[pt] = struct{}{}
	}

	return &Committer{
		repo:           repo,
		notifier:       notifier,
		logger:         logger,
		suppressNotify: suppress,
	}
}

// Commit persists a registration record exactly once per
// (email, registrationId). A second commit for the same pair returns the
// existing record unchanged and dispatches no second notification. Any
// other uniqueness violation surfaces as a conflict error.
func (c *Committer) Commit(ctx context.Context, input CommitInput) (RegistrationRecord, error) {
	ctx, span := tracer.Start(ctx, "registration.Commit")
	defer span.End()

	if err := validateInitialStatus(input); err != nil {
		return RegistrationRecord{}, err
	}

	record := RegistrationRecord{
		ID:             uuid.New(),
		Email:          input.Payload.Email,
		PasswordHash:   input.Payload.PasswordHash,
		Profile:        input.Payload.Profile,
		Selection:      input.Payload.Selection,
		RegistrationID: input.RegistrationID,
		Status:         input.Status,
		PaymentType:    input.Payload.PaymentType,
		Payment: PaymentDetails{
			Method: input.Payload.Method,
			Status: input.PaymentStatus,
			Amount: input.Payload.Amount,
		},
		CreatedAt: time.Now().UTC(),
	}

	err := c.repo.CreateRegistration(ctx, record, input.StagingKey)
	if err != nil {
		var regErr *Error
		if errors.As(err, &regErr) && isCommitConflict(regErr.Reason) {
			return c.resolveConflict(ctx, input, err)
		}
		return RegistrationRecord{}, err
	}

	c.notify(ctx, record)

	return record, nil
}

// resolveConflict decides whether a storage conflict is a duplicate
// delivery of the same commit (fine, return the existing record) or a real
// uniqueness violation (surfaced untouched).
func (c *Committer) resolveConflict(ctx context.Context, input CommitInput, conflictErr error) (RegistrationRecord, error) {
	existing, err := c.repo.GetRegistrationByEmail(ctx, input.Payload.Email)
	if err != nil {
		return RegistrationRecord{}, conflictErr
	}

	if existing.RegistrationID == input.RegistrationID {
		c.logger.InfoContext(ctx, "Duplicate commit, returning existing registration",
			slog.String("registrationId", input.RegistrationID),
		)
		return existing, nil
	}

	return RegistrationRecord{}, conflictErr
}

func (c *Committer) notify(ctx context.Context, record RegistrationRecord) {
	if _, suppressed := c.suppressNotify[record.PaymentType]; suppressed {
		return
	}
	if c.notifier == nil {
		return
	}

	if err := c.notifier.Send(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "Failed to send registration confirmation",
			slog.String("error", err.Error()),
			slog.String("email", record.Email),
			slog.String("registrationId", record.RegistrationID),
		)
	}
}

func validateInitialStatus(input CommitInput) error {
	switch input.Status {
	case STATUS_PENDING:
		return nil
	case STATUS_CONFIRMED:
		// Confirmed on creation means the money question is settled: the
		// gateway reported paid, or no payment is owed at all.
		if input.PaymentStatus == PAYMENT_STATUS_PAID {
			return nil
		}
		return NewInvalidStatusTransitionError(fmt.Sprintf("Cannot create a confirmed registration with payment status %q", input.PaymentStatus), nil)
	default:
		return NewInvalidStatusTransitionError(fmt.Sprintf("Registrations cannot be created with status %q", input.Status), nil)
	}
}

func isCommitConflict(reason ErrorReason) bool {
	switch reason {
	case REASON_EMAIL_ALREADY_REGISTERED, REASON_REGISTRATION_ID_CONFLICT, REASON_STAGING_CONFLICT:
		return true
	default:
		return false
	}
}
