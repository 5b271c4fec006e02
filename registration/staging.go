package registration

import (
	"context"
	"time"
)

type StagingStatus string

const (
	STAGING_STATUS_STAGED    StagingStatus = "STAGED"
	STAGING_STATUS_COMMITTED StagingStatus = "COMMITTED"
	STAGING_STATUS_EXPIRED   StagingStatus = "EXPIRED"
)

// StagedRegistration holds a full registration payload server side while an
// external payment is outstanding. The staging key is the gateway's order
// reference, so a confirmation event that only carries gateway identifiers
// can find the payload again.
type StagedRegistration struct {
	StagingKey     string
	Payload        RegistrationPayload
	RegistrationID string
	Status         StagingStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// StagingStore durably stages not-yet-committed registrations. The
// staged -> committed transition happens inside the commit transaction (see
// Repository.CreateRegistration); staged -> expired is exposed here. Both
// are conditional and succeed only from STAGED, so two racing confirmation
// events cannot both win. Terminal entries are kept for idempotency lookups
// and never reused.
type StagingStore interface {
	Stage(ctx context.Context, staged StagedRegistration) error
	GetStaged(ctx context.Context, stagingKey string) (StagedRegistration, error)
	MarkStagingExpired(ctx context.Context, stagingKey string, registrationID string) error
	ListExpiredStaged(ctx context.Context, olderThan time.Time, limit int32) ([]StagedRegistration, error)
}
