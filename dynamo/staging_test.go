package dynamo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/summitworks/conference-registration/ptr"
	"github.com/summitworks/conference-registration/registration"
)

func testStaged(stagingKey string, registrationID string, email string) registration.StagedRegistration {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return registration.StagedRegistration{
		StagingKey: stagingKey,
		Payload: registration.RegistrationPayload{
			Email:        email,
			PasswordHash: "$2a$10$notarealhash",
			Profile: registration.Profile{
				FirstName: "Jane",
				LastName:  "Doe",
				Phone:     "+91 98765 43210",
			},
			Selection: registration.Selection{
				Category: "delegate",
			},
			Method:      registration.METHOD_PAY_NOW,
			PaymentType: registration.PAYMENT_TYPE_SELF_PAY,
			Amount:      money.New(1250000, money.INR),
		},
		RegistrationID: registrationID,
		Status:         registration.STAGING_STATUS_STAGED,
		CreatedAt:      now,
		ExpiresAt:      now.Add(30 * time.Minute),
	}
}

func TestStage(t *testing.T) {
	ctx := context.Background()

	t.Run("stages a registration and reserves its id", func(t *testing.T) {
		resetTable(ctx)

		staged := testStaged("pi_123", "CONF-000123", "jane.doe@example.com")
		require.NoError(t, db.Stage(ctx, staged))

		got, err := db.GetStaged(ctx, "pi_123")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(staged, got, moneyComparer))

		exists, err := db.RegistrationIDExists(ctx, "CONF-000123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("a staging key can only be written once", func(t *testing.T) {
		resetTable(ctx)

		require.NoError(t, db.Stage(ctx, testStaged("pi_123", "CONF-000123", "jane.doe@example.com")))

		err := db.Stage(ctx, testStaged("pi_123", "CONF-000456", "jane.doe@example.com"))
		require.Error(t, err)

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, registration.REASON_STAGING_CONFLICT, regErr.Reason)
	})

	t.Run("cannot reserve an id that is already held", func(t *testing.T) {
		resetTable(ctx)

		require.NoError(t, db.Stage(ctx, testStaged("pi_123", "CONF-000123", "jane.doe@example.com")))

		err := db.Stage(ctx, testStaged("pi_456", "CONF-000123", "john.roe@example.com"))
		require.Error(t, err)

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, registration.REASON_REGISTRATION_ID_CONFLICT, regErr.Reason)
	})
}

func TestGetStaged(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key is not found", func(t *testing.T) {
		resetTable(ctx)

		_, err := db.GetStaged(ctx, "pi_unknown")

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, registration.REASON_STAGING_NOT_FOUND, regErr.Reason)
	})
}

func TestMarkStagingExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("expires a staged entry and releases its id", func(t *testing.T) {
		resetTable(ctx)

		require.NoError(t, db.Stage(ctx, testStaged("pi_123", "CONF-000123", "jane.doe@example.com")))

		require.NoError(t, db.MarkStagingExpired(ctx, "pi_123", "CONF-000123"))

		got, err := db.GetStaged(ctx, "pi_123")
		require.NoError(t, err)
		assert.Equal(t, registration.STAGING_STATUS_EXPIRED, got.Status)

		exists, err := db.RegistrationIDExists(ctx, "CONF-000123")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("cannot expire an already committed entry", func(t *testing.T) {
		resetTable(ctx)

		record := testRecord("jane.doe@example.com", "CONF-000123")
		require.NoError(t, db.Stage(ctx, testStaged("pi_123", "CONF-000123", record.Email)))
		require.NoError(t, db.CreateRegistration(ctx, record, ptr.String("pi_123")))

		err := db.MarkStagingExpired(ctx, "pi_123", "CONF-000123")
		require.Error(t, err)

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, registration.REASON_STAGING_CONFLICT, regErr.Reason)

		// The id stays claimed by the committed registration.
		exists, err := db.RegistrationIDExists(ctx, "CONF-000123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("expiring twice fails the second time", func(t *testing.T) {
		resetTable(ctx)

		require.NoError(t, db.Stage(ctx, testStaged("pi_123", "CONF-000123", "jane.doe@example.com")))
		require.NoError(t, db.MarkStagingExpired(ctx, "pi_123", "CONF-000123"))

		err := db.MarkStagingExpired(ctx, "pi_123", "CONF-000123")
		require.Error(t, err)

		var regErr *registration.Error
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, registration.REASON_STAGING_CONFLICT, regErr.Reason)
	})
}

func TestListExpiredStaged(t *testing.T) {
	ctx := context.Background()

	t.Run("returns only entries past their expiry, oldest first", func(t *testing.T) {
		resetTable(ctx)

		now := time.Now().UTC().Truncate(time.Millisecond)

		overdue1 := testStaged("pi_old", "CONF-000001", "a@example.com")
		overdue1.ExpiresAt = now.Add(-time.Hour)
		overdue2 := testStaged("pi_older", "CONF-000002", "b@example.com")
		overdue2.ExpiresAt = now.Add(-2 * time.Hour)
		fresh := testStaged("pi_fresh", "CONF-000003", "c@example.com")
		fresh.ExpiresAt = now.Add(time.Hour)

		require.NoError(t, db.Stage(ctx, overdue1))
		require.NoError(t, db.Stage(ctx, overdue2))
		require.NoError(t, db.Stage(ctx, fresh))

		got, err := db.ListExpiredStaged(ctx, now, 25)
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, "pi_older", got[0].StagingKey)
		assert.Equal(t, "pi_old", got[1].StagingKey)
	})

	t.Run("settled entries drop out of the scan", func(t *testing.T) {
		resetTable(ctx)

		now := time.Now().UTC().Truncate(time.Millisecond)

		overdue := testStaged("pi_expired", "CONF-000001", "a@example.com")
		overdue.ExpiresAt = now.Add(-time.Hour)
		require.NoError(t, db.Stage(ctx, overdue))
		require.NoError(t, db.MarkStagingExpired(ctx, "pi_expired", "CONF-000001"))

		committedStaged := testStaged("pi_committed", "CONF-000002", "b@example.com")
		committedStaged.ExpiresAt = now.Add(-time.Hour)
		require.NoError(t, db.Stage(ctx, committedStaged))
		record := testRecord("b@example.com", "CONF-000002")
		require.NoError(t, db.CreateRegistration(ctx, record, ptr.String("pi_committed")))

		got, err := db.ListExpiredStaged(ctx, now, 25)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("respects the batch limit", func(t *testing.T) {
		resetTable(ctx)

		now := time.Now().UTC().Truncate(time.Millisecond)
		for i, key := range []string{"pi_a", "pi_b", "pi_c"} {
			staged := testStaged(key, fmt.Sprintf("CONF-00000%d", i), fmt.Sprintf("u%d@example.com", i))
			staged.ExpiresAt = now.Add(-time.Duration(i+1) * time.Hour)
			require.NoError(t, db.Stage(ctx, staged))
		}

		got, err := db.ListExpiredStaged(ctx, now, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
