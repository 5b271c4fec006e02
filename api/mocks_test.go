package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/summitworks/conference-registration/payments"
	"github.com/summitworks/conference-registration/registration"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ DB = &mockDB{}

type mockDB struct {
	CreateRegistrationFunc        func(ctx context.Context, record registration.RegistrationRecord, stagingKey *string) error
	GetRegistrationByEmailFunc    func(ctx context.Context, email string) (registration.RegistrationRecord, error)
	RegistrationIDExistsFunc      func(ctx context.Context, registrationID string) (bool, error)
	GetAllRegistrationsFunc       func(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error)
	MarkRegistrationConfirmedFunc func(ctx context.Context, email string) error
	StageFunc                     func(ctx context.Context, staged registration.StagedRegistration) error
	GetStagedFunc                 func(ctx context.Context, stagingKey string) (registration.StagedRegistration, error)
	MarkStagingExpiredFunc        func(ctx context.Context, stagingKey string, registrationID string) error
	ListExpiredStagedFunc         func(ctx context.Context, olderThan time.Time, limit int32) ([]registration.StagedRegistration, error)
}

func (m *mockDB) CreateRegistration(ctx context.Context, record registration.RegistrationRecord, stagingKey *string) error {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, record, stagingKey)
	}
	return nil
}

func (m *mockDB) GetRegistrationByEmail(ctx context.Context, email string) (registration.RegistrationRecord, error) {
	if m.GetRegistrationByEmailFunc != nil {
		return m.GetRegistrationByEmailFunc(ctx, email)
	}
	return registration.RegistrationRecord{}, registration.NewRegistrationDoesNotExistError("not found", nil)
}

func (m *mockDB) RegistrationIDExists(ctx context.Context, registrationID string) (bool, error) {
	if m.RegistrationIDExistsFunc != nil {
		return m.RegistrationIDExistsFunc(ctx, registrationID)
	}
	return false, nil
}

func (m *mockDB) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (registration.GetAllRegistrationsResponse, error) {
	if m.GetAllRegistrationsFunc != nil {
		return m.GetAllRegistrationsFunc(ctx, limit, cursor)
	}
	return registration.GetAllRegistrationsResponse{}, nil
}

func (m *mockDB) MarkRegistrationConfirmed(ctx context.Context, email string) error {
	if m.MarkRegistrationConfirmedFunc != nil {
		return m.MarkRegistrationConfirmedFunc(ctx, email)
	}
	return nil
}

func (m *mockDB) Stage(ctx context.Context, staged registration.StagedRegistration) error {
	if m.StageFunc != nil {
		return m.StageFunc(ctx, staged)
	}
	return nil
}

func (m *mockDB) GetStaged(ctx context.Context, stagingKey string) (registration.StagedRegistration, error) {
	if m.GetStagedFunc != nil {
		return m.GetStagedFunc(ctx, stagingKey)
	}
	return registration.StagedRegistration{}, registration.NewStagingNotFoundError("not found", nil)
}

func (m *mockDB) MarkStagingExpired(ctx context.Context, stagingKey string, registrationID string) error {
	if m.MarkStagingExpiredFunc != nil {
		return m.MarkStagingExpiredFunc(ctx, stagingKey, registrationID)
	}
	return nil
}

func (m *mockDB) ListExpiredStaged(ctx context.Context, olderThan time.Time, limit int32) ([]registration.StagedRegistration, error) {
	if m.ListExpiredStagedFunc != nil {
		return m.ListExpiredStagedFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

var _ payments.Gateway = &mockGateway{}

type mockGateway struct {
	CreateOrderFunc   func(ctx context.Context, params payments.OrderParams) (payments.Order, error)
	VerifyPaymentFunc func(ctx context.Context, orderID string) (payments.PaymentState, error)
}

func (m *mockGateway) CreateOrder(ctx context.Context, params payments.OrderParams) (payments.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}
	return payments.Order{ID: "pi_test", Amount: params.Amount, ClientKey: "pi_test_secret"}, nil
}

func (m *mockGateway) VerifyPayment(ctx context.Context, orderID string) (payments.PaymentState, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, orderID)
	}
	return payments.PAYMENT_STATE_PENDING, nil
}

type mockNotifier struct {
	SendFunc func(ctx context.Context, record registration.RegistrationRecord) error
}

func (m *mockNotifier) Send(ctx context.Context, record registration.RegistrationRecord) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, record)
	}
	return nil
}

const testWebhookPath = "/webhooks/payment"

func newTestAPI(db *mockDB, gateway *mockGateway, notifier *mockNotifier) *API {
	allocator := registration.NewAllocator(db, "CONF-", registration.DefaultAllocationAttempts)
	committer := registration.NewCommitter(db, notifier, noopLogger, nil)
	coordinator := registration.NewCoordinator(allocator, committer, db, gateway, db, 30*time.Minute, noopLogger)

	return NewAPI(db, coordinator, noopLogger, LOCAL, "")
}
