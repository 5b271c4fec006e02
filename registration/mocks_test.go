package registration

import (
	"context"
	"log/slog"
	"time"

	"github.com/summitworks/conference-registration/payments"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ Repository = &mockRepository{}

type mockRepository struct {
	CreateRegistrationFunc       func(ctx context.Context, record RegistrationRecord, stagingKey *string) error
	GetRegistrationByEmailFunc   func(ctx context.Context, email string) (RegistrationRecord, error)
	RegistrationIDExistsFunc     func(ctx context.Context, registrationID string) (bool, error)
	GetAllRegistrationsFunc      func(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error)
	MarkRegistrationConfirmedFunc func(ctx context.Context, email string) error
}

func (m *mockRepository) CreateRegistration(ctx context.Context, record RegistrationRecord, stagingKey *string) error {
	if m.CreateRegistrationFunc != nil {
		return m.CreateRegistrationFunc(ctx, record, stagingKey)
	}
	return nil
}

func (m *mockRepository) GetRegistrationByEmail(ctx context.Context, email string) (RegistrationRecord, error) {
	if m.GetRegistrationByEmailFunc != nil {
		return m.GetRegistrationByEmailFunc(ctx, email)
	}
	return RegistrationRecord{}, NewRegistrationDoesNotExistError("not found", nil)
}

func (m *mockRepository) RegistrationIDExists(ctx context.Context, registrationID string) (bool, error) {
	if m.RegistrationIDExistsFunc != nil {
		return m.RegistrationIDExistsFunc(ctx, registrationID)
	}
	return false, nil
}

func (m *mockRepository) GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error) {
	if m.GetAllRegistrationsFunc != nil {
		return m.GetAllRegistrationsFunc(ctx, limit, cursor)
	}
	return GetAllRegistrationsResponse{}, nil
}

func (m *mockRepository) MarkRegistrationConfirmed(ctx context.Context, email string) error {
	if m.MarkRegistrationConfirmedFunc != nil {
		return m.MarkRegistrationConfirmedFunc(ctx, email)
	}
	return nil
}

var _ StagingStore = &mockStagingStore{}

type mockStagingStore struct {
	StageFunc              func(ctx context.Context, staged StagedRegistration) error
	GetStagedFunc          func(ctx context.Context, stagingKey string) (StagedRegistration, error)
	MarkStagingExpiredFunc func(ctx context.Context, stagingKey string, registrationID string) error
	ListExpiredStagedFunc  func(ctx context.Context, olderThan time.Time, limit int32) ([]StagedRegistration, error)
}

func (m *mockStagingStore) Stage(ctx context.Context, staged StagedRegistration) error {
	if m.StageFunc != nil {
		return m.StageFunc(ctx, staged)
	}
	return nil
}

func (m *mockStagingStore) GetStaged(ctx context.Context, stagingKey string) (StagedRegistration, error) {
	if m.GetStagedFunc != nil {
		return m.GetStagedFunc(ctx, stagingKey)
	}
	return StagedRegistration{}, NewStagingNotFoundError("not found", nil)
}

func (m *mockStagingStore) MarkStagingExpired(ctx context.Context, stagingKey string, registrationID string) error {
	if m.MarkStagingExpiredFunc != nil {
		return m.MarkStagingExpiredFunc(ctx, stagingKey, registrationID)
	}
	return nil
}

func (m *mockStagingStore) ListExpiredStaged(ctx context.Context, olderThan time.Time, limit int32) ([]StagedRegistration, error) {
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
	return payments.Order{}, nil
}

func (m *mockGateway) VerifyPayment(ctx context.Context, orderID string) (payments.PaymentState, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, orderID)
	}
	return payments.PAYMENT_STATE_PENDING, nil
}

var _ ConfirmationNotifier = &mockNotifier{}

type mockNotifier struct {
	SendFunc func(ctx context.Context, record RegistrationRecord) error
}

func (m *mockNotifier) Send(ctx context.Context, record RegistrationRecord) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, record)
	}
	return nil
}
