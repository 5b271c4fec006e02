package registration

import (
	"context"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("github.com/summitworks/conference-registration/registration")

type Status string

const (
	STATUS_PENDING   Status = "PENDING"
	STATUS_CONFIRMED Status = "CONFIRMED"
	STATUS_CANCELLED Status = "CANCELLED"
)

type PaymentType string

const (
	PAYMENT_TYPE_SELF_PAY      PaymentType = "SELF_PAY"
	PAYMENT_TYPE_COMPLIMENTARY PaymentType = "COMPLIMENTARY"
	PAYMENT_TYPE_SPONSORED     PaymentType = "SPONSORED"
)

type PaymentMethod string

const (
	METHOD_PAY_NOW       PaymentMethod = "PAY_NOW"
	METHOD_BANK_TRANSFER PaymentMethod = "BANK_TRANSFER"
	METHOD_COMPLIMENTARY PaymentMethod = "COMPLIMENTARY"
	METHOD_SPONSORED     PaymentMethod = "SPONSORED"
)

type PaymentStatus string

const (
	PAYMENT_STATUS_PENDING PaymentStatus = "PENDING"
	PAYMENT_STATUS_PAID    PaymentStatus = "PAID"
	PAYMENT_STATUS_FAILED  PaymentStatus = "FAILED"
)

type Profile struct {
	FirstName   string
	LastName    string
	Phone       string
	Institution string
	MCINumber   string
	Address     Address
}

type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

type Selection struct {
	Category            string
	Workshops           []string
	AccompanyingPersons int
}

type PaymentDetails struct {
	Method PaymentMethod
	Status PaymentStatus
	Amount *money.Money
}

// RegistrationRecord is the durable attendee entry. It is created exactly
// once per (email, registrationId) by the Committer; nothing else writes it.
type RegistrationRecord struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	Profile        Profile
	Selection      Selection
	RegistrationID string
	Status         Status
	PaymentType    PaymentType
	Payment        PaymentDetails
	CreatedAt      time.Time
}

type GetAllRegistrationsResponse struct {
	Data        []RegistrationRecord
	Cursor      *string
	HasNextPage bool
}

type Repository interface {
	// CreateRegistration persists the record, claims its registration id,
	// and, when stagingKey is given, transitions that staged entry to
	// committed. All of it happens in one conditional transaction.
	CreateRegistration(ctx context.Context, record RegistrationRecord, stagingKey *string) error
	GetRegistrationByEmail(ctx context.Context, email string) (RegistrationRecord, error)
	RegistrationIDExists(ctx context.Context, registrationID string) (bool, error)
	GetAllRegistrations(ctx context.Context, limit int32, cursor *string) (GetAllRegistrationsResponse, error)
	MarkRegistrationConfirmed(ctx context.Context, email string) error
}

// CanTransition reports whether a registration status change is legal.
// Records are born PENDING (bank transfer) or CONFIRMED (paid gateway,
// complimentary, sponsored); after creation only PENDING may move.
func CanTransition(from, to Status) bool {
	if from != STATUS_PENDING {
		return false
	}
	return to == STATUS_CONFIRMED || to == STATUS_CANCELLED
}
