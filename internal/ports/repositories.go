package ports

import (
	"context"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
)

type CreateProfileParams struct {
	UserID        uuid.UUID
	Email         string
	EmailVerified bool
	CreatedAt     time.Time
}

type VerificationFlagsParams struct {
	UserID        uuid.UUID
	EmailVerified *bool
	PhoneNumber   *string
	PhoneVerified *bool
	PhotoVerified *bool
	UpdatedAt     time.Time
}

type RecordRideParams struct {
	UserID    uuid.UUID
	AsDriver  bool
	Rating    *float64
	UpdatedAt time.Time
}

type UpsertLicenseParams struct {
	UserID                 uuid.UUID
	LicenseNumberEncrypted []byte
	ExpiryDate             time.Time
	DocumentKey            string
	SubmittedAt            time.Time
}

type CreateInsuranceParams struct {
	UserID       uuid.UUID
	Provider     string
	PolicyNumber string
	ExpiryDate   time.Time
	DocumentKey  string
	SubmittedAt  time.Time
}

type ReviewParams struct {
	Reason     string
	ReviewedAt time.Time
	ReviewedBy uuid.UUID
}

type ProfileRepository interface {
	CreateIfMissing(ctx context.Context, params CreateProfileParams) (domain.Profile, bool, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Profile, error)
	UpdateVerificationFlags(ctx context.Context, params VerificationFlagsParams) (domain.Profile, error)
	RecordCompletedRide(ctx context.Context, params RecordRideParams) (domain.Profile, error)
	SaveTrustScore(ctx context.Context, userID uuid.UUID, score int, computedAt time.Time) error
	SoftDeleteByUserID(ctx context.Context, userID uuid.UUID, deletedAt time.Time) error
}

type LicenseRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.DriverLicense, error)
	Upsert(ctx context.Context, params UpsertLicenseParams) (domain.DriverLicense, error)
	// UpdateStatus moves a pending license to status. Any other current
	// status yields domain.ErrConflict.
	UpdateStatus(ctx context.Context, userID uuid.UUID, status domain.LicenseStatus, review ReviewParams) (domain.DriverLicense, error)
	ListPending(ctx context.Context, limit, offset int) ([]domain.DriverLicense, error)
}

type InsuranceRepository interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.VehicleInsurance, error)
	GetByID(ctx context.Context, insuranceID uuid.UUID) (domain.VehicleInsurance, error)
	Create(ctx context.Context, params CreateInsuranceParams) (domain.VehicleInsurance, error)
	UpdateStatus(ctx context.Context, insuranceID uuid.UUID, status domain.InsuranceStatus, review ReviewParams) (domain.VehicleInsurance, error)
}

type ReliabilityRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (domain.ReliabilityScore, error)
	Upsert(ctx context.Context, score domain.ReliabilityScore) error
	ListActiveRestrictions(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.BookingRestriction, error)
	CreateRestriction(ctx context.Context, restriction domain.BookingRestriction) error
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
	TraceID          string
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	Status       string
	ResponseBody []byte
	ExpiresAt    time.Time
}

// IdempotencyRepository tracks client supplied Idempotency-Key values.
// Get returns nil for keys that are unknown or past their expiry.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseBody []byte, at time.Time) error
	Release(ctx context.Context, key string) error
}
