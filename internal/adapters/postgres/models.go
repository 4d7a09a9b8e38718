package postgres

import (
	"time"

	"github.com/google/uuid"
)

type trustProfileModel struct {
	UserID             uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Email              string     `gorm:"column:email"`
	EmailVerified      bool       `gorm:"column:email_verified"`
	PhoneNumber        string     `gorm:"column:phone_number"`
	PhoneVerified      bool       `gorm:"column:phone_verified"`
	PhotoVerified      bool       `gorm:"column:photo_verified"`
	Bio                string     `gorm:"column:bio"`
	AvatarURL          string     `gorm:"column:avatar_url"`
	AverageRating      float64    `gorm:"column:average_rating"`
	RatingCount        int        `gorm:"column:rating_count"`
	RidesOffered       int        `gorm:"column:rides_offered"`
	RidesTaken         int        `gorm:"column:rides_taken"`
	TrustScore         *int       `gorm:"column:trust_score"`
	TrustScoreComputed *time.Time `gorm:"column:trust_score_computed_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
	DeletedAt          *time.Time `gorm:"column:deleted_at"`
}

func (trustProfileModel) TableName() string { return "trust_profiles" }

type driverLicenseModel struct {
	LicenseID              uuid.UUID  `gorm:"column:license_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                 uuid.UUID  `gorm:"column:user_id"`
	Status                 string     `gorm:"column:status"`
	LicenseNumberEncrypted []byte     `gorm:"column:license_number_encrypted"`
	ExpiryDate             time.Time  `gorm:"column:expiry_date;type:date"`
	DocumentKey            string     `gorm:"column:document_key"`
	RejectionReason        string     `gorm:"column:rejection_reason"`
	SubmittedAt            time.Time  `gorm:"column:submitted_at"`
	ReviewedAt             *time.Time `gorm:"column:reviewed_at"`
	ReviewedBy             *uuid.UUID `gorm:"column:reviewed_by"`
}

func (driverLicenseModel) TableName() string { return "driver_licenses" }

type vehicleInsuranceModel struct {
	InsuranceID     uuid.UUID  `gorm:"column:insurance_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id"`
	Status          string     `gorm:"column:status"`
	Provider        string     `gorm:"column:provider"`
	PolicyNumber    string     `gorm:"column:policy_number"`
	ExpiryDate      time.Time  `gorm:"column:expiry_date;type:date"`
	DocumentKey     string     `gorm:"column:document_key"`
	RejectionReason string     `gorm:"column:rejection_reason"`
	SubmittedAt     time.Time  `gorm:"column:submitted_at"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at"`
	ReviewedBy      *uuid.UUID `gorm:"column:reviewed_by"`
}

func (vehicleInsuranceModel) TableName() string { return "vehicle_insurances" }

type reliabilityScoreModel struct {
	UserID                  uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	TotalRides              int       `gorm:"column:total_rides"`
	CompletedRides          int       `gorm:"column:completed_rides"`
	CancelledRides          int       `gorm:"column:cancelled_rides"`
	LastMinuteCancellations int       `gorm:"column:last_minute_cancellations"`
	CompletionRate          float64   `gorm:"column:completion_rate"`
	CancellationRate        float64   `gorm:"column:cancellation_rate"`
	ReliabilityScore        int       `gorm:"column:reliability_score"`
	WarningCount            int       `gorm:"column:warning_count"`
	IsInGracePeriod         bool      `gorm:"column:is_in_grace_period"`
	GraceRidesRemaining     int       `gorm:"column:grace_rides_remaining"`
	UpdatedAt               time.Time `gorm:"column:updated_at"`
}

func (reliabilityScoreModel) TableName() string { return "reliability_scores" }

type bookingRestrictionModel struct {
	RestrictionID   uuid.UUID  `gorm:"column:restriction_id;type:uuid;primaryKey"`
	UserID          uuid.UUID  `gorm:"column:user_id"`
	RestrictionType string     `gorm:"column:restriction_type"`
	Reason          string     `gorm:"column:reason"`
	StartsAt        time.Time  `gorm:"column:starts_at"`
	EndsAt          *time.Time `gorm:"column:ends_at"`
	IsActive        bool       `gorm:"column:is_active"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

func (bookingRestrictionModel) TableName() string { return "booking_restrictions" }

type trustOutboxModel struct {
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload;type:jsonb"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	TraceID          string     `gorm:"column:trace_id"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (trustOutboxModel) TableName() string { return "trust_outbox" }

type trustIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (trustIdempotencyModel) TableName() string { return "trust_idempotency" }

type trustEventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (trustEventDedupModel) TableName() string { return "trust_event_dedup" }
