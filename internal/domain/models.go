package domain

import (
	"time"

	"github.com/google/uuid"
)

type LicenseStatus string

const (
	LicenseStatusPending  LicenseStatus = "pending"
	LicenseStatusVerified LicenseStatus = "verified"
	LicenseStatusRejected LicenseStatus = "rejected"
)

type InsuranceStatus string

const (
	InsuranceStatusPending  InsuranceStatus = "pending"
	InsuranceStatusActive   InsuranceStatus = "active"
	InsuranceStatusExpired  InsuranceStatus = "expired"
	InsuranceStatusRejected InsuranceStatus = "rejected"
)

// Profile is the trust-relevant slice of a user's account.
type Profile struct {
	UserID             uuid.UUID
	Email              string
	EmailVerified      bool
	PhoneNumber        string
	PhoneVerified      bool
	PhotoVerified      bool
	Bio                string
	AvatarURL          string
	AverageRating      float64
	RatingCount        int
	RidesOffered       int
	RidesTaken         int
	TrustScore         *int
	TrustScoreComputed *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// HasVerifiedPhone requires both a number on file and the verification flag.
func (p Profile) HasVerifiedPhone() bool {
	return p.PhoneVerified && p.PhoneNumber != ""
}

// CompletedRides counts rides in either role.
func (p Profile) CompletedRides() int {
	return max(p.RidesOffered, 0) + max(p.RidesTaken, 0)
}

// AccountAgeDays returns whole days between account creation and asOf.
func (p Profile) AccountAgeDays(asOf time.Time) int {
	if p.CreatedAt.IsZero() || asOf.Before(p.CreatedAt) {
		return 0
	}
	return int(asOf.Sub(p.CreatedAt).Hours() / 24)
}

type DriverLicense struct {
	LicenseID              uuid.UUID
	UserID                 uuid.UUID
	Status                 LicenseStatus
	LicenseNumberEncrypted []byte
	ExpiryDate             time.Time
	DocumentKey            string
	RejectionReason        string
	SubmittedAt            time.Time
	ReviewedAt             *time.Time
	ReviewedBy             *uuid.UUID
}

type VehicleInsurance struct {
	InsuranceID     uuid.UUID
	UserID          uuid.UUID
	Status          InsuranceStatus
	Provider        string
	PolicyNumber    string
	ExpiryDate      time.Time
	DocumentKey     string
	RejectionReason string
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      *uuid.UUID
}

// ReliabilityScore is the cancellation-based aggregate maintained upstream.
type ReliabilityScore struct {
	UserID                  uuid.UUID
	TotalRides              int
	CompletedRides          int
	CancelledRides          int
	LastMinuteCancellations int
	CompletionRate          float64
	CancellationRate        float64
	Score                   int
	WarningCount            int
	IsInGracePeriod         bool
	GraceRidesRemaining     int
	UpdatedAt               time.Time
}

type BookingRestriction struct {
	RestrictionID   uuid.UUID
	UserID          uuid.UUID
	RestrictionType string
	Reason          string
	StartsAt        time.Time
	EndsAt          *time.Time
	Active          bool
	CreatedAt       time.Time
}

// ApplyRating folds one new rating into a running average.
func ApplyRating(average float64, count int, rating float64) (float64, int) {
	if count < 0 {
		count = 0
	}
	next := count + 1
	return (clampRating(average)*float64(count) + clampRating(rating)) / float64(next), next
}
