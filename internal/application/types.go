package application

import (
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
)

type Config struct {
	ServiceName           string
	TrustScoreCacheTTL    time.Duration
	RefreshLimitPerMinute int
	IdempotencyTTL        time.Duration
	EventDedupTTL         time.Duration
	PendingQueueLimit     int
}

type TrustCategoryView struct {
	Key    string `json:"key"`
	Earned int    `json:"earned"`
	Cap    int    `json:"cap"`
	Status string `json:"status"`
}

type TrustScoreResponse struct {
	UserID            string              `json:"user_id"`
	Total             int                 `json:"total"`
	Max               int                 `json:"max"`
	Incomplete        bool                `json:"incomplete"`
	UnknownCategories []string            `json:"unknown_categories,omitempty"`
	Categories        []TrustCategoryView `json:"categories"`
	CalculatedAt      time.Time           `json:"calculated_at"`
	PersistedScore    *int                `json:"persisted_score,omitempty"`
	PersistedAt       *time.Time          `json:"persisted_at,omitempty"`
}

type GraceBannerView struct {
	RidesRemaining int    `json:"rides_remaining"`
	Message        string `json:"message"`
}

type RestrictionView struct {
	RestrictionID string     `json:"restriction_id"`
	Type          string     `json:"type"`
	Reason        string     `json:"reason,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	EndsAtDisplay string     `json:"ends_at_display"`
	Description   string     `json:"description"`
}

type ReliabilityResponse struct {
	UserID                  string            `json:"user_id"`
	Score                   int               `json:"score"`
	Tier                    string            `json:"tier"`
	TotalRides              int               `json:"total_rides"`
	CompletedRides          int               `json:"completed_rides"`
	CancelledRides          int               `json:"cancelled_rides"`
	LastMinuteCancellations int               `json:"last_minute_cancellations"`
	WarningCount            int               `json:"warning_count"`
	CompletionPercent       float64           `json:"completion_percent"`
	CancellationPercent     float64           `json:"cancellation_percent"`
	GracePeriod             *GraceBannerView  `json:"grace_period,omitempty"`
	Restricted              bool              `json:"restricted"`
	Restrictions            []RestrictionView `json:"restrictions"`
	UpdatedAt               *time.Time        `json:"updated_at,omitempty"`
}

type AchievementView struct {
	Key      string `json:"key"`
	Unlocked bool   `json:"unlocked"`
	Progress int    `json:"progress"`
	Target   int    `json:"target"`
}

type AchievementsResponse struct {
	UserID       string            `json:"user_id"`
	Incomplete   bool              `json:"incomplete"`
	Achievements []AchievementView `json:"achievements"`
}

type CompletenessResponse struct {
	UserID  string   `json:"user_id"`
	Percent int      `json:"percent"`
	Missing []string `json:"missing"`
}

type SubmitLicenseRequest struct {
	LicenseNumber string `json:"license_number"`
	ExpiryDate    string `json:"expiry_date"`
	DocumentKey   string `json:"document_key,omitempty"`
}

type SubmitInsuranceRequest struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	ExpiryDate   string `json:"expiry_date"`
	DocumentKey  string `json:"document_key,omitempty"`
}

type LicenseView struct {
	UserID              string     `json:"user_id"`
	Status              string     `json:"status"`
	LicenseNumberMasked string     `json:"license_number_masked,omitempty"`
	ExpiryDate          string     `json:"expiry_date"`
	DocumentKey         string     `json:"document_key,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
	SubmittedAt         time.Time  `json:"submitted_at"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty"`
}

type InsuranceView struct {
	InsuranceID     string     `json:"insurance_id"`
	Status          string     `json:"status"`
	Provider        string     `json:"provider"`
	PolicyNumber    string     `json:"policy_number"`
	ExpiryDate      string     `json:"expiry_date"`
	DocumentKey     string     `json:"document_key,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}

type DocumentsResponse struct {
	License   *LicenseView    `json:"license,omitempty"`
	Insurance []InsuranceView `json:"insurance"`
}

type VerificationFlagsRequest struct {
	EmailVerified *bool   `json:"email_verified,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	PhoneVerified *bool   `json:"phone_verified,omitempty"`
	PhotoVerified *bool   `json:"photo_verified,omitempty"`
}

type AdminReviewRequest struct {
	ActorID uuid.UUID
	Reason  string
}

func toTrustScoreResponse(userID uuid.UUID, score domain.TrustScore, profile *domain.Profile) TrustScoreResponse {
	resp := TrustScoreResponse{
		UserID:       userID.String(),
		Total:        score.Total,
		Max:          score.Max,
		Incomplete:   score.Incomplete,
		Categories:   make([]TrustCategoryView, 0, len(score.Categories)),
		CalculatedAt: score.CalculatedAt,
	}
	for _, key := range score.UnknownCategories {
		resp.UnknownCategories = append(resp.UnknownCategories, string(key))
	}
	for _, c := range score.Categories {
		resp.Categories = append(resp.Categories, TrustCategoryView{
			Key:    string(c.Key),
			Earned: c.Earned,
			Cap:    c.Cap,
			Status: string(c.Status),
		})
	}
	if profile != nil {
		resp.PersistedScore = profile.TrustScore
		resp.PersistedAt = profile.TrustScoreComputed
	}
	return resp
}

func toReliabilityResponse(userID uuid.UUID, view domain.ReliabilityView) ReliabilityResponse {
	resp := ReliabilityResponse{
		UserID:                  userID.String(),
		Score:                   view.Score,
		Tier:                    view.Tier,
		TotalRides:              view.TotalRides,
		CompletedRides:          view.CompletedRides,
		CancelledRides:          view.CancelledRides,
		LastMinuteCancellations: view.LastMinuteCancellations,
		WarningCount:            view.WarningCount,
		CompletionPercent:       view.CompletionPercent,
		CancellationPercent:     view.CancellationPercent,
		Restricted:              view.Restricted,
		Restrictions:            make([]RestrictionView, 0, len(view.Restrictions)),
	}
	if !view.UpdatedAt.IsZero() {
		updated := view.UpdatedAt
		resp.UpdatedAt = &updated
	}
	if view.GraceBanner != nil {
		resp.GracePeriod = &GraceBannerView{
			RidesRemaining: view.GraceBanner.RidesRemaining,
			Message:        view.GraceBanner.Message,
		}
	}
	for _, r := range view.Restrictions {
		resp.Restrictions = append(resp.Restrictions, RestrictionView{
			RestrictionID: r.RestrictionID.String(),
			Type:          r.Type,
			Reason:        r.Reason,
			StartsAt:      r.StartsAt,
			EndsAt:        r.EndsAt,
			EndsAtDisplay: r.EndsAtDisplay,
			Description:   r.Description,
		})
	}
	return resp
}

func toInsuranceView(ins domain.VehicleInsurance) InsuranceView {
	return InsuranceView{
		InsuranceID:     ins.InsuranceID.String(),
		Status:          string(ins.Status),
		Provider:        ins.Provider,
		PolicyNumber:    ins.PolicyNumber,
		ExpiryDate:      ins.ExpiryDate.Format(time.DateOnly),
		DocumentKey:     ins.DocumentKey,
		RejectionReason: ins.RejectionReason,
		SubmittedAt:     ins.SubmittedAt,
		ReviewedAt:      ins.ReviewedAt,
	}
}
