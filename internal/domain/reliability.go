package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	ReliabilityTierExcellent = "excellent"
	ReliabilityTierGood      = "good"
	ReliabilityTierFair      = "fair"
	ReliabilityTierPoor      = "poor"

	restrictionDateLayout = "Jan 2, 2006"
)

type GraceBanner struct {
	RidesRemaining int
	Message        string
}

type RestrictionView struct {
	RestrictionID uuid.UUID
	Type          string
	Reason        string
	StartsAt      time.Time
	EndsAt        *time.Time
	EndsAtDisplay string
	Description   string
}

type ReliabilityView struct {
	Score                   int
	Tier                    string
	TotalRides              int
	CompletedRides          int
	CancelledRides          int
	LastMinuteCancellations int
	WarningCount            int
	CompletionPercent       float64
	CancellationPercent     float64
	GraceBanner             *GraceBanner
	Restricted              bool
	Restrictions            []RestrictionView
	UpdatedAt               time.Time
}

// NewReliabilityScore is the aggregate of a user with no ride history.
func NewReliabilityScore(userID uuid.UUID) ReliabilityScore {
	return ReliabilityScore{UserID: userID, Score: 100}
}

// FormatReliability projects the upstream aggregate and restrictions into a
// display structure. Restrictions that are inactive, not yet started or
// already ended at asOf are omitted.
func FormatReliability(score ReliabilityScore, restrictions []BookingRestriction, asOf time.Time) ReliabilityView {
	view := ReliabilityView{
		Score:                   clamp(score.Score, 0, 100),
		TotalRides:              max(score.TotalRides, 0),
		CompletedRides:          max(score.CompletedRides, 0),
		CancelledRides:          max(score.CancelledRides, 0),
		LastMinuteCancellations: max(score.LastMinuteCancellations, 0),
		WarningCount:            max(score.WarningCount, 0),
		CompletionPercent:       ratioToPercent(score.CompletionRate),
		CancellationPercent:     ratioToPercent(score.CancellationRate),
		UpdatedAt:               score.UpdatedAt,
		Restrictions:            make([]RestrictionView, 0, len(restrictions)),
	}
	view.Tier = ReliabilityTier(view.Score)

	if score.IsInGracePeriod {
		remaining := max(score.GraceRidesRemaining, 0)
		view.GraceBanner = &GraceBanner{
			RidesRemaining: remaining,
			Message:        graceMessage(remaining),
		}
	}

	for _, r := range restrictions {
		if !restrictionInEffect(r, asOf) {
			continue
		}
		view.Restrictions = append(view.Restrictions, toRestrictionView(r))
	}
	sort.SliceStable(view.Restrictions, func(i, j int) bool {
		return view.Restrictions[i].StartsAt.Before(view.Restrictions[j].StartsAt)
	})
	view.Restricted = len(view.Restrictions) > 0
	return view
}

func ReliabilityTier(score int) string {
	switch {
	case score >= 90:
		return ReliabilityTierExcellent
	case score >= 75:
		return ReliabilityTierGood
	case score >= 50:
		return ReliabilityTierFair
	default:
		return ReliabilityTierPoor
	}
}

func ratioToPercent(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return math.Round(ratio*1000) / 10
}

func graceMessage(remaining int) string {
	if remaining == 1 {
		return "You are in a grace period: 1 ride remaining before cancellations affect your reliability score."
	}
	return fmt.Sprintf("You are in a grace period: %d rides remaining before cancellations affect your reliability score.", remaining)
}

func restrictionInEffect(r BookingRestriction, asOf time.Time) bool {
	if !r.Active {
		return false
	}
	if !r.StartsAt.IsZero() && asOf.Before(r.StartsAt) {
		return false
	}
	return r.EndsAt == nil || asOf.Before(*r.EndsAt)
}

func toRestrictionView(r BookingRestriction) RestrictionView {
	out := RestrictionView{
		RestrictionID: r.RestrictionID,
		Type:          r.RestrictionType,
		Reason:        r.Reason,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		EndsAtDisplay: "until further notice",
	}
	if r.EndsAt != nil {
		out.EndsAtDisplay = r.EndsAt.UTC().Format(restrictionDateLayout)
	}
	label := restrictionLabel(r.RestrictionType)
	if r.EndsAt != nil {
		out.Description = fmt.Sprintf("%s until %s", label, out.EndsAtDisplay)
	} else {
		out.Description = fmt.Sprintf("%s %s", label, out.EndsAtDisplay)
	}
	if r.Reason != "" {
		out.Description += ": " + r.Reason
	}
	return out
}

func restrictionLabel(restrictionType string) string {
	switch restrictionType {
	case "booking_suspended":
		return "Booking suspended"
	case "instant_booking_disabled":
		return "Instant booking disabled"
	case "warning":
		return "Warning in effect"
	case "":
		return "Booking restricted"
	default:
		return "Restriction (" + restrictionType + ")"
	}
}
