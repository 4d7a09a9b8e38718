package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFormatReliabilityPercentagesAndTier(t *testing.T) {
	t.Parallel()

	view := FormatReliability(ReliabilityScore{
		TotalRides:       40,
		CompletedRides:   37,
		CancelledRides:   3,
		CompletionRate:   0.925,
		CancellationRate: 0.075,
		Score:            88,
	}, nil, testToday)

	require.Equal(t, 88, view.Score)
	require.Equal(t, ReliabilityTierGood, view.Tier)
	require.InDelta(t, 92.5, view.CompletionPercent, 0.001)
	require.InDelta(t, 7.5, view.CancellationPercent, 0.001)
	require.Nil(t, view.GraceBanner)
	require.False(t, view.Restricted)
	require.Empty(t, view.Restrictions)
}

func TestFormatReliabilityClampsOutOfRange(t *testing.T) {
	t.Parallel()

	view := FormatReliability(ReliabilityScore{
		CompletionRate:   1.7,
		CancellationRate: -0.2,
		Score:            140,
		CancelledRides:   -4,
	}, nil, testToday)

	require.Equal(t, 100, view.Score)
	require.Equal(t, 100.0, view.CompletionPercent)
	require.Equal(t, 0.0, view.CancellationPercent)
	require.Zero(t, view.CancelledRides)
}

func TestFormatReliabilityGraceBanner(t *testing.T) {
	t.Parallel()

	view := FormatReliability(ReliabilityScore{Score: 100, IsInGracePeriod: true, GraceRidesRemaining: 3}, nil, testToday)
	require.NotNil(t, view.GraceBanner)
	require.Equal(t, 3, view.GraceBanner.RidesRemaining)
	require.Contains(t, view.GraceBanner.Message, "3 rides remaining")

	single := FormatReliability(ReliabilityScore{IsInGracePeriod: true, GraceRidesRemaining: 1}, nil, testToday)
	require.Contains(t, single.GraceBanner.Message, "1 ride remaining")

	notInGrace := FormatReliability(ReliabilityScore{GraceRidesRemaining: 5}, nil, testToday)
	require.Nil(t, notInGrace.GraceBanner)
}

func TestFormatReliabilityRestrictions(t *testing.T) {
	t.Parallel()

	ends := time.Date(2026, time.April, 2, 12, 0, 0, 0, time.UTC)
	ended := testToday.Add(-time.Hour)
	future := testToday.Add(48 * time.Hour)
	restrictions := []BookingRestriction{
		{RestrictionID: uuid.New(), RestrictionType: "booking_suspended", Reason: "3 last-minute cancellations", StartsAt: testToday.AddDate(0, 0, -2), EndsAt: &ends, Active: true},
		{RestrictionID: uuid.New(), RestrictionType: "warning", StartsAt: testToday.AddDate(0, 0, -5), Active: true},
		{RestrictionID: uuid.New(), RestrictionType: "booking_suspended", StartsAt: testToday.AddDate(0, 0, -9), EndsAt: &ended, Active: true},
		{RestrictionID: uuid.New(), RestrictionType: "booking_suspended", StartsAt: testToday.AddDate(0, 0, -1), Active: false},
		{RestrictionID: uuid.New(), RestrictionType: "warning", StartsAt: future, Active: true},
	}

	view := FormatReliability(NewReliabilityScore(uuid.New()), restrictions, testToday)

	require.True(t, view.Restricted)
	require.Len(t, view.Restrictions, 2)
	require.Equal(t, "warning", view.Restrictions[0].Type)
	require.Equal(t, "until further notice", view.Restrictions[0].EndsAtDisplay)
	require.Equal(t, "Apr 2, 2026", view.Restrictions[1].EndsAtDisplay)
	require.Equal(t, "Booking suspended until Apr 2, 2026: 3 last-minute cancellations", view.Restrictions[1].Description)
}

func TestNewReliabilityScoreIsFresh(t *testing.T) {
	t.Parallel()

	view := FormatReliability(NewReliabilityScore(uuid.New()), nil, testToday)
	require.Equal(t, 100, view.Score)
	require.Equal(t, ReliabilityTierExcellent, view.Tier)
	require.Zero(t, view.TotalRides)
}

func TestReliabilityTierBoundaries(t *testing.T) {
	t.Parallel()

	require.Equal(t, ReliabilityTierExcellent, ReliabilityTier(90))
	require.Equal(t, ReliabilityTierGood, ReliabilityTier(89))
	require.Equal(t, ReliabilityTierGood, ReliabilityTier(75))
	require.Equal(t, ReliabilityTierFair, ReliabilityTier(50))
	require.Equal(t, ReliabilityTierPoor, ReliabilityTier(49))
}
