package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func achievementByKey(t *testing.T, list []Achievement, key AchievementKey) Achievement {
	t.Helper()
	for _, a := range list {
		if a.Key == key {
			return a
		}
	}
	t.Fatalf("achievement %s not found", key)
	return Achievement{}
}

func TestEvaluateAchievementsFullyVerified(t *testing.T) {
	t.Parallel()

	facts := fullyVerifiedFacts()
	list := EvaluateAchievements(facts, CalculateTrustScore(facts, testToday))

	require.True(t, achievementByKey(t, list, AchievementFirstRide).Unlocked)
	require.False(t, achievementByKey(t, list, AchievementRegularCommuter).Unlocked)
	require.Equal(t, 20, achievementByKey(t, list, AchievementRegularCommuter).Progress)
	require.True(t, achievementByKey(t, list, AchievementTopRated).Unlocked)
	require.True(t, achievementByKey(t, list, AchievementVerifiedIdentity).Unlocked)
	require.True(t, achievementByKey(t, list, AchievementVerifiedDriver).Unlocked)
	require.True(t, achievementByKey(t, list, AchievementTrustedMember).Unlocked)
	require.False(t, achievementByKey(t, list, AchievementOneYearMember).Unlocked)
}

func TestEvaluateAchievementsNewUser(t *testing.T) {
	t.Parallel()

	list := EvaluateAchievements(TrustFacts{}, CalculateTrustScore(TrustFacts{}, testToday))
	require.Len(t, list, 8)
	for _, a := range list {
		require.False(t, a.Unlocked, "achievement %s", a.Key)
		require.Zero(t, a.Progress)
	}
}

func TestEvaluateAchievementsIncompleteScoreKeepsTrustedLocked(t *testing.T) {
	t.Parallel()

	facts := fullyVerifiedFacts()
	facts.CompletedRides = Failed[int](errors.New("rides unavailable"))
	facts.AccountAgeDays = Known(400)
	score := CalculateTrustScore(facts, testToday)
	require.Equal(t, 85, score.Total)

	list := EvaluateAchievements(facts, score)
	require.False(t, achievementByKey(t, list, AchievementTrustedMember).Unlocked)
	require.False(t, achievementByKey(t, list, AchievementFirstRide).Unlocked)
	require.True(t, achievementByKey(t, list, AchievementOneYearMember).Unlocked)
}

func TestProfileCompleteness(t *testing.T) {
	t.Parallel()

	empty := ProfileCompleteness(Profile{}, false)
	require.Equal(t, 0, empty.Percent)
	require.Len(t, empty.Missing, 6)

	partial := ProfileCompleteness(Profile{Bio: "commuter", EmailVerified: true, PhoneVerified: true}, false)
	require.Equal(t, 33, partial.Percent)
	require.Contains(t, partial.Missing, CompletenessPhoneVerified)

	full := ProfileCompleteness(Profile{
		Bio:           "daily commuter",
		AvatarURL:     "https://cdn.example.com/a.png",
		EmailVerified: true,
		PhoneNumber:   "+15550100",
		PhoneVerified: true,
		PhotoVerified: true,
		CreatedAt:     time.Now(),
	}, true)
	require.Equal(t, 100, full.Percent)
	require.Empty(t, full.Missing)
}
