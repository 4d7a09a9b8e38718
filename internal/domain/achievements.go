package domain

type AchievementKey string

const (
	AchievementFirstRide        AchievementKey = "first_ride"
	AchievementRegularCommuter  AchievementKey = "regular_commuter"
	AchievementRoadVeteran      AchievementKey = "road_veteran"
	AchievementTopRated         AchievementKey = "top_rated"
	AchievementVerifiedIdentity AchievementKey = "verified_identity"
	AchievementVerifiedDriver   AchievementKey = "verified_driver"
	AchievementTrustedMember    AchievementKey = "trusted_member"
	AchievementOneYearMember    AchievementKey = "one_year_member"
)

const (
	regularCommuterRides = 25
	roadVeteranRides     = 100
	topRatedMinRating    = 4.8
	topRatedMinRides     = 10
	trustedMemberScore   = 80
	oneYearDays          = 365
)

type Achievement struct {
	Key      AchievementKey
	Unlocked bool
	Progress int
	Target   int
}

// EvaluateAchievements derives badges from a computed trust score and the
// facts it was computed from. Unknown facts leave their achievements locked.
func EvaluateAchievements(facts TrustFacts, score TrustScore) []Achievement {
	rides := max(facts.CompletedRides.Value, 0)
	rating := clampRating(facts.AverageRating.Value)
	age := max(facts.AccountAgeDays.Value, 0)

	verifiedCount := 0
	for _, f := range []Fact[bool]{facts.EmailVerified, facts.PhoneVerified, facts.PhotoVerified} {
		if f.Known() && f.Value {
			verifiedCount++
		}
	}

	license, _ := score.Category(CategoryLicense)
	insurance, _ := score.Category(CategoryInsurance)
	driverProgress := 0
	if license.Status == CategoryComplete {
		driverProgress++
	}
	if insurance.Status == CategoryComplete {
		driverProgress++
	}

	topRatedProgress := 0
	if facts.AverageRating.Known() && rating >= topRatedMinRating {
		topRatedProgress++
	}
	if facts.CompletedRides.Known() && rides >= topRatedMinRides {
		topRatedProgress++
	}

	known := func(f Fact[int], v int) int {
		if !f.Known() {
			return 0
		}
		return v
	}
	trustProgress := score.Total
	if score.Incomplete {
		trustProgress = min(trustProgress, trustedMemberScore-1)
	}

	return []Achievement{
		progress(AchievementFirstRide, known(facts.CompletedRides, rides), 1),
		progress(AchievementRegularCommuter, known(facts.CompletedRides, rides), regularCommuterRides),
		progress(AchievementRoadVeteran, known(facts.CompletedRides, rides), roadVeteranRides),
		progress(AchievementTopRated, topRatedProgress, 2),
		progress(AchievementVerifiedIdentity, verifiedCount, 3),
		progress(AchievementVerifiedDriver, driverProgress, 2),
		progress(AchievementTrustedMember, trustProgress, trustedMemberScore),
		progress(AchievementOneYearMember, known(facts.AccountAgeDays, age), oneYearDays),
	}
}

func progress(key AchievementKey, current, target int) Achievement {
	return Achievement{
		Key:      key,
		Unlocked: current >= target,
		Progress: min(current, target),
		Target:   target,
	}
}
