package domain

import (
	"math"
	"time"
)

type TrustCategoryKey string

const (
	CategoryEmail     TrustCategoryKey = "email_verification"
	CategoryPhone     TrustCategoryKey = "phone_verification"
	CategoryPhoto     TrustCategoryKey = "photo_verification"
	CategoryLicense   TrustCategoryKey = "driver_license"
	CategoryInsurance TrustCategoryKey = "vehicle_insurance"
	CategoryRides     TrustCategoryKey = "completed_rides"
	CategoryRating    TrustCategoryKey = "average_rating"
	CategoryAge       TrustCategoryKey = "account_age"
)

type CategoryStatus string

const (
	CategoryComplete CategoryStatus = "complete"
	CategoryPartial  CategoryStatus = "partial"
	CategoryMissing  CategoryStatus = "missing"

	// CategoryUnknown marks a category whose input could not be fetched.
	CategoryUnknown CategoryStatus = "unknown"
)

const (
	emailCap     = 10
	phoneCap     = 10
	photoCap     = 15
	licenseCap   = 20
	insuranceCap = 15
	ridesCap     = 15
	ratingCap    = 10
	ageCap       = 5

	MaxTrustScore = emailCap + phoneCap + photoCap + licenseCap + insuranceCap + ridesCap + ratingCap + ageCap

	maxRating    = 5.0
	daysPerMonth = 30
)

// Fact is an input value together with the error, if any, raised while fetching it.
// The zero value is a known zero.
type Fact[T any] struct {
	Value T
	Err   error
}

func Known[T any](v T) Fact[T] {
	return Fact[T]{Value: v}
}

func Failed[T any](err error) Fact[T] {
	if err == nil {
		err = ErrDependencyUnavailable
	}
	return Fact[T]{Err: err}
}

func (f Fact[T]) Known() bool {
	return f.Err == nil
}

type LicenseFact struct {
	Verified   bool
	ExpiryDate time.Time
}

type InsuranceFact struct {
	Active     bool
	ExpiryDate time.Time
}

// TrustFacts is an immutable snapshot of everything the trust score depends on.
// A nil License value means no license is on file.
type TrustFacts struct {
	EmailVerified  Fact[bool]
	PhoneVerified  Fact[bool]
	PhotoVerified  Fact[bool]
	License        Fact[*LicenseFact]
	Insurance      Fact[[]InsuranceFact]
	CompletedRides Fact[int]
	AverageRating  Fact[float64]
	AccountAgeDays Fact[int]
}

type TrustCategory struct {
	Key    TrustCategoryKey
	Earned int
	Cap    int
	Status CategoryStatus
}

type TrustScore struct {
	Total             int
	Max               int
	Categories        []TrustCategory
	Incomplete        bool
	UnknownCategories []TrustCategoryKey
	CalculatedAt      time.Time
}

func (s TrustScore) Category(key TrustCategoryKey) (TrustCategory, bool) {
	for _, c := range s.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return TrustCategory{}, false
}

// CalculateTrustScore maps a fact snapshot to a 0-100 score. asOf decides
// whether license and insurance expiry dates are still valid; dates are
// compared by calendar day in UTC. The function has no side effects.
func CalculateTrustScore(facts TrustFacts, asOf time.Time) TrustScore {
	today := calendarDay(asOf)
	score := TrustScore{
		Max:          MaxTrustScore,
		Categories:   make([]TrustCategory, 0, 8),
		CalculatedAt: asOf,
	}

	add := func(key TrustCategoryKey, limit int, err error, earned func() int) {
		if err != nil {
			score.Categories = append(score.Categories, TrustCategory{Key: key, Cap: limit, Status: CategoryUnknown})
			score.Incomplete = true
			score.UnknownCategories = append(score.UnknownCategories, key)
			return
		}
		e := clamp(earned(), 0, limit)
		score.Total += e
		score.Categories = append(score.Categories, TrustCategory{Key: key, Earned: e, Cap: limit, Status: statusFor(e, limit)})
	}

	add(CategoryEmail, emailCap, facts.EmailVerified.Err, func() int {
		return flagPoints(facts.EmailVerified.Value, emailCap)
	})
	add(CategoryPhone, phoneCap, facts.PhoneVerified.Err, func() int {
		return flagPoints(facts.PhoneVerified.Value, phoneCap)
	})
	add(CategoryPhoto, photoCap, facts.PhotoVerified.Err, func() int {
		return flagPoints(facts.PhotoVerified.Value, photoCap)
	})
	add(CategoryLicense, licenseCap, facts.License.Err, func() int {
		lic := facts.License.Value
		return flagPoints(lic != nil && lic.Verified && notExpired(lic.ExpiryDate, today), licenseCap)
	})
	add(CategoryInsurance, insuranceCap, facts.Insurance.Err, func() int {
		for _, ins := range facts.Insurance.Value {
			if ins.Active && notExpired(ins.ExpiryDate, today) {
				return insuranceCap
			}
		}
		return 0
	})
	add(CategoryRides, ridesCap, facts.CompletedRides.Err, func() int {
		return facts.CompletedRides.Value
	})
	add(CategoryRating, ratingCap, facts.AverageRating.Err, func() int {
		return int(math.Round(clampRating(facts.AverageRating.Value) * 2))
	})
	add(CategoryAge, ageCap, facts.AccountAgeDays.Err, func() int {
		days := facts.AccountAgeDays.Value
		if days < 0 {
			return 0
		}
		return days / daysPerMonth
	})

	return score
}

func flagPoints(ok bool, points int) int {
	if ok {
		return points
	}
	return 0
}

func statusFor(earned, limit int) CategoryStatus {
	switch {
	case earned >= limit:
		return CategoryComplete
	case earned > 0:
		return CategoryPartial
	default:
		return CategoryMissing
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampRating(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > maxRating {
		return maxRating
	}
	return v
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func notExpired(expiry, today time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	return !calendarDay(expiry).Before(today)
}

// IsExpired reports whether expiry falls on a calendar day before asOf.
func IsExpired(expiry, asOf time.Time) bool {
	return !notExpired(expiry, calendarDay(asOf))
}
