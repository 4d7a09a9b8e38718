package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// trustSnapshot is one concurrent read of everything the trust score needs.
type trustSnapshot struct {
	profile      domain.Profile
	profileErr   error
	license      *domain.DriverLicense
	licenseErr   error
	insurance    []domain.VehicleInsurance
	insuranceErr error
}

func (s *Service) GetTrustScore(ctx context.Context, userID uuid.UUID) (TrustScoreResponse, error) {
	if cached, ok := s.cachedScore(ctx, userID); ok {
		return cached, nil
	}
	started := time.Now()
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return TrustScoreResponse{}, err
	}
	now := s.nowFn()
	score := domain.CalculateTrustScore(snap.facts(now), now)
	s.metrics.RecordTrustScore(ctx, score.Total, score.Incomplete, time.Since(started))

	var profile *domain.Profile
	if snap.profileErr == nil {
		profile = &snap.profile
	}
	resp := toTrustScoreResponse(userID, score, profile)
	if !score.Incomplete {
		s.storeScore(ctx, userID, resp, now)
	}
	return resp, nil
}

// RefreshTrustScore recomputes the score from storage and persists it into
// the profile. Incomplete scores are never persisted.
func (s *Service) RefreshTrustScore(ctx context.Context, userID uuid.UUID) (TrustScoreResponse, error) {
	count, err := s.cache.IncrWithTTL(ctx, cacheKeyRefreshRate(userID), time.Minute)
	if err == nil && count > int64(s.cfg.RefreshLimitPerMinute) {
		return TrustScoreResponse{}, domain.ErrRateLimitExceeded
	}
	return s.persistTrustScore(ctx, userID)
}

func (s *Service) persistTrustScore(ctx context.Context, userID uuid.UUID) (TrustScoreResponse, error) {
	started := time.Now()
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return TrustScoreResponse{}, err
	}
	now := s.nowFn()
	score := domain.CalculateTrustScore(snap.facts(now), now)
	s.metrics.RecordTrustScore(ctx, score.Total, score.Incomplete, time.Since(started))
	if score.Incomplete {
		keys := make([]string, 0, len(score.UnknownCategories))
		for _, k := range score.UnknownCategories {
			keys = append(keys, string(k))
		}
		return TrustScoreResponse{}, fmt.Errorf("%w: %w: unknown categories %s", domain.ErrScoreIncomplete, domain.ErrDependencyUnavailable, strings.Join(keys, ","))
	}

	if err := s.profiles.SaveTrustScore(ctx, userID, score.Total, now); err != nil {
		return TrustScoreResponse{}, err
	}
	s.metrics.RecordScorePersisted(ctx)
	previous := snap.profile.TrustScore
	snap.profile.TrustScore = &score.Total
	snap.profile.TrustScoreComputed = &now

	resp := toTrustScoreResponse(userID, score, &snap.profile)
	s.storeScore(ctx, userID, resp, now)
	if err := s.enqueueTrustScoreUpdated(ctx, userID, score, previous); err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue trust score event",
			"module", "application.trust",
			"layer", "application",
			"operation", "persist_trust_score",
			"outcome", "failure",
			"user_id", userID.String(),
			"error", err,
		)
	}
	return resp, nil
}

// rescore refreshes the persisted score after a fact changed. Failures are
// logged; the triggering write has already succeeded.
func (s *Service) rescore(ctx context.Context, userID uuid.UUID, reason string) {
	s.invalidateScore(ctx, userID)
	if _, err := s.persistTrustScore(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "trust score refresh skipped",
			"module", "application.trust",
			"layer", "application",
			"operation", "rescore",
			"outcome", "skipped",
			"user_id", userID.String(),
			"reason", reason,
			"error", err,
		)
	}
}

func (s *Service) GetAchievements(ctx context.Context, userID uuid.UUID) (AchievementsResponse, error) {
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return AchievementsResponse{}, err
	}
	now := s.nowFn()
	facts := snap.facts(now)
	score := domain.CalculateTrustScore(facts, now)
	list := domain.EvaluateAchievements(facts, score)

	resp := AchievementsResponse{
		UserID:       userID.String(),
		Incomplete:   score.Incomplete,
		Achievements: make([]AchievementView, 0, len(list)),
	}
	for _, a := range list {
		resp.Achievements = append(resp.Achievements, AchievementView{
			Key:      string(a.Key),
			Unlocked: a.Unlocked,
			Progress: a.Progress,
			Target:   a.Target,
		})
	}
	return resp, nil
}

func (s *Service) GetCompleteness(ctx context.Context, userID uuid.UUID) (CompletenessResponse, error) {
	snap, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return CompletenessResponse{}, err
	}
	if snap.profileErr != nil {
		return CompletenessResponse{}, fmt.Errorf("%w: profile unavailable", domain.ErrDependencyUnavailable)
	}
	if snap.licenseErr != nil {
		return CompletenessResponse{}, fmt.Errorf("%w: license unavailable", domain.ErrDependencyUnavailable)
	}
	c := domain.ProfileCompleteness(snap.profile, snap.license != nil)
	resp := CompletenessResponse{
		UserID:  userID.String(),
		Percent: c.Percent,
		Missing: make([]string, 0, len(c.Missing)),
	}
	for _, item := range c.Missing {
		resp.Missing = append(resp.Missing, string(item))
	}
	return resp, nil
}

// loadSnapshot fetches profile, license and insurance concurrently. Only a
// missing profile fails the call; other fetch errors are recorded in the
// snapshot so the calculator can mark the affected categories unknown.
func (s *Service) loadSnapshot(ctx context.Context, userID uuid.UUID) (trustSnapshot, error) {
	var snap trustSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.profiles.GetByUserID(gctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		snap.profile, snap.profileErr = profile, err
		return nil
	})
	g.Go(func() error {
		license, err := s.licenses.GetByUserID(gctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			snap.licenseErr = err
		default:
			snap.license = &license
		}
		return nil
	})
	g.Go(func() error {
		snap.insurance, snap.insuranceErr = s.insurance.ListByUserID(gctx, userID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return trustSnapshot{}, err
	}
	s.logFetchFailure(ctx, userID, "profile", snap.profileErr)
	s.logFetchFailure(ctx, userID, "license", snap.licenseErr)
	s.logFetchFailure(ctx, userID, "insurance", snap.insuranceErr)
	return snap, nil
}

func (s *Service) logFetchFailure(ctx context.Context, userID uuid.UUID, source string, err error) {
	if err == nil {
		return
	}
	s.metrics.RecordFetchFailure(ctx, source)
	s.logger.WarnContext(ctx, "trust fact fetch failed",
		"module", "application.trust",
		"layer", "application",
		"operation", "load_snapshot",
		"outcome", "degraded",
		"user_id", userID.String(),
		"source", source,
		"error", err,
	)
}

func (snap trustSnapshot) facts(now time.Time) domain.TrustFacts {
	var facts domain.TrustFacts
	if snap.profileErr != nil {
		facts.EmailVerified = domain.Failed[bool](snap.profileErr)
		facts.PhoneVerified = domain.Failed[bool](snap.profileErr)
		facts.PhotoVerified = domain.Failed[bool](snap.profileErr)
		facts.CompletedRides = domain.Failed[int](snap.profileErr)
		facts.AverageRating = domain.Failed[float64](snap.profileErr)
		facts.AccountAgeDays = domain.Failed[int](snap.profileErr)
	} else {
		p := snap.profile
		facts.EmailVerified = domain.Known(p.EmailVerified)
		facts.PhoneVerified = domain.Known(p.HasVerifiedPhone())
		facts.PhotoVerified = domain.Known(p.PhotoVerified)
		facts.CompletedRides = domain.Known(p.CompletedRides())
		facts.AverageRating = domain.Known(p.AverageRating)
		facts.AccountAgeDays = domain.Known(p.AccountAgeDays(now))
	}

	if snap.licenseErr != nil {
		facts.License = domain.Failed[*domain.LicenseFact](snap.licenseErr)
	} else if snap.license != nil {
		facts.License = domain.Known(&domain.LicenseFact{
			Verified:   snap.license.Status == domain.LicenseStatusVerified,
			ExpiryDate: snap.license.ExpiryDate,
		})
	}

	if snap.insuranceErr != nil {
		facts.Insurance = domain.Failed[[]domain.InsuranceFact](snap.insuranceErr)
	} else {
		list := make([]domain.InsuranceFact, 0, len(snap.insurance))
		for _, ins := range snap.insurance {
			list = append(list, domain.InsuranceFact{
				Active:     ins.Status == domain.InsuranceStatusActive,
				ExpiryDate: ins.ExpiryDate,
			})
		}
		facts.Insurance = domain.Known(list)
	}
	return facts
}

func (s *Service) cachedScore(ctx context.Context, userID uuid.UUID) (TrustScoreResponse, bool) {
	raw, err := s.cache.Get(ctx, cacheKeyTrustScore(userID))
	if err != nil || raw == "" {
		return TrustScoreResponse{}, false
	}
	var resp TrustScoreResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return TrustScoreResponse{}, false
	}
	return resp, true
}

func (s *Service) storeScore(ctx context.Context, userID uuid.UUID, resp TrustScoreResponse, now time.Time) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ttl := scoreCacheTTL(s.cfg.TrustScoreCacheTTL, now)
	if ttl <= 0 {
		return
	}
	_ = s.cache.Set(ctx, cacheKeyTrustScore(userID), string(raw), ttl)
}

// scoreCacheTTL stops a cached score at the next UTC midnight, where document
// expiry and account age are re-evaluated.
func scoreCacheTTL(ttl time.Duration, now time.Time) time.Duration {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	if left := midnight.Sub(now); left < ttl {
		return left
	}
	return ttl
}

func (s *Service) invalidateScore(ctx context.Context, userID uuid.UUID) {
	_ = s.cache.Delete(ctx, cacheKeyTrustScore(userID))
}
