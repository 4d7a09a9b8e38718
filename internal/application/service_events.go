package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/google/uuid"
)

const (
	EventUserRegistered      = "user.registered"
	EventUserDeleted         = "user.deleted"
	EventVerificationUpdated = "user.verification_updated"
	EventRideCompleted       = "ride.completed"
	EventReliabilityUpdated  = "reliability.updated"
	EventRestrictionApplied  = "booking_restriction.applied"
)

type eventEnvelope[T any] struct {
	EventID string `json:"event_id"`
	Data    T      `json:"data"`
}

type userRegisteredData struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	RegisteredAt  string `json:"registered_at"`
}

type userDeletedData struct {
	UserID string `json:"user_id"`
}

type verificationUpdatedData struct {
	UserID        string  `json:"user_id"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
	PhoneNumber   *string `json:"phone_number,omitempty"`
	PhoneVerified *bool   `json:"phone_verified,omitempty"`
	PhotoVerified *bool   `json:"photo_verified,omitempty"`
}

type rideCompletedData struct {
	RideID         string   `json:"ride_id"`
	UserID         string   `json:"user_id"`
	Role           string   `json:"role"`
	RatingReceived *float64 `json:"rating_received,omitempty"`
}

type reliabilityUpdatedData struct {
	UserID                  string  `json:"user_id"`
	TotalRides              int     `json:"total_rides"`
	CompletedRides          int     `json:"completed_rides"`
	CancelledRides          int     `json:"cancelled_rides"`
	LastMinuteCancellations int     `json:"last_minute_cancellations"`
	CompletionRate          float64 `json:"completion_rate"`
	CancellationRate        float64 `json:"cancellation_rate"`
	ReliabilityScore        int     `json:"reliability_score"`
	WarningCount            int     `json:"warning_count"`
	IsInGracePeriod         bool    `json:"is_in_grace_period"`
	GraceRidesRemaining     int     `json:"grace_rides_remaining"`
}

type restrictionAppliedData struct {
	RestrictionID   string  `json:"restriction_id"`
	UserID          string  `json:"user_id"`
	RestrictionType string  `json:"restriction_type"`
	Reason          string  `json:"reason"`
	StartsAt        string  `json:"starts_at"`
	EndsAt          *string `json:"ends_at,omitempty"`
}

// handleOnce decodes an event, skips duplicates and marks it processed after
// apply succeeds.
func handleOnce[T any](ctx context.Context, s *Service, eventType string, payload []byte, apply func(T) error) error {
	var evt eventEnvelope[T]
	if err := json.Unmarshal(payload, &evt); err != nil {
		return fmt.Errorf("%w: invalid %s payload", domain.ErrInvalidInput, eventType)
	}
	if strings.TrimSpace(evt.EventID) == "" {
		return fmt.Errorf("%w: %s event_id required", domain.ErrInvalidInput, eventType)
	}
	dup, err := s.eventDedup.IsDuplicate(ctx, evt.EventID, s.nowFn())
	if err != nil {
		return err
	}
	if dup {
		return nil
	}
	if err := apply(evt.Data); err != nil {
		return err
	}
	return s.eventDedup.MarkProcessed(ctx, evt.EventID, eventType, s.nowFn().Add(s.cfg.EventDedupTTL))
}

func parseUserID(raw string) (uuid.UUID, error) {
	userID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user_id", domain.ErrInvalidInput)
	}
	return userID, nil
}

func (s *Service) HandleUserRegistered(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventUserRegistered, payload, func(data userRegisteredData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		createdAt := s.nowFn()
		if data.RegisteredAt != "" {
			if parsed, parseErr := time.Parse(time.RFC3339, data.RegisteredAt); parseErr == nil {
				createdAt = parsed.UTC()
			}
		}
		_, created, err := s.profiles.CreateIfMissing(ctx, ports.CreateProfileParams{
			UserID:        userID,
			Email:         strings.ToLower(strings.TrimSpace(data.Email)),
			EmailVerified: data.EmailVerified,
			CreatedAt:     createdAt,
		})
		if err != nil {
			return err
		}
		if created {
			s.rescore(ctx, userID, EventUserRegistered)
		}
		return nil
	})
}

func (s *Service) HandleUserDeleted(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventUserDeleted, payload, func(data userDeletedData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		if err := s.profiles.SoftDeleteByUserID(ctx, userID, s.nowFn()); err != nil {
			return err
		}
		s.invalidateScore(ctx, userID)
		return nil
	})
}

func (s *Service) HandleVerificationUpdated(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventVerificationUpdated, payload, func(data verificationUpdatedData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		if _, err := s.profiles.UpdateVerificationFlags(ctx, ports.VerificationFlagsParams{
			UserID:        userID,
			EmailVerified: data.EmailVerified,
			PhoneNumber:   data.PhoneNumber,
			PhoneVerified: data.PhoneVerified,
			PhotoVerified: data.PhotoVerified,
			UpdatedAt:     s.nowFn(),
		}); err != nil {
			return err
		}
		s.rescore(ctx, userID, EventVerificationUpdated)
		return nil
	})
}

func (s *Service) HandleRideCompleted(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventRideCompleted, payload, func(data rideCompletedData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		role := strings.ToLower(strings.TrimSpace(data.Role))
		if role != "driver" && role != "passenger" {
			return fmt.Errorf("%w: role must be driver or passenger", domain.ErrInvalidInput)
		}
		if data.RatingReceived != nil {
			if err := domain.ValidateRating(*data.RatingReceived); err != nil {
				return err
			}
		}
		if _, err := s.profiles.RecordCompletedRide(ctx, ports.RecordRideParams{
			UserID:    userID,
			AsDriver:  role == "driver",
			Rating:    data.RatingReceived,
			UpdatedAt: s.nowFn(),
		}); err != nil {
			return err
		}
		s.rescore(ctx, userID, EventRideCompleted)
		return nil
	})
}

func (s *Service) HandleReliabilityUpdated(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventReliabilityUpdated, payload, func(data reliabilityUpdatedData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		return s.reliability.Upsert(ctx, domain.ReliabilityScore{
			UserID:                  userID,
			TotalRides:              data.TotalRides,
			CompletedRides:          data.CompletedRides,
			CancelledRides:          data.CancelledRides,
			LastMinuteCancellations: data.LastMinuteCancellations,
			CompletionRate:          data.CompletionRate,
			CancellationRate:        data.CancellationRate,
			Score:                   data.ReliabilityScore,
			WarningCount:            data.WarningCount,
			IsInGracePeriod:         data.IsInGracePeriod,
			GraceRidesRemaining:     data.GraceRidesRemaining,
			UpdatedAt:               s.nowFn(),
		})
	})
}

func (s *Service) HandleRestrictionApplied(ctx context.Context, payload []byte) error {
	return handleOnce(ctx, s, EventRestrictionApplied, payload, func(data restrictionAppliedData) error {
		userID, err := parseUserID(data.UserID)
		if err != nil {
			return err
		}
		if err := domain.ValidateRestrictionType(data.RestrictionType); err != nil {
			return err
		}
		restrictionID, err := uuid.Parse(data.RestrictionID)
		if err != nil {
			restrictionID = uuid.New()
		}
		startsAt, err := time.Parse(time.RFC3339, data.StartsAt)
		if err != nil {
			return fmt.Errorf("%w: starts_at must be RFC3339", domain.ErrInvalidInput)
		}
		restriction := domain.BookingRestriction{
			RestrictionID:   restrictionID,
			UserID:          userID,
			RestrictionType: data.RestrictionType,
			Reason:          strings.TrimSpace(data.Reason),
			StartsAt:        startsAt.UTC(),
			Active:          true,
			CreatedAt:       s.nowFn(),
		}
		if data.EndsAt != nil {
			endsAt, err := time.Parse(time.RFC3339, *data.EndsAt)
			if err != nil {
				return fmt.Errorf("%w: ends_at must be RFC3339", domain.ErrInvalidInput)
			}
			if !endsAt.After(startsAt) {
				return fmt.Errorf("%w: ends_at must be after starts_at", domain.ErrInvalidInput)
			}
			endsAt = endsAt.UTC()
			restriction.EndsAt = &endsAt
		}
		return s.reliability.CreateRestriction(ctx, restriction)
	})
}
