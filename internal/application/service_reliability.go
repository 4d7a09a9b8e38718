package application

import (
	"context"
	"errors"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
)

func (s *Service) GetReliability(ctx context.Context, userID uuid.UUID) (ReliabilityResponse, error) {
	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		return ReliabilityResponse{}, err
	}
	score, err := s.reliability.GetByUserID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		score = domain.NewReliabilityScore(userID)
	} else if err != nil {
		return ReliabilityResponse{}, err
	}
	now := s.nowFn()
	restrictions, err := s.reliability.ListActiveRestrictions(ctx, userID, now)
	if err != nil {
		return ReliabilityResponse{}, err
	}
	return toReliabilityResponse(userID, domain.FormatReliability(score, restrictions, now)), nil
}
