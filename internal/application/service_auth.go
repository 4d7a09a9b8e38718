package application

import (
	"context"
	"strings"

	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/carpoolnetwork/trust-service/internal/ports"
)

func (s *Service) ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error) {
	if strings.TrimSpace(token) == "" {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	claims, err := s.tokens.ValidateToken(ctx, token)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	if !claims.Valid {
		return ports.AuthClaims{}, domain.ErrUnauthorized
	}
	return claims, nil
}
