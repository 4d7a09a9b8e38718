package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTValidator verifies HS256 access tokens minted by the identity service.
type JWTValidator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewJWTValidator(secret, issuer string) (*JWTValidator, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}, nil
}

type accessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (v *JWTValidator) ValidateToken(_ context.Context, raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, err
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, errors.New("invalid token claims")
	}
	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if _, err := uuid.Parse(subject); err != nil {
		return ports.AuthClaims{}, fmt.Errorf("parse user_id: %w", err)
	}
	return ports.AuthClaims{
		UserID: subject,
		Email:  claims.Email,
		Role:   claims.Role,
		Valid:  true,
	}, nil
}

// Sign issues a token with the same claim layout. Used by tests and local
// tooling.
func (v *JWTValidator) Sign(userID uuid.UUID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID: userID.String(),
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

var _ ports.TokenValidator = (*JWTValidator)(nil)
