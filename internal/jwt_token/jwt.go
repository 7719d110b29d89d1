// Package jwttoken signs and verifies session bearer tokens. A token only
// names a session; the session itself is re-validated on every request.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "sanctum/pkg/domain-errors"
)

// Claims carries the session reference. Subject is the principal ID.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTService handles session token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey []byte, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: signingKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateSessionToken issues an HS256 token for sessionID valid from now for expiresIn.
func (s *JWTService) GenerateSessionToken(principalID, sessionID string, now time.Time, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies signature, issuer, audience and lifetime at now.
func (s *JWTService) ValidateToken(tokenString string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired").WithReason("INVALID_TOKEN")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token").WithReason("INVALID_TOKEN")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims").WithReason("INVALID_TOKEN")
	}
	return claims, nil
}
