package patreon

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// StateTTL bounds the time between authorize and callback.
const StateTTL = 10 * time.Minute

type stateClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"did"`
}

func (s *Service) signState(deviceID string) (string, error) {
	now := s.now()
	claims := stateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
		DeviceID: deviceID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateSecret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

// consumeState verifies a state token and marks it used. A token is
// accepted at most once.
func (s *Service) consumeState(state string) (*stateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.stateSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindSecurity, "OAuth state expired or invalid", err)
	}
	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, apperr.Security("OAuth state expired or invalid")
	}
	if err := s.usedStates.Add(claims.ID, struct{}{}, StateTTL); err != nil {
		return nil, apperr.Security("OAuth state already used")
	}
	return claims, nil
}
