package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload carried inside a storefront credential. The JSON
// shape is part of the wire contract and must stay exactly
// {"user_id": <int>, "iat": <unix_seconds>, "exp": <unix_seconds>}.
type Claims struct {
	UserID    int64 `json:"user_id"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// NewClaims builds claims for the given subject, stamping issuance and
// expiry from the provided clock reading.
func NewClaims(userID int64, now time.Time, ttl time.Duration) Claims {
	return Claims{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

// The jwt.Claims interface below is satisfied for library-side parsing; the
// codec disables claim validation so expiry handling stays with the caller.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c Claims) GetIssuer() (string, error) {
	return "", nil
}

func (c Claims) GetSubject() (string, error) {
	return "", nil
}

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
