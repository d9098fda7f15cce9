package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// The signing algorithm is fixed. The header advertises it for forward
// compatibility only; tokens presenting any other algorithm are rejected.
var jwtSigningMethod = jwt.SigningMethodHS256

var (
	// ErrMalformedCredential reports a credential that is structurally
	// broken: wrong segment count, bad base64url, bad JSON, or a header
	// naming an algorithm we do not sign with.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrBadSignature reports a structurally valid credential whose
	// signature does not match the configured secret.
	ErrBadSignature = errors.New("credential signature mismatch")
)

// Codec encodes and decodes signed credentials. It is purely structural:
// expired tokens decode successfully and expiry is judged by the caller.
type Codec struct {
	secret []byte
}

// NewCodec builds a codec signing with the provided server secret. Secret
// presence is validated at issue time so misconfiguration surfaces as a
// server error, not a constructor panic.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode signs the claims and returns the three-segment credential string.
func (c *Codec) Encode(claims Claims) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("signing secret is required")
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing credential: %w", err)
	}
	return signed, nil
}

// Decode verifies structure and signature and returns the embedded claims.
// Signature comparison happens inside the JWT library via hmac.Equal, which
// is constant time. Claim-level validation (exp/iat) is intentionally
// skipped here.
func (c *Codec) Decode(credential string) (*Claims, error) {
	if len(c.secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithoutClaimsValidation(),
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
	)
	_, err := parser.ParseWithClaims(
		credential,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return c.secret, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	return claims, nil
}
