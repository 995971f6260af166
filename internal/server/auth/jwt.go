// Package auth implements bearer token issuing/verification and password
// hashing for the API server.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: the standard claims with Subject set to the
// user id, plus the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer signs and verifies HS256 tokens with a process-wide secret.
// Rotating the secret invalidates every outstanding token.
type TokenIssuer struct {
	secretKey        []byte
	validityDuration time.Duration
	now              func() time.Time
}

func NewTokenIssuer(secretKey []byte, validityDuration time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secretKey:        secretKey,
		validityDuration: validityDuration,
		now:              time.Now,
	}
}

// WithClock returns a copy of the issuer that reads the current time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	return &c
}

// ValidityDuration is the lifetime given to newly issued tokens.
func (i *TokenIssuer) ValidityDuration() time.Duration {
	return i.validityDuration
}

// Issue returns a signed token for {subject, email} expiring after the
// configured validity duration.
func (i *TokenIssuer) Issue(subject, email string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validityDuration)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Failures are common.ErrTokenExpired, common.ErrInvalidSignature or
// common.ErrMalformedToken; all of them match common.ErrInvalidToken.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, classifyError(err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, common.ErrMalformedToken
	}

	return claims, nil
}

func classifyError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		return common.ErrInvalidToken
	}
}
