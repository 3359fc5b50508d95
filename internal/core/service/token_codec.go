package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

// TokenTTL is the fixed lifetime of every minted token.
const TokenTTL = 24 * time.Hour

// MinSigningKeyBytes is the shortest HMAC-SHA256 key accepted at startup.
const MinSigningKeyBytes = 32

// JWTCodec mints and validates HS256 identity tokens.
type JWTCodec struct {
	key []byte
	now func() time.Time
}

// CodecOption customises a JWTCodec.
type CodecOption func(*JWTCodec)

// WithClock overrides the codec's time source.
func WithClock(now func() time.Time) CodecOption {
	return func(c *JWTCodec) { c.now = now }
}

// NewJWTCodec derives the signing key from secret. A secret that is valid
// standard base64 is decoded first; anything else is used as raw bytes.
func NewJWTCodec(secret string, opts ...CodecOption) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: signing secret is empty")
	}

	key := []byte(secret)
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil {
		key = decoded
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("token codec: signing key must be at least %d bytes, got %d", MinSigningKeyBytes, len(key))
	}

	c := &JWTCodec{key: key, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint issues a token for subject valid for exactly TokenTTL.
func (c *JWTCodec) Mint(subject string) (string, error) {
	iat := c.now().UTC().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(TokenTTL)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate returns the token's subject. Every failure, whether malformed
// input, a bad signature or expiry, is reported as domain.ErrInvalidToken.
func (c *JWTCodec) Validate(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims.Subject, nil
}
