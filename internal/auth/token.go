package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Token validation outcomes. All three collapse to "unauthenticated" at
// the request level; they stay distinct here so callers and tests can
// tell tampering from expiry from garbage input.
var (
	ErrTokenMalformed   = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
)

// TokenManager issues and verifies HS256 signed bearer tokens. The
// secret and TTL are fixed at construction; timestamps are unix seconds.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. The ttl is taken as given; a
// zero or negative ttl means every issued token is already expired.
// Defaulting lives in the config layer, not here.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue builds and signs a token with subject = username and the
// configured TTL.
func (tm *TokenManager) Issue(subject string) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(tm.ttl)
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Decode parses the token structure without checking the signature.
// A token that cannot be split into header/payload/signature parts is
// malformed regardless of signature validity.
func (tm *TokenManager) Decode(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tokenStr), claims); err != nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// Verify checks structure, signature and expiry, returning the claims
// when valid. Signature comparison inside the jwt library is
// constant-time (hmac.Equal). Expiry is checked here rather than by the
// library so the boundary is well defined: a token is valid up to and
// including its expiry instant, and rejected only once now > exp.
func (tm *TokenManager) Verify(tokenStr string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), claims,
		func(token *jwt.Token) (interface{}, error) {
			return tm.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrSignatureInvalid
	default:
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	if tm.now().After(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
