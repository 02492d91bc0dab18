// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskTrack Contributors

package auth

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// DefaultSessionTTL is how long an issued session token stays valid.
	// Tokens are not refreshed; users log in again once it lapses.
	DefaultSessionTTL = 7 * 24 * time.Hour

	// TokenIssuer is the iss claim written to and required from every token.
	TokenIssuer = "tasktrack"

	// InsecureDevelopmentSecret signs tokens when no secret is configured.
	// It is public knowledge and must never be used in production.
	//
	//nolint:gosec // G101: documented development fallback, not a credential.
	InsecureDevelopmentSecret = "insecure-development-secret"
)

// signingMethod is the only algorithm tokens are signed or accepted with.
var signingMethod = jwt.SigningMethodHS256

// SigningKey is the immutable HMAC secret used to sign session tokens.
type SigningKey struct {
	secret   []byte
	insecure bool
}

// NewSigningKey builds a SigningKey from the configured secret. An empty secret
// falls back to InsecureDevelopmentSecret and logs a warning.
func NewSigningKey(secret string, logger *slog.Logger) SigningKey {
	if secret != "" {
		return SigningKey{secret: []byte(secret)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("no session signing secret configured, using insecure development secret",
		"insecure", true)
	return SigningKey{secret: []byte(InsecureDevelopmentSecret), insecure: true}
}

// Insecure reports whether the key is the development fallback.
func (k SigningKey) Insecure() bool {
	return k.insecure
}

// TokenService issues and verifies stateless session tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	key SigningKey
	ttl time.Duration
	now func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. A non-positive ttl selects DefaultSessionTTL.
func NewTokenService(key SigningKey, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &TokenService{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token asserting userID, valid until the returned expiry.
func (s *TokenService) Issue(userID ulid.ULID) (string, time.Time, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return "", time.Time{}, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.key.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates the token's signature, issuer and expiry and returns the
// user it was issued to. Every failure wraps ErrInvalidToken.
//
// The accepted algorithm is pinned to HS256; the token's own alg header is
// never trusted to choose the verification method.
func (s *TokenService) Verify(token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", "empty token").
			Wrap(ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	var claims jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key.secret, nil
	})
	if err != nil {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", err.Error()).
			Wrap(ErrInvalidToken)
	}
	if !parsed.Valid {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", "token not valid").
			Wrap(ErrInvalidToken)
	}

	userID, err := ulid.Parse(claims.Subject)
	if err != nil || userID.Compare(ulid.ULID{}) == 0 {
		return ulid.ULID{}, oops.Code("SESSION_INVALID").
			With("reason", "malformed subject").
			Wrap(ErrInvalidToken)
	}
	return userID, nil
}
