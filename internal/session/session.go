// Package session verifies hosted-auth access tokens and turns them into
// engine sessions.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/givemewater/internal/clock"
	"github.com/roach88/givemewater/internal/engine"
)

// DefaultAudience is the audience the hosted auth service stamps on
// signed-in user tokens.
const DefaultAudience = "authenticated"

var (
	// ErrNoSecret is returned when the verifier has no signing secret.
	ErrNoSecret = errors.New("jwt secret not configured")

	// ErrInvalidToken wraps every token rejection.
	ErrInvalidToken = errors.New("invalid access token")
)

// claims are the access-token claims the app reads.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier validates HS256 access tokens signed with the project secret.
type Verifier struct {
	secret   []byte
	audience string
	clock    clock.Clock
}

// NewVerifier creates a verifier. An empty audience skips the audience
// check; a nil clock uses the system clock.
func NewVerifier(secret, audience string, c clock.Clock) *Verifier {
	if c == nil {
		c = clock.System{}
	}
	return &Verifier{secret: []byte(secret), audience: audience, clock: c}
}

// Verify parses token and returns the session it grants: the subject is the
// user id.
func (v *Verifier) Verify(token string) (engine.Session, error) {
	if len(v.secret) == 0 {
		return engine.Session{}, ErrNoSecret
	}
	if token == "" {
		return engine.Session{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return engine.Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return engine.Session{}, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return engine.Session{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return engine.Session{UserID: c.Subject, Email: c.Email}, nil
}

// Issue signs a token for s that expires after ttl. Used for local
// development logins and tests; production tokens come from the auth
// service.
func (v *Verifier) Issue(s engine.Session, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}

	now := v.clock.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: s.Email,
		Role:  DefaultAudience,
	}
	if v.audience != "" {
		c.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
