package helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-identity/config"
)

var (
	// ErrTokenInvalid covers bad signatures, malformed tokens, wrong alg, issuer or audience.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when exp is at or before the verification instant.
	ErrTokenExpired = errors.New("token expired")
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID   string
	Email    string
	UserName string
}

// Claims is the payload signed into every access token. Subject holds the user id.
type Claims struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens for a single TokenConfig.
type JWTManager struct {
	cfg    config.TokenConfig
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// JWTOption customises a JWTManager.
type JWTOption func(*JWTManager)

// WithClock overrides the time source used for iat, exp and verification.
func WithClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) { m.now = now }
}

func NewJWTManager(cfg config.TokenConfig, opts ...JWTOption) *JWTManager {
	m := &JWTManager{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(m.now),
	)
	return m
}

// Lifetime returns how long issued tokens stay valid.
func (m *JWTManager) Lifetime() time.Duration { return m.cfg.Lifetime }

// Issue signs a token for id. The returned expiry is the exact exp claim.
func (m *JWTManager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	exp := jwt.NewNumericDate(now.Add(m.cfg.Lifetime))
	claims := &Claims{
		Email:    id.Email,
		UserName: id.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp.Time, nil
}

// Verify checks signature, alg, issuer, audience and expiry with zero leeway.
// It returns ErrTokenInvalid or ErrTokenExpired on failure.
func (m *JWTManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := m.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if !m.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// classify folds jwt errors into the two outcomes callers act on.
// Anything that questions authenticity wins over expiry.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
