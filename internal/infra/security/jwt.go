package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
)

var (
	// ErrTokenInvalid indicates the token is malformed, tampered with or signed with another key.
	ErrTokenInvalid = errors.New("jwt: invalid token")
	// ErrTokenExpired indicates the token was valid but its expiry has passed.
	ErrTokenExpired = errors.New("jwt: token expired")
)

const (
	defaultAccessTokenTTL = 15 * 24 * time.Hour
	tokenTypeBearer       = "Bearer"
)

// AccessTokenClaims carries the caller identity inside a signed token.
type AccessTokenClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures HS256 token signing.
type TokenIssuerConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenIssuer signs and verifies HS256 access tokens with a process-wide secret.
// Rotating the secret invalidates every outstanding token.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for the principal.
func (t *TokenIssuer) Issue(principal domain.Principal) (domain.AccessToken, error) {
	userID := strings.TrimSpace(principal.ID)
	if userID == "" {
		return domain.AccessToken{}, fmt.Errorf("jwt: user id is required")
	}

	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	claims := AccessTokenClaims{
		UserID:   userID,
		Username: principal.Username,
		Role:     string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return domain.AccessToken{
		Token:     signed,
		TokenType: tokenTypeBearer,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the embedded principal.
func (t *TokenIssuer) Verify(raw string) (domain.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Principal{}, ErrTokenInvalid
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	claims := &AccessTokenClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, ErrTokenExpired
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return domain.Principal{}, ErrTokenInvalid
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}

	return domain.Principal{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     role,
	}, nil
}

var _ port.TokenIssuer = (*TokenIssuer)(nil)
