package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

const DefaultTokenTTL = time.Hour

type tokenUser struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// tokenClaims keeps the {"user": {"id", "role"}} payload shape existing clients decode.
type tokenClaims struct {
	User tokenUser `json:"user"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens with a shared secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user that expires ttl after issuance.
func (m *TokenManager) Issue(user *domain.User) (string, error) {
	now := m.now()
	claims := tokenClaims{
		User: tokenUser{ID: user.ID, Role: user.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Every failure wraps domain.ErrUnauthorized.
func (m *TokenManager) Verify(token string) (domain.Identity, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return domain.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if !parsed.Valid || claims.User.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	return domain.Identity{
		UserID:    claims.User.ID,
		Role:      claims.User.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
