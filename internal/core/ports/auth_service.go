package ports

import (
	"context"
	"time"

	"github.com/bookshelf/catalog-api/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, role string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, identity domain.Identity) error
}

// PasswordHasher hashes and verifies passwords one way.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// TokenIssuer signs bearer tokens for an authenticated user.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// TokenVerifier validates a bearer token and decodes the identity it carries.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// TokenRevoker records tokens that must no longer be accepted.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
