package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/core/ports"
	"github.com/bookshelf/catalog-api/internal/infrastructure/metrics"
)

// AuthOptions holds the optional collaborators and policy switches of AuthService.
type AuthOptions struct {
	// AllowAdminSignup lets clients register with role "admin". Off by default.
	AllowAdminSignup bool
	// Revoker backs Logout. When nil, Logout is a no-op and tokens live until expiry.
	Revoker ports.TokenRevoker
}

// AuthService implements registration, login and logout.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	opts   AuthOptions
	log    zerolog.Logger

	// dummyHash is compared against when the username is unknown so both
	// login failures cost one hash comparison.
	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	log zerolog.Logger,
	opts AuthOptions,
) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, opts: opts, log: log}
}

// Register creates a user account and returns a token for it.
// An empty role registers a regular user.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (string, error) {
	token, err := s.register(ctx, username, password, role)
	metrics.AuthAttemptsTotal.WithLabelValues("register", resultLabel(err)).Inc()
	return token, err
}

func (s *AuthService) register(ctx context.Context, username, password, role string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidInput
	}
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return "", domain.ErrInvalidRole
	}
	if role == domain.RoleAdmin && !s.opts.AllowAdminSignup {
		return "", domain.ErrForbidden
	}

	user, err := s.createUser(ctx, username, password, role)
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	return token, nil
}

// createUser checks for an existing account first; the unique index on
// username catches registrations that race past the check.
func (s *AuthService) createUser(ctx context.Context, username, password, role string) (*domain.User, error) {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: create user: %w", err)
	}
	return created, nil
}

// Login verifies credentials and returns a fresh token. Unknown usernames and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	token, err := s.login(ctx, username, password)
	metrics.AuthAttemptsTotal.WithLabelValues("login", resultLabel(err)).Inc()
	return token, err
}

func (s *AuthService) login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Compare(s.unknownUserHash(), password)
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return token, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("catalog-api:unknown-user")
		if err != nil {
			s.log.Warn().Err(err).Msg("build placeholder password hash")
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// Logout revokes the token identified by identity until it would have expired.
func (s *AuthService) Logout(ctx context.Context, identity domain.Identity) error {
	err := s.logout(ctx, identity)
	metrics.AuthAttemptsTotal.WithLabelValues("logout", resultLabel(err)).Inc()
	return err
}

func (s *AuthService) logout(ctx context.Context, identity domain.Identity) error {
	if identity.TokenID == "" {
		return domain.ErrUnauthorized
	}
	if s.opts.Revoker == nil {
		return nil
	}
	if err := s.opts.Revoker.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("user_id", identity.UserID).Msg("token revoked")
	return nil
}

// EnsureAdmin creates an admin account unless username already exists.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, domain.ErrInvalidInput
	}

	user, err := s.createUser(ctx, username, password, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Info().Str("user_id", user.ID).Str("username", username).Msg("admin account bootstrapped")
	return true, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUserExists):
		return "duplicate"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRole):
		return "invalid_input"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}
