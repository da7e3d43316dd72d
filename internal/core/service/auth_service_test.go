package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/infrastructure/security"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	findErr error
	// skipLookup makes FindByUsername miss, simulating a registration that
	// raced past the existence check.
	skipLookup bool
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	copy.ID = "id-" + user.Username
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.skipLookup {
		return nil, domain.ErrUserNotFound
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

type stubRevoker struct {
	revoked map[string]time.Time
	err     error
}

func (r *stubRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if r.err != nil {
		return r.err
	}
	if r.revoked == nil {
		r.revoked = make(map[string]time.Time)
	}
	r.revoked[tokenID] = until
	return nil
}

func (r *stubRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := r.revoked[tokenID]
	return ok, r.err
}

func newTestAuthService(repo *stubUserRepo, opts AuthOptions) (*AuthService, *security.TokenManager) {
	tokens := security.NewTokenManager("secret", time.Hour)
	return NewAuthService(repo, security.NewBcryptHasher(bcrypt.MinCost), tokens, zerolog.Nop(), opts), tokens
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(repo, AuthOptions{})

	token, err := svc.Register(context.Background(), "alice", "pass123", domain.RoleUser)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	id, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if id.UserID != "id-alice" || id.Role != domain.RoleUser {
		t.Fatalf("unexpected identity: %+v", id)
	}

	stored := repo.users["alice"]
	if stored.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_DefaultRole(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo, AuthOptions{})

	if _, err := svc.Register(context.Background(), "bob", "pass", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.users["bob"].Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", repo.users["bob"].Role)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newTestAuthService(newStubUserRepo(), AuthOptions{})

	if _, err := svc.Register(context.Background(), "", "pass", domain.RoleUser); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "", domain.RoleUser); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass", "superuser"); err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole for bad role, got %v", err)
	}
}

func TestAuthService_Register_AdminSignupPolicy(t *testing.T) {
	closed, _ := newTestAuthService(newStubUserRepo(), AuthOptions{})
	if _, err := closed.Register(context.Background(), "mallory", "pass", domain.RoleAdmin); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	open, tokens := newTestAuthService(newStubUserRepo(), AuthOptions{AllowAdminSignup: true})
	token, err := open.Register(context.Background(), "root", "pass", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	id, err := tokens.Verify(token)
	if err != nil || id.Role != domain.RoleAdmin {
		t.Fatalf("expected admin token, got %+v (%v)", id, err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, _ := newTestAuthService(newStubUserRepo(), AuthOptions{})

	if _, err := svc.Register(context.Background(), "bob", "pass", domain.RoleUser); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass2", domain.RoleUser); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Register_RaceCaughtByStore(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo, AuthOptions{})

	if _, err := svc.Register(context.Background(), "bob", "pass", domain.RoleUser); err != nil {
		t.Fatalf("first register: %v", err)
	}
	repo.skipLookup = true
	if _, err := svc.Register(context.Background(), "bob", "pass", domain.RoleUser); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists from store, got %v", err)
	}
}

func TestAuthService_Register_StoreUnavailable(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection refused")
	svc, _ := newTestAuthService(repo, AuthOptions{})

	_, err := svc.Register(context.Background(), "bob", "pass", domain.RoleUser)
	if err == nil || errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(repo, AuthOptions{AllowAdminSignup: true})

	if _, err := svc.Register(context.Background(), "carol", "s3cret", domain.RoleAdmin); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, err := svc.Login(context.Background(), "carol", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	id, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if id.Role != domain.RoleAdmin {
		t.Fatalf("expected role %s, got %v", domain.RoleAdmin, id.Role)
	}
}

func TestAuthService_Login_IdenticalFailures(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo, AuthOptions{})

	_, _ = svc.Register(context.Background(), "dave", "goodpass", domain.RoleUser)

	_, wrongPassword := svc.Login(context.Background(), "dave", "badpass")
	_, unknownUser := svc.Login(context.Background(), "ghost", "pass")

	if wrongPassword != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", wrongPassword)
	}
	if unknownUser != wrongPassword {
		t.Fatalf("expected identical errors, got %v and %v", unknownUser, wrongPassword)
	}
}

type countingHasher struct {
	*security.BcryptHasher
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Compare(hash, password string) bool {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.BcryptHasher.Compare(hash, password)
}

func TestAuthService_Login_UnknownUserStillComparesHash(t *testing.T) {
	hasher := &countingHasher{BcryptHasher: security.NewBcryptHasher(bcrypt.MinCost)}
	tokens := security.NewTokenManager("secret", time.Hour)
	svc := NewAuthService(newStubUserRepo(), hasher, tokens, zerolog.Nop(), AuthOptions{})

	if _, err := svc.Register(context.Background(), "erin", "goodpass", domain.RoleUser); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "erin", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost2", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if hasher.compares != 3 {
		t.Fatalf("expected one hash comparison per login, got %d", hasher.compares)
	}
}

func TestAuthService_Login_EmptyCredentials(t *testing.T) {
	svc, _ := newTestAuthService(newStubUserRepo(), AuthOptions{})
	if _, err := svc.Login(context.Background(), "", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	revoker := &stubRevoker{}
	svc, _ := newTestAuthService(newStubUserRepo(), AuthOptions{Revoker: revoker})

	exp := time.Now().Add(30 * time.Minute)
	if err := svc.Logout(context.Background(), domain.Identity{UserID: "u1", TokenID: "jti-1", ExpiresAt: exp}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := revoker.revoked["jti-1"]; !got.Equal(exp) {
		t.Fatalf("expected revocation until %v, got %v", exp, got)
	}

	if err := svc.Logout(context.Background(), domain.Identity{UserID: "u1"}); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized without token id, got %v", err)
	}
}

func TestAuthService_Logout_WithoutRevoker(t *testing.T) {
	svc, _ := newTestAuthService(newStubUserRepo(), AuthOptions{})
	if err := svc.Logout(context.Background(), domain.Identity{TokenID: "jti"}); err != nil {
		t.Fatalf("expected no-op logout, got %v", err)
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo, AuthOptions{})

	created, err := svc.EnsureAdmin(context.Background(), "root", "toor")
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v (%v)", created, err)
	}
	if repo.users["root"].Role != domain.RoleAdmin {
		t.Fatalf("expected admin role")
	}

	created, err = svc.EnsureAdmin(context.Background(), "root", "other")
	if err != nil || created {
		t.Fatalf("expected no-op on existing admin, got %v (%v)", created, err)
	}

	if _, err := svc.Login(context.Background(), "root", "toor"); err != nil {
		t.Fatalf("bootstrapped admin cannot log in: %v", err)
	}
}
