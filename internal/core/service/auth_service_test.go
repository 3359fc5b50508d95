package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	findErr error
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
		return nil, domain.ErrDuplicateIdentity
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = strconv.Itoa(r.nextID)
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *stubUserRepo) count(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[username]; ok {
		return 1
	}
	return 0
}

func newTestAuthService(t *testing.T, repo *stubUserRepo) (*AuthService, *JWTCodec) {
	t.Helper()
	codec := newTestCodec(t, &fakeClock{t: time.Now()})
	svc, err := NewAuthService(repo, codec, bcrypt.MinCost, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, codec
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)

	user, err := svc.Register(context.Background(), "alice", "pass123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role USER, got %s", user.Role)
	}
	if user.ID == "" {
		t.Fatalf("expected ID to be assigned")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, newStubUserRepo())

	if _, err := svc.Register(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "   ", "pass"); !errors.Is(err, domain.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration for blank name, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", ""); !errors.Is(err, domain.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration for empty password, got %v", err)
	}
}

func TestAuthService_Register_PasswordLimitIsBytes(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)

	// 40 characters, 80 bytes.
	if _, err := svc.Register(context.Background(), "erin", strings.Repeat("é", 40)); !errors.Is(err, domain.ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
	if repo.count("erin") != 0 {
		t.Fatal("rejected registration must not persist a user")
	}

	if _, err := svc.Register(context.Background(), "erin", strings.Repeat("é", 36)); err != nil {
		t.Fatalf("72-byte password should be accepted: %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "bob", "pass"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass2"); !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if n := repo.count("bob"); n != 1 {
		t.Fatalf("expected exactly one bob, got %d", n)
	}
}

func TestAuthService_Register_ReservedAnonymousName(t *testing.T) {
	svc, _ := newTestAuthService(t, newStubUserRepo())

	if _, err := svc.Register(context.Background(), "Anonymous", "pass"); !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity for reserved name, got %v", err)
	}
}

func TestAuthService_Login_TokenCarriesSubject(t *testing.T) {
	repo := newStubUserRepo()
	svc, codec := newTestAuthService(t, repo)

	for _, name := range []string{"carol", "dave", "émile"} {
		if _, err := svc.Register(context.Background(), name, "s3cret-"+name); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
		token, err := svc.Login(context.Background(), name, "s3cret-"+name)
		if err != nil {
			t.Fatalf("login %s failed: %v", name, err)
		}
		subject, err := codec.Validate(token)
		if err != nil {
			t.Fatalf("token invalid: %v", err)
		}
		if subject != name {
			t.Fatalf("expected subject %q, got %q", name, subject)
		}
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	_, _ = svc.Register(context.Background(), "dave", "goodpass")

	_, wrongPass := svc.Login(context.Background(), "dave", "badpass")
	_, unknown := svc.Login(context.Background(), "ghost", "pass")

	if !errors.Is(wrongPass, domain.ErrAuthenticationFailed) || !errors.Is(unknown, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for both, got %v / %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPass, unknown)
	}
}

func TestAuthService_Login_AnonymousIdentityRejected(t *testing.T) {
	repo := newStubUserRepo()
	_, _ = repo.Create(context.Background(), &domain.User{
		Username:     domain.AnonymousUsername,
		PasswordHash: anonymousPasswordHash,
		Role:         domain.RoleAnonymous,
	})
	svc, _ := newTestAuthService(t, repo)

	for _, pwd := range []string{"", anonymousPasswordHash, "anonymous-nopass"} {
		if _, err := svc.Login(context.Background(), domain.AnonymousUsername, pwd); !errors.Is(err, domain.ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed for %q, got %v", pwd, err)
		}
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	repo.findErr = errors.New("connection reset")

	_, err := svc.Login(context.Background(), "alice", "pass")
	if err == nil || errors.Is(err, domain.ErrAuthenticationFailed) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo)
	_, _ = svc.Register(context.Background(), "erin", "pass")

	user, err := svc.Me(context.Background(), "erin")
	if err != nil || user.Username != "erin" {
		t.Fatalf("unexpected result: %+v, %v", user, err)
	}
	if _, err := svc.Me(context.Background(), "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestNewAuthService_RejectsBadCost(t *testing.T) {
	if _, err := NewAuthService(newStubUserRepo(), nil, 99, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for bcrypt cost 99")
	}
}
