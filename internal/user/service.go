package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	ErrStoreUnavailable   = database.ErrUnavailable
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
)

// createdAtLayouts are accepted for the signup created_at field.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SignupInput is the data needed to create an account.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	CreatedAt string
}

// UserService orchestrates signup, login and profile lookups. It holds no
// per-request state; every call receives the store acquired by the caller.
type UserService struct {
	hasher PasswordHasher
	// verified against on unknown emails so both failure paths cost one hash compare
	decoyHash string
	now       func() time.Time
}

func NewUserService(hasher PasswordHasher) (*UserService, error) {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	decoy, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("prepare decoy hash: %w", err)
	}
	return &UserService{hasher: hasher, decoyHash: decoy, now: time.Now}, nil
}

// NormalizeEmail trims and lower-cases an email so lookups match what signup stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) parseCreatedAt(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.now().UTC(), nil
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: created_at %q", ErrValidation, v)
}

// Signup creates the account. The existence check is advisory; the unique
// index on email is what actually rejects a racing duplicate.
func (s *UserService) Signup(ctx context.Context, store CredentialStore, in SignupInput) (*entity.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password", ErrValidation)
	}
	createdAt, err := s.parseCreatedAt(in.CreatedAt)
	if err != nil {
		return nil, err
	}

	if _, err := store.FindByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, userrepo.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    createdAt,
	}
	if _, err := store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks email and password. Unknown email and wrong password
// both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, store CredentialStore, email, password string) (*entity.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		s.hasher.Verify(s.decoyHash, password)
		return nil, ErrInvalidCredentials
	}
	u, err := store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			s.hasher.Verify(s.decoyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Profile resolves the token email to profile fields. A vanished account is
// treated as a bad credential.
func (s *UserService) Profile(ctx context.Context, store CredentialStore, email string) (*entity.Profile, error) {
	u, err := store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}
