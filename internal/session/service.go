package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

var (
	ErrExpiredOrInvalid      = errors.New("token expired or invalid")
	ErrRevoked               = errors.New("token revoked")
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
)

// RevocationStore is the fast lookup side store for logged out tokens.
type RevocationStore interface {
	SetWithTTL(ctx context.Context, jti string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
}

type Config struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
}

// Service issues, validates and revokes HS256 session tokens.
type Service struct {
	secret      []byte
	lifetime    time.Duration
	issuer      string
	revocations RevocationStore

	now   func() time.Time
	newID func() string
}

func NewService(cfg Config, revocations RevocationStore) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session: signing secret is empty")
	}
	if cfg.Lifetime <= 0 {
		return nil, errors.New("session: token lifetime must be positive")
	}
	if revocations == nil {
		return nil, errors.New("session: revocation store is required")
	}
	return &Service{
		secret:      cfg.Secret,
		lifetime:    cfg.Lifetime,
		issuer:      cfg.Issuer,
		revocations: revocations,
		now:         time.Now,
		newID:       utilities.NewKSUID,
	}, nil
}

// Lifetime is the configured validity window of every issued token.
func (s *Service) Lifetime() time.Duration { return s.lifetime }

// Issue signs a new token for id with a fresh jti.
func (s *Service) Issue(id Identity) (string, error) {
	now := s.now()
	claims := newClaims(id)
	claims.ID = s.newID()
	claims.Issuer = s.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.lifetime))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExpiredOrInvalid, err)
	}
	if !token.Valid || claims.ID == "" || claims.Email == "" {
		return nil, ErrExpiredOrInvalid
	}
	return claims, nil
}

// Validate verifies signature and expiry, then rejects tokens whose jti was revoked.
func (s *Service) Validate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blocks the token for the rest of its lifetime. The entry expires when
// the token would have, so an already expired token needs no entry.
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrExpiredOrInvalid
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.SetWithTTL(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return nil
}
