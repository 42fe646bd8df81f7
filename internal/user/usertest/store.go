// Package usertest provides an in-memory credential store that mirrors the
// constraints of the users table.
package usertest

import (
	"context"
	"errors"
	"sync"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/database"
)

// Store is a user.Acquirer backed by a map keyed on email.
type Store struct {
	mu       sync.Mutex
	users    map[string]entity.User
	nextID   int64
	down     bool
	failWith error
	acquired int
	released int
}

func New() *Store {
	return &Store{users: map[string]entity.User{}}
}

// SetDown makes Acquire fail as if the database were unreachable.
func (s *Store) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailWith makes every store operation return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Open reports acquired connections that were never closed.
func (s *Store) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired - s.released
}

// Get returns a copy of the stored user.
func (s *Store) Get(email string) (entity.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	return u, ok
}

// Delete removes a user, simulating a deleted account.
func (s *Store) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, email)
}

func (s *Store) Acquire(ctx context.Context) (user.CredentialStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errors.Join(database.ErrUnavailable, errors.New("connection refused"))
	}
	s.acquired++
	return &conn{s: s}, nil
}

type conn struct {
	s      *Store
	closed bool
}

func (c *conn) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.failWith != nil {
		return nil, c.s.failWith
	}
	u, ok := c.s.users[email]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	if u.LoyaltyCardID != nil {
		code := *u.LoyaltyCardID
		u.LoyaltyCardID = &code
	}
	return &u, nil
}

func (c *conn) InsertUser(ctx context.Context, u *entity.User) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.failWith != nil {
		return 0, c.s.failWith
	}
	if _, taken := c.s.users[u.Email]; taken {
		return 0, userrepo.ErrDuplicate
	}
	c.s.nextID++
	u.ID = c.s.nextID
	c.s.users[u.Email] = *u
	return u.ID, nil
}

func (c *conn) UpdateLoyaltyCode(ctx context.Context, email, code string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.failWith != nil {
		return c.s.failWith
	}
	u, ok := c.s.users[email]
	if !ok || u.LoyaltyCardID != nil {
		return userrepo.ErrLoyaltyAssigned
	}
	for _, other := range c.s.users {
		if other.LoyaltyCardID != nil && *other.LoyaltyCardID == code {
			return userrepo.ErrDuplicate
		}
	}
	u.LoyaltyCardID = &code
	c.s.users[email] = u
	return nil
}

func (c *conn) Close() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.s.released++
	}
	return nil
}
