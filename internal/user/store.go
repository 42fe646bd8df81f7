package user

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/repo"
)

// CredentialStore is a per-request view of the users table.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	InsertUser(ctx context.Context, u *entity.User) (int64, error)
	UpdateLoyaltyCode(ctx context.Context, email, code string) error
	Close() error
}

// Acquirer opens a CredentialStore for the duration of one request.
type Acquirer interface {
	Acquire(ctx context.Context) (CredentialStore, error)
}

type poolAcquirer struct {
	pool *userrepo.Pool
}

// NewAcquirer adapts a repo pool to Acquirer.
func NewAcquirer(pool *userrepo.Pool) Acquirer {
	return poolAcquirer{pool: pool}
}

func (a poolAcquirer) Acquire(ctx context.Context) (CredentialStore, error) {
	r, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return r, nil
}
