package repo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces revocation keys.
const DefaultPrefix = "revoked:"

// RevocationRepo keeps revoked token identifiers in Redis. Each key holds an
// empty sentinel and expires on its own, so the set never grows unbounded.
type RevocationRepo struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRevocationRepo(rdb redis.UniversalClient, prefix string) *RevocationRepo {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RevocationRepo{rdb: rdb, prefix: prefix}
}

func (r *RevocationRepo) key(jti string) string {
	return r.prefix + jti
}

// SetWithTTL marks jti as revoked for ttl. Re-setting an existing entry just refreshes it.
func (r *RevocationRepo) SetWithTTL(ctx context.Context, jti string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.key(jti), "", ttl).Err()
}

// Exists reports whether jti has been revoked.
func (r *RevocationRepo) Exists(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
