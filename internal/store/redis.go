package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

const revokedPrefix = "smartscan:revoked:"

// Revoke remembers token as signed out until ttl elapses.
func (r *Redis) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, revokedPrefix+token, 1, ttl).Err()
}

// Revoked reports whether token was signed out.
func (r *Redis) Revoked(ctx context.Context, token string) (bool, error) {
	n, err := r.Client.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
