package sequence

import (
	"context"
	"fmt"

	platformredis "github.com/Dibyendu78/Brain-O-Math/internal/platform/redis"
)

const counterKey = "bom:student:seq"

// Redis allocates sequence numbers with INCR, which is atomic across
// processes. SeedIfLower installs the persisted maximum once at startup so
// a fresh counter never reissues ids already in the store.
type Redis struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *Redis {
	return &Redis{client: client}
}

// SeedIfLower raises the counter to at least seed. SETNX covers the fresh
// counter; the read-and-set path covers a counter that fell behind the
// store (e.g. after a Redis flush).
func (r *Redis) SeedIfLower(ctx context.Context, seed int64) error {
	if err := r.client.SetNX(ctx, counterKey, seed, 0).Err(); err != nil {
		return fmt.Errorf("seed student sequence: %w", err)
	}
	current, err := r.client.Get(ctx, counterKey).Int64()
	if err != nil {
		return fmt.Errorf("read student sequence: %w", err)
	}
	if current < seed {
		if err := r.client.Set(ctx, counterKey, seed, 0).Err(); err != nil {
			return fmt.Errorf("raise student sequence: %w", err)
		}
	}
	return nil
}

func (r *Redis) Next(ctx context.Context) (int64, error) {
	n, err := r.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("next student sequence: %w", err)
	}
	return n, nil
}
