// internal/domain/checkout/lock.go
package checkout

import (
	"context"
	"fmt"
	"time"

	redisdb "github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
)

// lockTTL caps how long a buyer's checkout lock can be held if the
// process dies without releasing it
const lockTTL = 30 * time.Second

// Locker serializes checkouts per buyer
type Locker interface {
	// Acquire takes the buyer's lock and returns a release func, or
	// ErrCheckoutInProgress when another checkout holds it.
	Acquire(ctx context.Context, userID uint) (func(), error)
}

// redisLocker implements Locker with a Redis SETNX lock
type redisLocker struct {
	client *redisdb.Client
}

// NewRedisLocker creates a Redis backed checkout lock
func NewRedisLocker(client *redisdb.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, userID uint) (func(), error) {
	key := fmt.Sprintf("checkout:lock:%d", userID)

	ok, err := l.client.GetClient().SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	release := func() {
		// Release must not depend on the (possibly cancelled) request
		// context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.client.Del(releaseCtx, key)
	}
	return release, nil
}
