package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held, e.g. when
// another instance is mid-way through a guide refresh.
var ErrLocked = errors.New("lock is already held")

// TryLock acquires a distributed lock via the Redis SET NX EX pattern. On
// success it returns an unlock function that MUST be called (typically via
// defer) to release the lock. A random token ensures only the holder can
// release it.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := randomToken()

	ok, err := r.client.SetNX(ctx, KeyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	// Delete only when the token still matches; Lua keeps it atomic.
	unlockScript := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0
	`
	return func() {
		// Background context so unlock works even after request cancellation.
		_ = r.client.Eval(context.Background(), unlockScript, []string{KeyPrefix + key}, token).Err()
	}, nil
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
