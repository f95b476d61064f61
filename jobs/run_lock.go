package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock serialises planning cycles per org/plant with a Redis lease.
// The core itself takes no locks; concurrent runs against the same plant
// can double-count scheduled receipts, so the worker guards here.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock constructs RunLock. The TTL bounds how long a crashed worker
// can hold the lease.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// RunLockKey builds the lease key for an org/plant pair.
func RunLockKey(organizationID, plantID int64) string {
	return fmt.Sprintf("mrp:run:%d:%d:lock", organizationID, plantID)
}

// Acquire takes the lease. When acquired is true the caller must invoke
// release once the run finishes.
func (l *RunLock) Acquire(ctx context.Context, organizationID, plantID int64) (release func(), acquired bool, err error) {
	if l == nil || l.client == nil {
		return func() {}, true, nil
	}
	key := RunLockKey(organizationID, plantID)
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		_ = l.client.Del(context.Background(), key).Err()
	}, true, nil
}
