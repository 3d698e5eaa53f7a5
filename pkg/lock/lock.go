// Package lock provides a Redis-backed lock used to serialize enrollment
// attempts for the same contact and campaign across engine instances.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Second

// releaseScript deletes the key only when it still holds our token, so an
// expired lock picked up by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Manager struct {
	client *redis.Client
	ttl    time.Duration
}

func NewManager(redisURL string) (*Manager, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Manager{
		client: redis.NewClient(opts),
		ttl:    defaultTTL,
	}, nil
}

// Acquire takes the lock for the campaign/contact pair. It returns a release
// function and true on success, or false when another holder has the lock.
func (m *Manager) Acquire(ctx context.Context, campaignID, contactID string) (func(), bool, error) {
	key := "cadence:enroll:" + campaignID + ":" + contactID
	token := uuid.New().String()

	acquired, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire enrollment lock: %w", err)
	}

	if !acquired {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = releaseScript.Run(releaseCtx, m.client, []string{key}, token).Err()
	}

	return release, true, nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}
