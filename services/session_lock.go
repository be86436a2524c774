package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dimz119/project-saeum/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionLocker serialises reconciliation of one checkout session across
// replicas. It is an optimisation: the unique transaction id is what
// guarantees a single payment.
type SessionLocker interface {
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (release func(), acquired bool, err error)
}

// SummaryCache keeps recently produced order summaries by session id.
type SummaryCache interface {
	Get(ctx context.Context, sessionID string) (*models.OrderSummary, bool)
	Set(ctx context.Context, sessionID string, summary *models.OrderSummary)
}

const (
	lockKeyPrefix    = "checkout:lock:"
	summaryKeyPrefix = "checkout:summary:"
	summaryTTL       = 10 * time.Minute
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired holder never frees a lock someone else has taken since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (func(), bool, error) {
	key := lockKeyPrefix + sessionID
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, s.client, []string{key}, token).Err()
	}
	return release, true, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.OrderSummary, bool) {
	raw, err := s.client.Get(ctx, summaryKeyPrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}
	var summary models.OrderSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (s *RedisSessionStore) Set(ctx context.Context, sessionID string, summary *models.OrderSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, summaryKeyPrefix+sessionID, raw, summaryTTL).Err()
}
