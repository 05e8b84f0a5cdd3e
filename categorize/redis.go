package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pantrycook:category:"

// upsertScript applies keepExisting atomically on the server. Pinned entries are stored
// without expiry; everything else gets the cache TTL.
var upsertScript = redis.NewScript(`
local incoming = cjson.decode(ARGV[1])
local current = redis.call('GET', KEYS[1])
if current then
  local existing = cjson.decode(current)
  local keep
  if (existing.pinned == true) ~= (incoming.pinned == true) then
    keep = existing.pinned == true
  elseif existing.pinned == true then
    keep = false
  else
    keep = existing.confidence > incoming.confidence
  end
  if keep then
    return current
  end
end
local ttl = tonumber(ARGV[2])
if incoming.pinned == true or ttl <= 0 then
  redis.call('SET', KEYS[1], ARGV[1])
else
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
end
return ARGV[1]
`)

// RedisCache shares categorizations between processes. Expiry of unpinned entries is left to
// Redis key TTLs.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache wraps client. A zero ttl never expires entries.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisCache) Get(ctx context.Context, key string) (Categorization, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Categorization{}, false, nil
	}
	if err != nil {
		return Categorization{}, false, fmt.Errorf("failed to get categorization %q: %w", key, err)
	}

	var c Categorization
	if err := json.Unmarshal(raw, &c); err != nil {
		return Categorization{}, false, fmt.Errorf("failed to decode categorization %q: %w", key, err)
	}
	return c, true, nil
}

func (r *RedisCache) Upsert(ctx context.Context, c Categorization) (Categorization, error) {
	c.UpdatedAt = r.now()
	payload, err := json.Marshal(c)
	if err != nil {
		return Categorization{}, fmt.Errorf("failed to encode categorization %q: %w", c.Key, err)
	}

	stored, err := upsertScript.Run(ctx, r.client, []string{redisKeyPrefix + c.Key}, payload, r.ttl.Milliseconds()).Text()
	if err != nil {
		return Categorization{}, fmt.Errorf("failed to upsert categorization %q: %w", c.Key, err)
	}

	var winner Categorization
	if err := json.Unmarshal([]byte(stored), &winner); err != nil {
		return Categorization{}, fmt.Errorf("failed to decode categorization %q: %w", c.Key, err)
	}
	return winner, nil
}
