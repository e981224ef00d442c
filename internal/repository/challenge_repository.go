package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "auth:challenge:"

// Consume outcomes reported by the compare-and-delete script.
const (
	consumeMissing  = -1
	consumeMismatch = 0
	consumeMatched  = 1
)

// consumeScript compares the stored answer and deletes the record in one
// server-side step. Only the first caller with the right answer can observe
// the record and delete it; a concurrent second caller sees absence. A wrong
// answer leaves the record in place until its TTL lapses.
var consumeScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if not stored then
  return -1
end
if stored ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// ChallengeRepository stores single-use login challenges in Redis.
type ChallengeRepository struct {
	client *redis.Client
}

// NewChallengeRepository constructs a challenge repository.
func NewChallengeRepository(client *redis.Client) *ChallengeRepository {
	return &ChallengeRepository{client: client}
}

// Save stores the expected answer under the challenge id with the given TTL.
// Answers are lowercased so validation is case-insensitive.
func (r *ChallengeRepository) Save(ctx context.Context, id, answer string, ttl time.Duration) error {
	key := challengeKeyPrefix + id
	if err := r.client.Set(ctx, key, strings.ToLower(answer), ttl).Err(); err != nil {
		return fmt.Errorf("redis challenge set: %w", err)
	}
	return nil
}

// Consume atomically checks the supplied answer against the stored record.
// Returns (matched, found): (true, true) deletes the record, (false, true)
// keeps it, (false, false) means expired or already consumed.
func (r *ChallengeRepository) Consume(ctx context.Context, id, answer string) (bool, bool, error) {
	key := challengeKeyPrefix + id
	res, err := consumeScript.Run(ctx, r.client, []string{key}, strings.ToLower(answer)).Int()
	if err != nil {
		return false, false, fmt.Errorf("redis challenge consume: %w", err)
	}
	switch res {
	case consumeMatched:
		return true, true, nil
	case consumeMismatch:
		return false, true, nil
	default:
		return false, false, nil
	}
}
