package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blacklistKeyPrefix  = "auth:blacklist:"
	securityVersionKey  = "auth:secver:"
	blacklistMarkerBody = "1"
)

// RevocationRepository tracks blacklisted tokens and per-account security
// versions in the shared Redis store. Both facts must be visible to every
// service instance immediately, so no in-process caching happens here.
type RevocationRepository struct {
	client *redis.Client
}

// NewRevocationRepository constructs a revocation repository.
func NewRevocationRepository(client *redis.Client) *RevocationRepository {
	return &RevocationRepository{client: client}
}

// Blacklist marks a token unusable for the remainder of its natural life.
// Entries self-prune: the TTL equals the token's remaining validity, so no
// marker outlives its token. Idempotent; a non-positive TTL is a no-op since
// the token is already expired.
func (r *RevocationRepository) Blacklist(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	key := blacklistKeyPrefix + hashToken(token)
	if err := r.client.Set(ctx, key, blacklistMarkerBody, remaining).Err(); err != nil {
		return fmt.Errorf("redis blacklist set: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token has been revoked before expiry.
func (r *RevocationRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := blacklistKeyPrefix + hashToken(token)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis blacklist exists: %w", err)
	}
	return n > 0, nil
}

// GetSecurityVersion returns the account's current security version, zero if
// the account has never been force-invalidated.
func (r *RevocationRepository) GetSecurityVersion(ctx context.Context, userID string) (int64, error) {
	val, err := r.client.Get(ctx, securityVersionKey+userID).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis security version get: %w", err)
	}
	return val, nil
}

// BumpSecurityVersion atomically increments the account counter, invalidating
// every token minted with a lower embedded version. The key carries no TTL.
func (r *RevocationRepository) BumpSecurityVersion(ctx context.Context, userID string) (int64, error) {
	val, err := r.client.Incr(ctx, securityVersionKey+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("redis security version incr: %w", err)
	}
	return val, nil
}

// hashToken keeps Redis keys bounded; signed tokens routinely exceed
// comfortable key sizes.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
