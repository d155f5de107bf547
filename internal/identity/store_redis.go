// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/lumina/internal/platform/constants"
)

// RedisTokenStore implements [TokenStore] with expiring Redis keys.
type RedisTokenStore struct {
	client redis.UniversalClient
}

// NewRedisTokenStore creates a Redis-backed verification token store.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

/*
Save stores the account id under the token hash with a TTL.

Parameters:
  - context: context.Context
  - tokenHash: string (hex SHA-256 of the token)
  - accountID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (store *RedisTokenStore) Save(context context.Context, tokenHash, accountID string, ttl time.Duration) error {
	if err := store.client.Set(context, constants.RedisPrefixVerifyToken+tokenHash, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_set_failed: %w", err)
	}
	return nil
}

/*
Consume reads and deletes the token in one round trip, so a token can be
redeemed at most once even under concurrent requests.

Returns:
  - string: The account id the token was issued for
  - error: ErrNotFound if absent or expired, otherwise connectivity errors
*/
func (store *RedisTokenStore) Consume(context context.Context, tokenHash string) (string, error) {
	accountID, err := store.client.GetDel(context, constants.RedisPrefixVerifyToken+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis_verify_token_consume_failed: %w", err)
	}
	return accountID, nil
}
