package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const messageKeyPrefix = "msg_idem:"

// IdempotencyRepo is a TTL fast path for message append replays. The
// durable guard is the unique (match_id, idempotency_key) index; a
// cache miss or error only means the lookup falls through to storage.
type IdempotencyRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewIdempotencyRepo(client *goredis.Client, ttl time.Duration) *IdempotencyRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyRepo{client: client, ttl: ttl}
}

func (r *IdempotencyRepo) Lookup(ctx context.Context, matchID uuid.UUID, key string) (uuid.UUID, bool, error) {
	if r.client == nil {
		return uuid.Nil, false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return uuid.Nil, false, fmt.Errorf("idempotency key is required")
	}

	raw, err := r.client.Get(ctx, messageKey(matchID, key)).Result()
	if err == goredis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get idempotency entry: %w", err)
	}

	messageID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parse cached message id: %w", err)
	}

	return messageID, true, nil
}

func (r *IdempotencyRepo) Remember(ctx context.Context, matchID uuid.UUID, key string, messageID uuid.UUID) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" || messageID == uuid.Nil {
		return fmt.Errorf("invalid idempotency entry")
	}

	if err := r.client.Set(ctx, messageKey(matchID, key), messageID.String(), r.ttl).Err(); err != nil {
		return fmt.Errorf("set idempotency entry: %w", err)
	}
	return nil
}

func messageKey(matchID uuid.UUID, key string) string {
	return messageKeyPrefix + matchID.String() + ":" + key
}
