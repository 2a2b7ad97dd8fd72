package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idproof/pkg/domain"
	"idproof/pkg/platform/sentinel"
)

const sessionKeyPrefix = "session:"

// RedisStore is the Redis-backed session store for deployments where the API
// tier restarts independently of in-flight sessions. Sessions expire after
// the configured TTL; an expired session is simply not found.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id domain.SessionID) string {
	return sessionKeyPrefix + id.String()
}

func (st *RedisStore) Create(ctx context.Context, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := st.client.SetNX(ctx, sessionKey(s.ID), payload, st.ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (st *RedisStore) Get(ctx context.Context, id domain.SessionID) (*Session, error) {
	payload, err := st.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Update commits the session if its stored version still matches the version
// the caller read. The check-and-set runs under WATCH so racing writers fail
// with ErrConflict instead of clobbering each other.
func (st *RedisStore) Update(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)

	err := st.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current Session
		if err := json.Unmarshal(payload, &current); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if current.Version != s.Version {
			return sentinel.ErrConflict
		}

		s.Version++
		updated, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, st.ttl)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
