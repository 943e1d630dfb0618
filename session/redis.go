package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisStore implements Store on Redis. Keys carry a TTL matching the
// session expiry, so Redis evicts them itself and DeleteExpired has nothing
// left to do.
type redisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func (s *redisStore) key(id string) string { return s.prefix + id }

func (s *redisStore) Put(ctx context.Context, data *Session) error {
	ttl := data.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, data.ID)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}
	if err := s.client.Set(ctx, s.key(data.ID), payload, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to store session %s", data.ID)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load session %s", id)
	}
	var data Session
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	return &data, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete session %s", id)
	}
	return nil
}

func (s *redisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
