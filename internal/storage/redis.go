package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/chezmonami/marketplace-server/internal/redis"
)

// RedisStore persists one scope's keys in redis and publishes each
// mutation on the scope's change channel so other contexts (tabs, other
// server instances) observe it. Changes carry the writer's origin id;
// a RedisStore filters its own writes out of its watch stream.
type RedisStore struct {
	client *redisclient.Client
	scope  string
	origin string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)
var _ Watcher = (*RedisStore)(nil)

// NewRedisStore creates a store for the given scope. A zero ttl keeps
// entries until removed.
func NewRedisStore(client *redisclient.Client, scope string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		scope:  scope,
		origin: uuid.NewString(),
		ttl:    ttl,
	}
}

func (s *RedisStore) Scope() string {
	return s.scope
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisclient.StorageKey(s.scope, key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisclient.StorageKey(s.scope, key), value, s.ttl).Err(); err != nil {
		return err
	}
	s.publish(ctx, Change{Key: key, Value: value, Origin: s.origin})
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisclient.StorageKey(s.scope, key)).Err(); err != nil {
		return err
	}
	s.publish(ctx, Change{Key: key, Origin: s.origin})
	return nil
}

func (s *RedisStore) publish(ctx context.Context, change Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		log.Error().Err(err).Str("key", change.Key).Msg("failed to marshal storage change")
		return
	}
	if err := s.client.Publish(ctx, redisclient.StorageChannel(s.scope), payload).Err(); err != nil {
		// Notification is best effort; the write itself already landed.
		log.Warn().Err(err).Str("scope", s.scope).Msg("failed to publish storage change")
	}
}

func (s *RedisStore) Watch(ctx context.Context) (<-chan Change, func()) {
	watchCtx, cancel := context.WithCancel(ctx)
	pubsub := s.client.Subscribe(watchCtx, redisclient.StorageChannel(s.scope))
	ch := make(chan Change, 16)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
		})
	}

	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal storage change")
				continue
			}
			if change.Origin == s.origin {
				continue
			}
			select {
			case ch <- change:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return ch, stop
}
