package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisPrefix  = "finsight:"
	redisChannel = "finsight:changes"
)

// RedisStore is a Store shared by every front-end instance through Redis.
// Changes are published on a single channel; each store holds one
// subscription to it and fans changes out to its subscribers in memory.
type RedisStore struct {
	client  *redis.Client
	log     *logrus.Logger
	changes *fanout

	mu     sync.Mutex
	pubsub *redis.PubSub
}

// NewRedisConnection connects to Redis and pings it
func NewRedisConnection(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewRedisStore wraps a connected client
func NewRedisStore(client *redis.Client, log *logrus.Logger) *RedisStore {
	return &RedisStore{client: client, log: log, changes: newFanout()}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, redisPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, redisPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	r.publish(ctx, Change{Key: key})
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, redisPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if n > 0 {
		r.publish(ctx, Change{Key: key, Deleted: true})
	}
	return nil
}

func (r *RedisStore) Keys(ctx context.Context, suffix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisPrefix+"*"+suffix, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	return keys, nil
}

// publish is best-effort: the write already happened
func (r *RedisStore) publish(ctx context.Context, c Change) {
	payload, _ := json.Marshal(c)
	if err := r.client.Publish(ctx, redisChannel, payload).Err(); err != nil {
		r.log.WithError(err).Warnf("Failed to publish change for %s", c.Key)
	}
}

// Subscribe registers key with the store's shared subscription, started on first use
func (r *RedisStore) Subscribe(ctx context.Context, key string) (<-chan Change, func(), error) {
	if err := r.listen(ctx); err != nil {
		return nil, nil, err
	}
	ch, cancel := r.changes.add(ctx, key)
	return ch, cancel, nil
}

// listen opens the one subscription to the change channel of this store
func (r *RedisStore) listen(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return nil
	}

	pubsub := r.client.Subscribe(context.WithoutCancel(ctx), redisChannel)
	// Wait for the subscription to be confirmed so no change published
	// after Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	r.pubsub = pubsub
	go r.dispatch(pubsub.Channel())
	return nil
}

func (r *RedisStore) dispatch(msgs <-chan *redis.Message) {
	for msg := range msgs {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			r.log.WithError(err).Warn("Ignoring malformed change notification")
			continue
		}
		r.changes.notify(c)
	}
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	if r.pubsub != nil {
		r.pubsub.Close()
	}
	r.mu.Unlock()
	r.changes.close()
	return r.client.Close()
}
