package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/lecture-grader/internal/b3"
)

const cacheKeyPrefix = "emb:"

// kv is the subset of a key-value store the cache needs.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisKV struct {
	client *redis.Client
}

func (r *redisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *redisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// CachedEmbedder memoizes vectors in Redis keyed by the blake3 hash of the
// text. Cache failures are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next   Embedder
	store  kv
	ttl    time.Duration
	log    logrus.FieldLogger
	client *redis.Client
}

// NewRedisCache connects to addr and wraps next.
func NewRedisCache(ctx context.Context, next Embedder, addr string, ttl time.Duration, log logrus.FieldLogger) (*CachedEmbedder, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	c := newCachedEmbedder(next, &redisKV{client: client}, ttl, log)
	c.client = client
	return c, nil
}

func newCachedEmbedder(next Embedder, store kv, ttl time.Duration, log logrus.FieldLogger) *CachedEmbedder {
	return &CachedEmbedder{next: next, store: store, ttl: ttl, log: log}
}

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKeyPrefix + b3.HashString(text)

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.WithError(err).Warn("embedding cache read failed")
	} else if ok {
		if vec, err := decodeVector(raw); err == nil {
			return vec, nil
		}
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, encodeVector(vec), c.ttl); err != nil {
		c.log.WithError(err).Warn("embedding cache write failed")
	}
	return vec, nil
}

// Close closes the Redis connection and the wrapped embedder if it holds
// resources.
func (c *CachedEmbedder) Close() error {
	var err error
	if closer, ok := c.next.(Closer); ok {
		err = closer.Close()
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
