// Package redis implements lock.Locker on Redis so that several lorekeeper
// processes importing into the same store serialize work on a path.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/poiesic/lorekeeper/lock"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "lorekeeper:lock:"

	// DefaultTTL bounds how long a crashed holder keeps a path locked.
	DefaultTTL = 2 * time.Minute

	// DefaultRetryInterval is the polling interval while waiting for a held key.
	DefaultRetryInterval = 100 * time.Millisecond
)

// ErrNotHeld is returned by Extend when the key is owned by someone else.
var ErrNotHeld = errors.New("lock not held by this instance")

// Locker implements lock.Locker with SET NX and a TTL. Held locks are
// extended in the background at half the TTL until released.
type Locker struct {
	client        *redis.Client
	ownerID       string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

var _ lock.Locker = (*Locker)(nil)

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets the key expiry.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets the polling interval while a key is held elsewhere.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Locker using client.
func New(client *redis.Client, opts ...Option) *Locker {
	l := &Locker{
		client:        client,
		ownerID:       generateOwnerID(),
		ttl:           DefaultTTL,
		retryInterval: DefaultRetryInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "redis-lock")
	return l
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string, opts ...Option) (*Locker, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, opts...), nil
}

// generateOwnerID returns hostname:pid:random.
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// OwnerID identifies this instance in lock values.
func (l *Locker) OwnerID() string {
	return l.ownerID
}

// TryAcquire makes a single SET NX attempt.
func (l *Locker) TryAcquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, l.ownerID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Lock polls until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	keepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go l.keepAlive(keepCtx, key, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
			if err := l.Release(context.WithoutCancel(ctx), key); err != nil {
				l.logger.Warn("release failed", "key", key, "err", err)
			}
		})
	}, nil
}

func (l *Locker) keepAlive(ctx context.Context, key string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Extend(ctx, key); err != nil {
				if ctx.Err() == nil {
					l.logger.Warn("extend failed", "key", key, "err", err)
				}
				return
			}
		}
	}
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Release deletes the key if this instance owns it.
func (l *Locker) Release(ctx context.Context, key string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, l.ownerID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend resets the TTL of a key held by this instance.
func (l *Locker) Extend(ctx context.Context, key string) error {
	n, err := extendScript.Run(ctx, l.client, []string{keyPrefix + key}, l.ownerID, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotHeld, key)
	}
	return nil
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}
