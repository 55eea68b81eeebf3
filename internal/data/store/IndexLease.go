package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/akolanti/ClinicalRAG/internal/adapter/utils"
	"github.com/akolanti/ClinicalRAG/internal/config"
	"github.com/akolanti/ClinicalRAG/internal/data/redisStore"
	"github.com/akolanti/ClinicalRAG/pkg/logger_i"
)

var ErrLeaseHeld = errors.New("index writer lease is held by another process")

// IndexLease guards the on-disk index against a second writer process.
type IndexLease interface {
	Acquire(ctx context.Context) error
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}

type RedisIndexLease struct {
	store  *redisStore.Store
	key    string
	token  string
	ttl    time.Duration
	logger *logger_i.Logger
}

// GetIndexLease returns a redis backed lease, or a process local one when redis is offline.
func GetIndexLease(ctx context.Context) IndexLease {
	rs := redisStore.GetRedisStore(ctx, config.RedisLeaseStore)
	if rs == nil {
		logger_i.NewLogger("IndexLease").Warn("Redis offline, index writer lease is process local only")
		return NewLocalIndexLease()
	}
	return NewRedisIndexLease(rs, config.IndexLeaseKey, config.IndexLeaseTTL)
}

func NewRedisIndexLease(rs *redisStore.Store, key string, ttl time.Duration) *RedisIndexLease {
	host, _ := os.Hostname()
	return &RedisIndexLease{
		store:  rs,
		key:    key,
		token:  host + "/" + utils.GetNewUUID(),
		ttl:    ttl,
		logger: logger_i.NewLogger("IndexLease"),
	}
}

func (l *RedisIndexLease) Acquire(ctx context.Context) error {
	ok, err := l.store.SetIfAbsent(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		holder, err := l.store.Get(ctx, l.key)
		if l.store.IsNil(err) {
			// expired between the two calls
			return l.Acquire(ctx)
		}
		l.logger.Error("Index writer lease already held", "holder", holder)
		return ErrLeaseHeld
	}
	l.logger.Info("Index writer lease acquired", "token", l.token)
	return nil
}

func (l *RedisIndexLease) Renew(ctx context.Context) error {
	ok, err := l.store.ExpireIfOwner(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLeaseHeld
	}
	return nil
}

func (l *RedisIndexLease) Release(ctx context.Context) error {
	_, err := l.store.DeleteIfOwner(ctx, l.key, l.token)
	return err
}

type LocalIndexLease struct {
	mu   sync.Mutex
	held bool
}

func NewLocalIndexLease() *LocalIndexLease {
	return &LocalIndexLease{}
}

func (l *LocalIndexLease) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return ErrLeaseHeld
	}
	l.held = true
	return nil
}

func (l *LocalIndexLease) Renew(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return ErrLeaseHeld
	}
	return nil
}

func (l *LocalIndexLease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// KeepAlive renews lease every interval until ctx ends. lost is called once if a renewal fails.
func KeepAlive(ctx context.Context, lease IndexLease, interval time.Duration, lost func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lease.Renew(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				lost(err)
				return
			}
		}
	}
}
