// Package redisq pushes dispatch events onto a Redis list so downstream
// workers can consume them with BRPOP.
package redisq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/erdispatch/core/events"
	coremon "github.com/kilianp07/erdispatch/core/monitoring"
	"github.com/kilianp07/erdispatch/infra/logger"
)

// DefaultKey is the list events are pushed to when Config.Key is empty.
const DefaultKey = "erdispatch:events"

// Config holds the Redis connection and queue settings.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
	// MaxLen caps the list length. Zero keeps every event.
	MaxLen int64 `json:"max_len"`
}

type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Close() error
}

type entry struct {
	Type      events.Type `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Forwarder implements events.Forwarder on top of a Redis list.
type Forwarder struct {
	cli    listClient
	key    string
	maxLen int64
	log    logger.Logger
}

// NewForwarder connects to Redis and checks the connection with PING.
func NewForwarder(ctx context.Context, cfg Config) (*Forwarder, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newForwarder(rdb, cfg), nil
}

func newForwarder(cli listClient, cfg Config) *Forwarder {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &Forwarder{cli: cli, key: key, maxLen: cfg.MaxLen, log: logger.New("redis_forwarder")}
}

// Name implements events.Forwarder.
func (f *Forwarder) Name() string { return "redis" }

// Forward pushes ev to the head of the list.
func (f *Forwarder) Forward(ctx context.Context, ev events.Event) error {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.Marshal(entry{Type: ev.Type, Payload: ev.Payload, Timestamp: ts.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.cli.LPush(ctx, f.key, payload).Err(); err != nil {
		err = fmt.Errorf("failed to push event to Redis: %w", err)
		coremon.CaptureException(err, map[string]string{"module": "redis", "event": string(ev.Type)})
		return err
	}
	if f.maxLen > 0 {
		if err := f.cli.LTrim(ctx, f.key, 0, f.maxLen-1).Err(); err != nil {
			f.log.Warnf("trim %s: %v", f.key, err)
		}
	}
	f.log.Debugf("pushed %s to %s", ev.Type, f.key)
	return nil
}

// Close releases the connection pool.
func (f *Forwarder) Close() error { return f.cli.Close() }
