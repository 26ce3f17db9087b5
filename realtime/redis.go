// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
)

// DefaultPrefix namespaces the pub/sub channels
const DefaultPrefix = "planning-poker:"

// NewRedisPool creates a connection pool for addr
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// RedisBroker shares room notifications between API instances over Redis
// pub/sub. Each instance holds one pattern subscription and fans the
// messages out to its local subscribers through a Hub.
type RedisBroker struct {
	pool   *redis.Pool
	prefix string
	hub    *Hub

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

func NewRedisBroker(pool *redis.Pool, prefix string) *RedisBroker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisBroker{
		pool:   pool,
		prefix: prefix,
		hub:    NewHub(),
		done:   make(chan struct{}),
	}
}

func (b *RedisBroker) channel(roomID string) string {
	return b.prefix + "room:" + roomID
}

// Publish announces a change to every instance, including this one
func (b *RedisBroker) Publish(ctx context.Context, roomID string) error {
	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PUBLISH", b.channel(roomID), "changed"); err != nil {
		return fmt.Errorf("failed to publish room change: %w", err)
	}
	return nil
}

// Subscribe registers a local subscriber for roomID
func (b *RedisBroker) Subscribe(roomID string) (<-chan struct{}, func()) {
	return b.hub.Subscribe(roomID)
}

// Start opens the pattern subscription and returns once Redis has
// confirmed it. Messages are relayed until ctx is done; use Wait to block
// on that.
func (b *RedisBroker) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("redis broker already started")
	}
	b.started = true
	b.mu.Unlock()

	conn, err := b.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis connection: %w", err)
	}
	psc := redis.PubSubConn{Conn: conn}

	if err := psc.PSubscribe(b.prefix + "room:*"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	switch v := psc.Receive().(type) {
	case redis.Subscription:
	case error:
		conn.Close()
		return fmt.Errorf("failed to confirm subscription: %w", v)
	default:
		conn.Close()
		return fmt.Errorf("unexpected reply to subscribe: %T", v)
	}

	slog.Info("redis room subscription ready", "pattern", b.prefix+"room:*")

	go func() {
		<-ctx.Done()
		psc.PUnsubscribe()
		conn.Close()
	}()

	go func() {
		err := b.receive(ctx, psc)
		b.hub.Close()

		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		close(b.done)
	}()

	return nil
}

func (b *RedisBroker) receive(ctx context.Context, psc redis.PubSubConn) error {
	channelPrefix := b.prefix + "room:"
	for {
		switch v := psc.Receive().(type) {
		case redis.Message:
			roomID := strings.TrimPrefix(v.Channel, channelPrefix)
			if err := b.hub.Publish(context.Background(), roomID); err != nil {
				return nil
			}
		case redis.Subscription:
			if v.Count == 0 {
				return nil
			}
		case error:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("redis subscription failed: %w", v)
		}
	}
}

// Wait blocks until the relay loop stops. It returns nil when the loop
// ended because the Start context was cancelled.
func (b *RedisBroker) Wait() error {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
