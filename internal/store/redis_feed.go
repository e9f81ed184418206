package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const defaultRedisChannel = "takwira:players"

// RedisFeedConfig holds configuration for the Redis change feed.
type RedisFeedConfig struct {
	RedisClient *redis.Client
	// Channel defaults to "takwira:players".
	Channel string
	Logger  *slog.Logger
}

// RedisFeed fans change notifications out over Redis pub/sub so every
// process serving the same database sees writes made by the others.
type RedisFeed struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisFeed(cfg *RedisFeedConfig) (*RedisFeed, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	channel := cfg.Channel
	if channel == "" {
		channel = defaultRedisChannel
	}
	return &RedisFeed{client: cfg.RedisClient, channel: channel, logger: cfg.Logger}, nil
}

func (f *RedisFeed) Notify(ctx context.Context) error {
	if err := f.client.Publish(ctx, f.channel, "change").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	l := newListener(onChange)
	sub := &redisSubscription{pubsub: pubsub, listener: l, stopped: make(chan struct{})}
	go func() {
		defer close(sub.stopped)
		for range pubsub.Channel() {
			l.signal()
		}
	}()
	if f.logger != nil {
		f.logger.Debug("redis feed subscribed", "channel", f.channel)
	}
	return sub, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	listener *listener
	stopped  chan struct{}
	once     sync.Once
	err      error
}

func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
		<-s.stopped
		s.listener.stop()
	})
	return s.err
}
