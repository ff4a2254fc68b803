package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ChartReplay/internal/domain/models"
	applogger "ChartReplay/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher mirrors push events onto a Redis pub/sub channel so
// other processes (alerting, session recorders) can follow the replay.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	l       *applogger.Logger
}

// RedisOption configures RedisPublisher.
type RedisOption func(*redisConfig)

type redisConfig struct {
	host     string
	port     int
	password string
	db       int
	channel  string
	poolSize int
}

// WithRedisAddr sets host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *redisConfig) {
		c.host = host
		c.port = port
	}
}

// WithRedisAuth sets password and database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *redisConfig) {
		c.password = password
		c.db = db
	}
}

// WithRedisChannel sets the pub/sub channel name.
func WithRedisChannel(channel string) RedisOption {
	return func(c *redisConfig) {
		if channel != "" {
			c.channel = channel
		}
	}
}

func NewRedisPublisher(opts ...RedisOption) (*RedisPublisher, error) {
	cfg := &redisConfig{
		host:     "localhost",
		port:     6379,
		channel:  "chartreplay.events",
		poolSize: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.host, cfg.port),
		Password: cfg.password,
		DB:       cfg.db,
		PoolSize: cfg.poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{client: client, channel: cfg.channel}, nil
}

// SetLogger injects a structured logger.
func (p *RedisPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *RedisPublisher) Deliver(ctx context.Context, ev *models.PushEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		if p.l != nil {
			p.l.Warn("redis publish error",
				applogger.String("channel", p.channel),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
