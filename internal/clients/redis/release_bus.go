package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/upbeat-works/edgecms/internal/pkg/logger"
)

// ReleaseEvent is broadcast after a promote flips the live version, so
// edge caches and editor UIs can react without polling the version table.
type ReleaseEvent struct {
	Kind      string    `json:"kind"` // "released" | "rolled_back"
	VersionID int64     `json:"version_id"`
	At        time.Time `json:"at"`
}

type ReleaseEventBus interface {
	Publish(ctx context.Context, ev ReleaseEvent) error
	Subscribe(ctx context.Context, onEvent func(ev ReleaseEvent)) error
	Close() error
}

type releaseEventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewReleaseEventBus(log *logger.Logger) (ReleaseEventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_RELEASE_CHANNEL"))
	if ch == "" {
		ch = "release_events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &releaseEventBus{
		log:     log.With("service", "ReleaseEventBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *releaseEventBus) Publish(ctx context.Context, ev ReleaseEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal release event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish release event: %w", err)
	}
	return nil
}

func (b *releaseEventBus) Subscribe(ctx context.Context, onEvent func(ev ReleaseEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe release events: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev ReleaseEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("Dropping malformed release event", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *releaseEventBus) Close() error {
	return b.rdb.Close()
}
