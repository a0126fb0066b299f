package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/kinview-backend/internal/config"
	"github.com/yungbote/kinview-backend/internal/observability"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

type redisBus struct {
	log    *logger.Logger
	rdb    *redis.Client
	prefix string
}

// NewRedisBus publishes each session's events on its own channel so several
// API replicas can serve the same session's event stream.
func NewRedisBus(ctx context.Context, cfg config.EventsConfig, log *logger.Logger) (Bus, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, fmt.Errorf("events: missing redis addr")
	}
	prefix := strings.TrimSpace(cfg.ChannelPrefix)
	if prefix == "" {
		prefix = "kinview:session:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.RedisPassword,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:    log.With("service", "RedisEventBus"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (b *redisBus) channel(sessionID string) string {
	return b.prefix + sessionID
}

func (b *redisBus) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(e.SessionID), raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	sctx, cancel := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(sctx, b.channel(sessionID))

	// ensures the subscription is live before returning
	if _, err := sub.Receive(sctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-sctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				select {
				case out <- e:
				default:
					b.log.Warn("event dropped for slow subscriber", "session_id", sessionID, "type", e.Type)
					observability.Current().IncEventDropped(e.Type)
				}
			}
		}
	}()
	return out, cancel, nil
}

func (b *redisBus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
