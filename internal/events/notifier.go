package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"

	"keyrelay/internal/domain"
)

// DefaultChannel is the redis channel pool events are published on.
const DefaultChannel = "keyrelay:events:prekeys"

// LogNotifier writes pool events to a go-kit logger.
type LogNotifier struct {
	logger log.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger discards events.
func NewLogNotifier(logger log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs ev at warn level.
func (n *LogNotifier) Notify(_ context.Context, ev domain.PoolEvent) error {
	return level.Warn(n.logger).Log(
		"msg", "one-time pre-key pool needs replenishing",
		"event", string(ev.Kind),
		"user", ev.Address.User,
		"device", ev.Address.Device,
		"remaining", ev.Remaining,
	)
}

// RedisNotifier publishes pool events as JSON so the owning device, or a
// push gateway acting for it, can replenish.
type RedisNotifier struct {
	rdb     redis.UniversalClient
	channel string
}

// NewRedisNotifier returns a RedisNotifier publishing on channel, or on
// DefaultChannel when channel is empty.
func NewRedisNotifier(rdb redis.UniversalClient, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

// Notify publishes ev.
func (n *RedisNotifier) Notify(ctx context.Context, ev domain.PoolEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, b).Err()
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []domain.Notifier

// Notify implements domain.Notifier.
func (m Multi) Notify(ctx context.Context, ev domain.PoolEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compile-time assertions that the notifiers implement domain.Notifier.
var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*RedisNotifier)(nil)
	_ domain.Notifier = Multi(nil)
)
