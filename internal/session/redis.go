package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes snapshots on Redis pub/sub so watchers attached
// to any service instance see writes made by every other instance.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisNotifier connects to addr and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr, channel string, logger *slog.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping %s: %w", addr, err)
	}
	return &RedisNotifier{client: client, prefix: channel, logger: logging.Or(logger)}, nil
}

// Close releases the Redis connection pool.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) channel(id string) string {
	return n.prefix + ":" + id
}

// Publish implements Notifier.
func (n *RedisNotifier) Publish(ctx context.Context, snap Session) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel(snap.ID), data).Err(); err != nil {
		return fmt.Errorf("session: redis publish: %w", err)
	}
	return nil
}

// Subscribe implements Notifier.
func (n *RedisNotifier) Subscribe(ctx context.Context, id string) (<-chan Session, error) {
	ps := n.client.Subscribe(ctx, n.channel(id))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("session: redis subscribe: %w", err)
	}

	out := make(chan Session, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() { _ = ps.Close() }()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				snap, err := decodeSnapshot(msg.Payload)
				if err != nil {
					n.logger.Warn("session: bad snapshot on redis", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- snap:
				default:
					n.logger.Warn("session: dropping snapshot for slow watcher", "session_id", id)
				}
			}
		}
	}()
	return out, nil
}

func decodeSnapshot(payload string) (Session, error) {
	var snap Session
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return Session{}, err
	}
	return snap, nil
}
