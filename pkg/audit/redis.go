package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/uoft-netops/uoft-tools/pkg/util"
)

// DefaultRedisMaxLen caps the shared audit list.
const DefaultRedisMaxLen = 10000

// redisTimeout bounds each audit write or query.
const redisTimeout = 5 * time.Second

// RedisLogger appends events to a capped Redis list so that several
// operators share one audit trail.
type RedisLogger struct {
	client *redis.Client
	key    string
	maxLen int64
}

// NewRedisLogger connects to addr and verifies the connection.
func NewRedisLogger(ctx context.Context, addr, key string, maxLen int64) (*RedisLogger, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to audit redis at %s: %w", addr, err)
	}
	if maxLen <= 0 {
		maxLen = DefaultRedisMaxLen
	}
	return &RedisLogger{client: client, key: key, maxLen: maxLen}, nil
}

// Log appends the event and trims the list to maxLen entries
func (l *RedisLogger) Log(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.key, data)
	pipe.LTrim(ctx, l.key, -l.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing audit event to redis: %w", err)
	}
	return nil
}

// Query reads the list oldest first and applies the filter
func (l *RedisLogger) Query(filter Filter) ([]*Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	items, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading audit events from redis: %w", err)
	}
	var events []*Event
	for i, item := range items {
		var event Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			util.Warnf("audit: skipping malformed redis entry %d: %v", i, err)
			continue
		}
		if filter.Match(&event) {
			events = append(events, &event)
		}
	}
	return filter.page(events), nil
}

// Close closes the redis connection
func (l *RedisLogger) Close() error {
	return l.client.Close()
}
