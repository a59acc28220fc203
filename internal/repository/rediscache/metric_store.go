// Package rediscache keeps metric snapshots in Redis hashes and announces
// accepted writes on a pub/sub channel per key.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/metricbus"
)

const (
	keyPrefix     = "metric:"
	channelPrefix = "metrics:"
)

// compareAndSet writes the hash only when the stored stamp is older.
// Stamps are zero-padded nanoseconds so string comparison orders them;
// Lua numbers would lose precision at this size.
var compareAndSet = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'computed_at_ns')
if current and current >= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'value', ARGV[2], 'computed_at_ns', ARGV[1], 'source', ARGV[3])
redis.call('PUBLISH', ARGV[4], ARGV[5])
return 1
`)

// MetricStore implements metricbus.Store on Redis.
type MetricStore struct {
	client *redis.Client
	logger *zap.Logger
}

var _ metricbus.Store = (*MetricStore)(nil)

// NewMetricStore parses redisURL, connects and pings the server.
func NewMetricStore(ctx context.Context, redisURL string, logger *zap.Logger) (*MetricStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", opt.Addr))
	return &MetricStore{client: client, logger: logger}, nil
}

// Channel returns the pub/sub channel announcing updates of key.
func Channel(key string) string {
	return channelPrefix + key
}

func stamp(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

// Get implements metricbus.Store.
func (s *MetricStore) Get(ctx context.Context, key string) (models.MetricSnapshot, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("failed to read metric %s: %w", key, err)
	}
	if len(fields) == 0 {
		return models.MetricSnapshot{}, metricbus.ErrUnknownMetric
	}
	return decodeHash(key, fields)
}

// CompareAndSet implements metricbus.Store.
func (s *MetricStore) CompareAndSet(ctx context.Context, snap models.MetricSnapshot) (bool, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encode metric %s: %w", snap.Key, err)
	}

	res, err := compareAndSet.Run(ctx, s.client,
		[]string{keyPrefix + snap.Key},
		stamp(snap.ComputedAt),
		strconv.FormatFloat(snap.Value, 'f', -1, 64),
		snap.Source,
		Channel(snap.Key),
		string(payload),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store metric %s: %w", snap.Key, err)
	}

	s.logger.Debug("metric write", zap.String("key", snap.Key), zap.Bool("accepted", res == 1))
	return res == 1, nil
}

// Close closes the Redis connection pool.
func (s *MetricStore) Close() error {
	return s.client.Close()
}

func decodeHash(key string, fields map[string]string) (models.MetricSnapshot, error) {
	value, err := strconv.ParseFloat(fields["value"], 64)
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("decode metric %s value: %w", key, err)
	}
	ns, err := strconv.ParseInt(fields["computed_at_ns"], 10, 64)
	if err != nil {
		return models.MetricSnapshot{}, fmt.Errorf("decode metric %s stamp: %w", key, err)
	}
	return models.MetricSnapshot{
		Key:        key,
		Value:      value,
		ComputedAt: time.Unix(0, ns).UTC(),
		Source:     fields["source"],
	}, nil
}
