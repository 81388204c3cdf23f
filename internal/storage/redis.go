package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// RedisStore shares the dialog id sequence between runs and machines, caches
// recent records and keeps per-flag counters for the whole dataset.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.NewStorageError("failed to connect to Redis", "redis", "ping", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", cfg.Addr()),
		zap.Int("db", cfg.DB),
	)

	return NewRedisStoreFromClient(client, logger), nil
}

func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger}
}

func (r *RedisStore) Name() string { return "redis" }

func recordKey(id int64) string {
	return fmt.Sprintf("dialoggen:dialog:%d", id)
}

// NextID increments the shared sequence.
func (r *RedisStore) NextID(ctx context.Context) (int64, error) {
	id, err := r.client.Incr(ctx, constants.StorageConfig.SequenceKey).Result()
	if err != nil {
		return 0, errors.NewStorageError("failed to allocate dialog id", r.Name(), "incr", err)
	}
	return id, nil
}

// EnsureFloor raises the sequence to at least floor, so ids never collide
// with records already written to disk.
func (r *RedisStore) EnsureFloor(ctx context.Context, floor int64) error {
	key := constants.StorageConfig.SequenceKey
	current, err := r.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return errors.NewStorageError("failed to read dialog id sequence", r.Name(), "get", err)
	}
	if current >= floor {
		return nil
	}
	if err := r.client.Set(ctx, key, floor, 0).Err(); err != nil {
		return errors.NewStorageError("failed to raise dialog id sequence", r.Name(), "set", err)
	}
	r.logger.Info("Dialog id sequence raised", zap.Int64("from", current), zap.Int64("to", floor))
	return nil
}

// Save caches the record and bumps the flag counters in one pipeline.
func (r *RedisStore) Save(ctx context.Context, rec *domain.DialogueRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewStorageError("failed to encode dialogue record", r.Name(), "save", err)
	}

	countersKey := constants.StorageConfig.FlagCountersKey
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.DialogID), data, constants.StorageConfig.RecordCacheTTL)
		pipe.HIncrBy(ctx, countersKey, "dialogs", 1)
		for name, raised := range rec.ValidationFlags.Named() {
			if raised {
				pipe.HIncrBy(ctx, countersKey, name, 1)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Redis save failed", zap.Int64("dialog_id", rec.DialogID), zap.Error(err))
		return errors.NewStorageError("failed to cache dialogue record", r.Name(), "save", err)
	}
	return nil
}

// Get returns a cached record, or nil when it expired or never existed.
func (r *RedisStore) Get(ctx context.Context, id int64) (*domain.DialogueRecord, error) {
	value, err := r.client.Get(ctx, recordKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to read cached record", r.Name(), "get", err)
	}
	var rec domain.DialogueRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return nil, errors.NewStorageError("failed to decode cached record", r.Name(), "get", err)
	}
	return &rec, nil
}

// FlagCounts returns the dataset-wide counters, including "dialogs".
func (r *RedisStore) FlagCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, constants.StorageConfig.FlagCountersKey).Result()
	if err != nil {
		return nil, errors.NewStorageError("failed to read flag counters", r.Name(), "hgetall", err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out[k] = n
		}
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
