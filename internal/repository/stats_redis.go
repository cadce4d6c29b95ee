package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

// RedisStatsRepository keeps the counters in one hash, "<table>:<id>".
type RedisStatsRepository struct {
	rdb redis.UniversalClient
	key string
}

func NewRedisStatsRepository(rdb redis.UniversalClient, table, id string) *RedisStatsRepository {
	return &RedisStatsRepository{
		rdb: rdb,
		key: table + ":" + id,
	}
}

// Add applies all non-zero deltas in a single MULTI/EXEC.
func (r *RedisStatsRepository) Add(ctx context.Context, deltas model.Deltas) error {
	fields := deltas.NonZero()
	if len(fields) == 0 {
		return nil
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range fields {
			pipe.HIncrBy(ctx, r.key, string(f), deltas[f])
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", r.key, err)
	}

	return nil
}

func (r *RedisStatsRepository) Read(ctx context.Context) (*model.Stats, error) {
	names := make([]string, 0, len(model.StatsFields))
	for _, f := range model.StatsFields {
		names = append(names, string(f))
	}

	values, err := r.rdb.HMGet(ctx, r.key, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.key, err)
	}

	var stats model.Stats

	for i, v := range values {
		if v == nil {
			continue
		}

		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected %T for %s.%s", v, r.key, names[i])
		}

		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s.%s: %w", r.key, names[i], err)
		}

		stats.Set(model.StatsFields[i], n)
	}

	return &stats, nil
}
