package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"travel-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pools are stored as one hash per resource: kind, total (absent when unbounded),
// available and version. All mutations run as Lua so the check and the write
// cannot interleave with another client.

// KEYS[1] = pool hash
// ARGV[1] = kind, ARGV[2] = available, ARGV[3] = total or "", ARGV[4] = now
// Returns 1 when created, 0 when the pool already exists.
var registerPoolScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
    return 0
end
redis.call('HSET', KEYS[1], 'kind', ARGV[1], 'available', ARGV[2], 'version', 0, 'updated_at', ARGV[4])
if ARGV[3] ~= '' then
    redis.call('HSET', KEYS[1], 'total', ARGV[3])
end
return 1
`)

// KEYS[1] = pool hash
// ARGV[1] = quantity, ARGV[2] = expected kind, ARGV[3] = expected version or -1, ARGV[4] = now
// Returns 1 on success, 0 when availability or version does not match, -1 when the pool is missing.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
if redis.call('HGET', KEYS[1], 'kind') ~= ARGV[2] then
    return -1
end
local expected = tonumber(ARGV[3])
if expected >= 0 and tonumber(redis.call('HGET', KEYS[1], 'version')) ~= expected then
    return 0
end
local qty = tonumber(ARGV[1])
local available = tonumber(redis.call('HGET', KEYS[1], 'available'))
if available < qty then
    return 0
end
redis.call('HINCRBY', KEYS[1], 'available', -qty)
redis.call('HINCRBY', KEYS[1], 'version', 1)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
return 1
`)

// KEYS[1] = pool hash
// ARGV[1] = quantity, ARGV[2] = expected kind, ARGV[3] = ceiling or "", ARGV[4] = now
// Returns the new availability, or -1 when the pool is missing.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
if redis.call('HGET', KEYS[1], 'kind') ~= ARGV[2] then
    return -1
end
local available = tonumber(redis.call('HGET', KEYS[1], 'available')) + tonumber(ARGV[1])
local ceiling = ARGV[3]
if ceiling == '' then
    local total = redis.call('HGET', KEYS[1], 'total')
    if total then
        ceiling = total
    end
end
if ceiling ~= '' and available > tonumber(ceiling) then
    available = tonumber(ceiling)
end
redis.call('HSET', KEYS[1], 'available', available, 'updated_at', ARGV[4])
redis.call('HINCRBY', KEYS[1], 'version', 1)
return available
`)

type redisCapacityStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisCapacityStore keeps availability in Redis instead of Postgres.
func NewRedisCapacityStore(client *redis.Client, log *zap.Logger) CapacityStore {
	return &redisCapacityStore{
		client: client,
		log:    log.With(zap.String("repository", "capacity_redis")),
	}
}

func poolKey(id uuid.UUID) string {
	return "travel:capacity:{" + id.String() + "}"
}

func nowArg() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (s *redisCapacityStore) Register(ctx context.Context, pool *entity.CapacityPool) error {
	total := ""
	if pool.Total != nil {
		total = strconv.Itoa(*pool.Total)
	}

	created, err := registerPoolScript.Run(ctx, s.client, []string{poolKey(pool.ID)},
		string(pool.Kind), pool.Available, total, nowArg()).Int64()
	if err != nil {
		s.log.Error("Failed to register capacity pool",
			zap.Error(err),
			zap.String("pool_id", pool.ID.String()),
		)
		return fmt.Errorf("register capacity pool %s: %w", pool.ID, err)
	}
	if created == 0 {
		return fmt.Errorf("capacity pool %s already registered", pool.ID)
	}

	return nil
}

func (s *redisCapacityStore) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, poolKey(id)).Err(); err != nil {
		s.log.Error("Failed to remove capacity pool",
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return fmt.Errorf("remove capacity pool %s: %w", id, err)
	}
	return nil
}

func (s *redisCapacityStore) Get(ctx context.Context, id uuid.UUID) (*entity.CapacityPool, error) {
	fields, err := s.client.HGetAll(ctx, poolKey(id)).Result()
	if err != nil {
		s.log.Error("Failed to get capacity pool",
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return nil, fmt.Errorf("get capacity pool %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	pool := &entity.CapacityPool{ID: id, Kind: entity.PoolKind(fields["kind"])}
	if pool.Available, err = strconv.Atoi(fields["available"]); err != nil {
		return nil, fmt.Errorf("parse available of pool %s: %w", id, err)
	}
	if pool.Version, err = strconv.ParseInt(fields["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse version of pool %s: %w", id, err)
	}
	if raw, ok := fields["total"]; ok {
		total, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse total of pool %s: %w", id, err)
		}
		pool.Total = &total
	}
	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		pool.UpdatedAt = time.UnixMilli(ms)
	}

	return pool, nil
}

func (s *redisCapacityStore) Claim(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	return s.claim(ctx, "claim", id, qty, entity.PoolKindCounted, -1)
}

func (s *redisCapacityStore) ClaimVersioned(ctx context.Context, id uuid.UUID, qty int, version int64) (bool, error) {
	return s.claim(ctx, "versioned claim", id, qty, entity.PoolKindCounted, version)
}

func (s *redisCapacityStore) ClaimUnit(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.claim(ctx, "unit claim", id, 1, entity.PoolKindUnit, -1)
}

func (s *redisCapacityStore) claim(ctx context.Context, op string, id uuid.UUID, qty int, kind entity.PoolKind, version int64) (bool, error) {
	code, err := claimScript.Run(ctx, s.client, []string{poolKey(id)},
		qty, string(kind), version, nowArg()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return false, fmt.Errorf("%s on pool %s: %w", op, id, err)
	}

	return code == 1, nil
}

func (s *redisCapacityStore) Release(ctx context.Context, id uuid.UUID, qty int) error {
	return s.release(ctx, "release", id, qty, entity.PoolKindCounted, "")
}

func (s *redisCapacityStore) ReleaseUnit(ctx context.Context, id uuid.UUID) error {
	return s.release(ctx, "unit release", id, 1, entity.PoolKindUnit, "1")
}

func (s *redisCapacityStore) release(ctx context.Context, op string, id uuid.UUID, qty int, kind entity.PoolKind, ceiling string) error {
	available, err := releaseScript.Run(ctx, s.client, []string{poolKey(id)},
		qty, string(kind), ceiling, nowArg()).Int64()
	if err != nil {
		s.log.Error("Failed to "+op,
			zap.Error(err),
			zap.String("pool_id", id.String()),
		)
		return fmt.Errorf("%s on pool %s: %w", op, id, err)
	}
	if available < 0 {
		return fmt.Errorf("capacity pool %s: %w", id, entity.ErrNotFound)
	}

	return nil
}
