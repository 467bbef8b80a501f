package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coppit-server/internal/game"
)

const (
	roomKeyPrefix   = "room:"
	playerKeyPrefix = "player_room:"
	activeRoomsKey  = "rooms:active"
)

// RedisStore persists room state as JSON blobs with a TTL. The active-room
// set is best effort: the janitor prunes members whose blob has expired.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Save(ctx context.Context, s *game.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", s.RoomID, err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, roomKeyPrefix+s.RoomID, raw, ttl)
	pipe.SAdd(ctx, activeRoomsKey, s.RoomID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Load(ctx context.Context, roomID string) (*game.State, error) {
	raw, err := r.rdb.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s game.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal room %s: %w", roomID, err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, roomID string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, roomKeyPrefix+roomID)
	pipe.SRem(ctx, activeRoomsKey, roomID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) SetPlayerRoom(ctx context.Context, playerID, roomID string) error {
	return r.rdb.Set(ctx, playerKeyPrefix+playerID, roomID, DefaultTTL).Err()
}

func (r *RedisStore) PlayerRoom(ctx context.Context, playerID string) (string, error) {
	roomID, err := r.rdb.Get(ctx, playerKeyPrefix+playerID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return roomID, err
}

func (r *RedisStore) ClearPlayerRoom(ctx context.Context, playerID string) error {
	return r.rdb.Del(ctx, playerKeyPrefix+playerID).Err()
}

func (r *RedisStore) ActiveRooms(ctx context.Context) ([]string, error) {
	return r.rdb.SMembers(ctx, activeRoomsKey).Result()
}

// Close releases the client's connection pool.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
