package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/ek-server/pkg/ekdto"
)

const defaultTTL = 6 * time.Hour

// RedisDirectory keeps one JSON value per game plus an index set.
type RedisDirectory struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDirectory(rdb *redis.Client, ttl time.Duration) *RedisDirectory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisDirectory{rdb: rdb, ttl: ttl}
}

func (d *RedisDirectory) keyGame(id string) string { return "ek:game:" + strings.TrimSpace(id) }
func (d *RedisDirectory) keyLobby() string         { return "ek:lobby" }

func (d *RedisDirectory) Publish(ctx context.Context, s ekdto.GameSummary) error {
	if strings.TrimSpace(s.ID) == "" {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = d.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, d.keyGame(s.ID), raw, d.ttl)
		p.SAdd(ctx, d.keyLobby(), s.ID)
		p.Expire(ctx, d.keyLobby(), d.ttl)
		return nil
	})
	return err
}

func (d *RedisDirectory) Remove(ctx context.Context, gameID string) error {
	if strings.TrimSpace(gameID) == "" {
		return nil
	}
	_, err := d.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, d.keyGame(gameID))
		p.SRem(ctx, d.keyLobby(), gameID)
		return nil
	})
	return err
}

func (d *RedisDirectory) Get(ctx context.Context, gameID string) (ekdto.GameSummary, error) {
	raw, err := d.rdb.Get(ctx, d.keyGame(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ekdto.GameSummary{}, ErrNotFound
	}
	if err != nil {
		return ekdto.GameSummary{}, err
	}
	var s ekdto.GameSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return ekdto.GameSummary{}, err
	}
	return s, nil
}

// List returns every indexed game, newest first. Index entries whose value
// has expired are pruned on the way.
func (d *RedisDirectory) List(ctx context.Context) ([]ekdto.GameSummary, error) {
	ids, err := d.rdb.SMembers(ctx, d.keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ekdto.GameSummary, 0, len(ids))
	for _, id := range ids {
		s, err := d.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = d.rdb.SRem(ctx, d.keyLobby(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}
