package lobby

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/ek-server/pkg/ekdto"
)

func newRedisDirectory(t *testing.T) (*RedisDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisDirectory(rdb, time.Hour), mr
}

func summary(id string, at time.Time) ekdto.GameSummary {
	return ekdto.GameSummary{ID: id, Title: "t-" + id, Status: "Waiting", Host: "ann", Players: 1, MaxPlayers: 8, UpdatedAt: at}
}

func directories(t *testing.T) map[string]Directory {
	rd, _ := newRedisDirectory(t)
	return map[string]Directory{"redis": rd, "memory": NewMemoryDirectory()}
}

func TestDirectoryRoundTrip(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for name, d := range directories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, d.Publish(ctx, summary("a", base)))
			require.NoError(t, d.Publish(ctx, summary("b", base.Add(time.Minute))))
			require.NoError(t, d.Publish(ctx, ekdto.GameSummary{}))

			got, err := d.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "t-a", got.Title)
			assert.True(t, got.UpdatedAt.Equal(base))

			list, err := d.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "b", list[0].ID)

			require.NoError(t, d.Remove(ctx, "a"))
			_, err = d.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisDirectoryExpiry(t *testing.T) {
	d, mr := newRedisDirectory(t)
	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, summary("a", time.Now())))
	assert.Equal(t, time.Hour, mr.TTL("ek:game:a"))

	mr.Del("ek:game:a")
	list, err := d.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	members, err := mr.Members("ek:lobby")
	if err == nil {
		assert.Empty(t, members)
	}
}

type fixedGames []string

func (f fixedGames) GameIDs() []string { return f }

func TestSweepDropsDeadGames(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.Publish(ctx, summary(id, time.Now())))
	}

	s := NewSweeper(d, fixedGames{"b"})
	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestSweeperRejectsBadSpec(t *testing.T) {
	s := NewSweeper(NewMemoryDirectory(), fixedGames{})
	assert.Error(t, s.Start("not a schedule"))
	s.Stop()

	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
}
