package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/nope"
	"github.com/park285/ek-server/pkg/ekdto"
)

// gatedDirectory blocks every write until release is closed.
type gatedDirectory struct {
	release chan struct{}

	mu      sync.Mutex
	entries map[string]ekdto.GameSummary
	writes  int
}

func newGatedDirectory() *gatedDirectory {
	return &gatedDirectory{release: make(chan struct{}), entries: make(map[string]ekdto.GameSummary)}
}

func (d *gatedDirectory) Publish(ctx context.Context, s ekdto.GameSummary) error {
	select {
	case <-d.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[s.ID] = s
	d.writes++
	return nil
}

func (d *gatedDirectory) Remove(ctx context.Context, id string) error {
	select {
	case <-d.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, id)
	d.writes++
	return nil
}

func (d *gatedDirectory) get(id string) (ekdto.GameSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.entries[id]
	return s, ok
}

func TestSlowDirectoryDoesNotStallRoom(t *testing.T) {
	dir := newGatedDirectory()
	e, err := New(Options{
		Settings:  game.Settings{MinPlayers: 2, MaxPlayers: 8, NopeTime: testNopeTime},
		Seed:      42,
		Clock:     nope.NewManualClock(time.Unix(0, 0)),
		Directory: dir,
	})
	require.NoError(t, err)

	for _, n := range []string{"ann", "ben"} {
		_, err := e.Connect(n, n)
		require.NoError(t, err)
	}

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		reply, err := e.CreateGame("ann", "table")
		if err != nil {
			done <- result{err: err}
			return
		}
		id := reply.Game.ID
		if _, err := e.JoinGame("ben", id); err != nil {
			done <- result{err: err}
			return
		}
		for i := 0; i < 4 && err == nil; i++ {
			err = e.ToggleReady("ann", id)
		}
		done <- result{id: id, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-time.After(time.Second):
		t.Fatal("room actions blocked on the directory")
	}
	require.NoError(t, res.err)
	r := e.rooms[res.id]
	require.NotNil(t, r)
	_, ok := dir.get(r.g.ID)
	assert.False(t, ok)

	close(dir.release)
	e.Wait()

	got, ok := dir.get(r.g.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.Players)
	dir.mu.Lock()
	assert.Less(t, dir.writes, 6, "queued snapshots coalesce")
	dir.mu.Unlock()

	_, err = e.LeaveGame("ann", r.g.ID)
	require.NoError(t, err)
	_, err = e.LeaveGame("ben", r.g.ID)
	require.NoError(t, err)
	e.Wait()
	_, ok = dir.get(r.g.ID)
	assert.False(t, ok)
}

func TestNilMirrorIsNoop(t *testing.T) {
	var m *mirror
	m.publish(ekdto.GameSummary{ID: "g"})
	m.remove("g")
	m.wait()
	assert.Nil(t, newMirror(nil))
}
