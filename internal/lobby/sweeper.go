package lobby

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/obslog"
)

const sweepTimeout = 10 * time.Second

// LiveGames reports the ids the engine still holds.
type LiveGames interface {
	GameIDs() []string
}

// Sweeper drops directory entries for games the engine no longer knows,
// e.g. after a restart.
type Sweeper struct {
	dir  Directory
	live LiveGames
	cron *cron.Cron
}

func NewSweeper(dir Directory, live LiveGames) *Sweeper {
	return &Sweeper{dir: dir, live: live}
}

// Start schedules Sweep on spec (cron syntax or @every).
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			obslog.L().Warn("lobby_sweep_failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule lobby sweep %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep removes stale entries and reports how many it dropped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	entries, err := s.dir.List(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{})
	for _, id := range s.live.GameIDs() {
		live[id] = struct{}{}
	}
	removed := 0
	for _, e := range entries {
		if _, ok := live[e.ID]; ok {
			continue
		}
		if err := s.dir.Remove(ctx, e.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		obslog.L().Info("lobby_swept", zap.Int("removed", removed), zap.Int("live", len(live)))
	}
	return removed, nil
}
