package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

// mirror copies room summaries into the lobby directory off the game locks.
// Writes queued for the same game coalesce; a single drain goroutine applies
// them in queue order, so a game's entries land newest-last.
type mirror struct {
	dir Directory

	mu      sync.Mutex
	queue   []string
	latest  map[string]dirOp
	running bool
	wg      sync.WaitGroup
}

type dirOp struct {
	summary ekdto.GameSummary
	remove  bool
}

func newMirror(dir Directory) *mirror {
	if dir == nil {
		return nil
	}
	return &mirror{dir: dir, latest: make(map[string]dirOp)}
}

// put never blocks on I/O; it is safe under room and engine locks.
func (m *mirror) put(id string, op dirOp) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, queued := m.latest[id]; !queued {
		m.queue = append(m.queue, id)
	}
	m.latest[id] = op
	if !m.running {
		m.running = true
		m.wg.Add(1)
		go m.drain()
	}
}

func (m *mirror) publish(s ekdto.GameSummary) { m.put(s.ID, dirOp{summary: s}) }

func (m *mirror) remove(id string) { m.put(id, dirOp{remove: true}) }

// wait blocks until every queued write has been applied.
func (m *mirror) wait() {
	if m != nil {
		m.wg.Wait()
	}
}

func (m *mirror) drain() {
	defer m.wg.Done()
	for {
		id, op, ok := m.next()
		if !ok {
			return
		}
		m.apply(id, op)
	}
}

func (m *mirror) next() (string, dirOp, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		m.running = false
		return "", dirOp{}, false
	}
	id := m.queue[0]
	m.queue = m.queue[1:]
	op := m.latest[id]
	delete(m.latest, id)
	return id, op, true
}

func (m *mirror) apply(id string, op dirOp) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if op.remove {
		if err := m.dir.Remove(ctx, id); err != nil {
			obslog.L().Warn("directory_remove_failed", obslog.GameID(id), zap.Error(err))
		}
		return
	}
	if err := m.dir.Publish(ctx, op.summary); err != nil {
		obslog.L().Warn("directory_publish_failed", obslog.GameID(id), zap.Error(err))
	}
}
