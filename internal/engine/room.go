package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

const archiveTimeout = 5 * time.Second

// room serializes every mutation of one game, including window expiry.
type room struct {
	mu sync.Mutex
	e  *Engine
	g  *game.Game

	// set id -> sets inside their nope window
	pending map[string]*pendingSet
	favor   *favorRequest

	startedAt  time.Time
	eliminated []ekdto.User
	closed     bool
}

// favorRequest records who owes whom a card after a resolved Favor.
type favorRequest struct {
	from  string // player who played the Favor
	to    string // player asked to give a card
	setID string
}

func newRoom(e *Engine, g *game.Game) *room {
	return &room{e: e, g: g, pending: make(map[string]*pendingSet)}
}

func (r *room) members() []string {
	ids := make([]string, 0, len(r.g.Players))
	for _, p := range r.g.Players {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (r *room) broadcast(ev ekdto.Event) {
	r.e.notifier().Broadcast(r.members(), ev)
}

func (r *room) broadcastExcept(userID string, ev ekdto.Event) {
	ids := make([]string, 0, len(r.g.Players))
	for _, p := range r.g.Players {
		if p.UserID != userID {
			ids = append(ids, p.UserID)
		}
	}
	r.e.notifier().Broadcast(ids, ev)
}

func (r *room) send(userID string, ev ekdto.Event) {
	r.e.notifier().Send(userID, ev)
}

func (r *room) sendError(userID, event string, err error) {
	r.e.notifier().SendError(userID, event, err)
}

func (r *room) logger() *zap.Logger {
	return obslog.ForGame(r.g.ID)
}

// publish queues a snapshot of the room for the lobby directory.
func (r *room) publish() {
	if r.e.mirror != nil {
		r.e.mirror.publish(summaryOf(r.g))
	}
}

// close marks the room dead; late timer callbacks become no-ops.
func (r *room) close() {
	r.closed = true
	r.cancelPending()
}

func (r *room) cancelPending() {
	for id, p := range r.pending {
		p.window.Cancel()
		delete(r.pending, id)
	}
	r.favor = nil
}

// StartGame deals a new round. Only the host may start.
func (e *Engine) StartGame(userID, gameID string) error {
	r, _, err := e.lockMember(userID, gameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	g := r.g
	if g.Status != game.Waiting {
		return ErrWrongPhase
	}
	if g.Host().UserID != userID {
		return ErrNotHost
	}
	if err := g.Start(); err != nil {
		r.logger().Debug("start_rejected", zap.Error(err))
		return ErrStartFailed
	}
	r.startedAt = time.Now()
	r.eliminated = nil

	view := gameView(g)
	r.broadcast(ekdto.NewEvent(ekdto.EventStartGame, ekdto.GameEvent{Game: view}))
	r.e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameStarted, ekdto.GameEvent{Game: view}))
	r.publish()
	r.logger().Info("game_started", zap.Int("players", len(g.Players)), zap.Int("cards", g.CreatedCards()))
	return nil
}

// StopGame ends a round that can no longer continue.
func (e *Engine) StopGame(userID, gameID string) error {
	r, _, err := e.lockMember(userID, gameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()
	if !r.stop() {
		return ErrWrongPhase
	}
	return nil
}

func (r *room) stop() bool {
	if !r.g.Stop() {
		return false
	}
	r.cancelPending()
	view := gameView(r.g)
	r.broadcast(ekdto.NewEvent(ekdto.EventStopGame, ekdto.GameEvent{Game: view}))
	r.e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameStopped, ekdto.GameEvent{Game: view}))
	r.publish()
	r.logger().Info("game_stopped")
	return true
}

// finish announces the winner, archives the round and stops it.
func (r *room) finish(winner *game.Player) {
	res := r.result(winner)
	if winner != nil {
		r.broadcast(ekdto.NewEvent(ekdto.EventWin, ekdto.WinEvent{User: userOf(winner)}))
		r.logger().Info("game_won", zap.String("winner", winner.UserID))
	}
	r.stop()
	r.e.archiveResult(res)
}

func (r *room) result(winner *game.Player) ekdto.GameResult {
	res := ekdto.GameResult{
		GameID:     r.g.ID,
		Title:      r.g.Title,
		TotalCards: r.g.CreatedCards(),
		StartedAt:  r.startedAt,
		EndedAt:    time.Now(),
		Eliminated: append([]ekdto.User(nil), r.eliminated...),
	}
	for _, p := range r.g.Players {
		res.Players = append(res.Players, userOf(p))
	}
	if winner != nil {
		res.WinnerID = winner.UserID
		res.WinnerName = winner.Name
	}
	return res
}

func (e *Engine) archiveResult(res ekdto.GameResult) {
	if e.results == nil {
		return
	}
	e.archive.Add(1)
	go func() {
		defer e.archive.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := e.results.SaveResult(ctx, res); err != nil {
			obslog.L().Warn("archive_failed", obslog.GameID(res.GameID), zap.Error(err))
		}
	}()
}

// ToggleReady flips the caller's ready flag while waiting.
func (e *Engine) ToggleReady(userID, gameID string) error {
	r, p, err := e.lockMember(userID, gameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()
	if r.g.Status != game.Waiting {
		return ErrWrongPhase
	}
	if _, err := r.g.ToggleReady(userID); err != nil {
		return ErrNotInGame
	}
	r.broadcast(ekdto.NewEvent(ekdto.EventReady, ekdto.PlayerEvent{Player: playerView(p)}))
	r.publish()
	return nil
}

// Hand returns the caller's own cards.
func (e *Engine) Hand(userID, gameID string) (ekdto.HandReply, error) {
	r, p, err := e.lockMember(userID, gameID)
	if err != nil {
		return ekdto.HandReply{}, err
	}
	defer r.mu.Unlock()
	if r.g.Status != game.Playing {
		return ekdto.HandReply{}, ErrWrongPhase
	}
	return ekdto.HandReply{Player: playerView(p), Hand: cardViews(p.Hand())}, nil
}

// DiscardPile lists discarded cards, most recent first.
func (e *Engine) DiscardPile(userID, gameID string) (ekdto.DiscardPileReply, error) {
	r, _, err := e.lockMember(userID, gameID)
	if err != nil {
		return ekdto.DiscardPileReply{}, err
	}
	defer r.mu.Unlock()
	if r.g.Status != game.Playing {
		return ekdto.DiscardPileReply{}, ErrWrongPhase
	}
	return ekdto.DiscardPileReply{Cards: cardViews(r.g.DiscardCards())}, nil
}

// removePlayer runs the in-room part of leaving. It reports whether the
// room is now empty.
func (r *room) removePlayer(userID string) bool {
	g := r.g
	p := g.Player(userID)
	if p == nil {
		return len(g.Players) == 0
	}
	playing := g.Status == game.Playing
	r.dropPendingFor(userID)

	d, err := g.RemovePlayer(userID)
	if err != nil {
		return len(g.Players) == 0
	}
	if d.Empty {
		r.logger().Info("player_left", obslog.UserID(userID), zap.Bool("last", true))
		return true
	}
	if playing && p.Alive {
		r.eliminated = append(r.eliminated, userOf(p))
	}

	switch {
	case d.Decided:
		r.finish(d.Winner)
	case d.Advanced:
		view := gameView(g)
		r.broadcast(ekdto.NewEvent(ekdto.EventEndTurn, ekdto.EndTurnEvent{
			Player: playerView(p),
			State:  game.TurnDisconnected.String(),
			Game:   &view,
		}))
	}
	if playing && !d.Decided {
		r.stop()
	}

	view := gameView(g)
	r.broadcast(ekdto.NewEvent(ekdto.EventPlayerDisconnected, ekdto.PlayerEvent{Player: playerView(p), Game: &view}))
	r.e.notifier().BroadcastAll(ekdto.NewEvent(ekdto.EventGameUpdate, ekdto.GameEvent{Game: view}))
	r.publish()
	r.logger().Info("player_left", obslog.UserID(userID))
	return false
}

// dropPendingFor cancels plays and favors involving a departing player.
func (r *room) dropPendingFor(userID string) {
	for _, p := range r.pending {
		if p.actor != userID {
			continue
		}
		p.set.EffectPlayed = true
		r.broadcast(ekdto.NewEvent(ekdto.EventNope, ekdto.NopeEvent{Set: setView(p.set)}))
		r.dropPending(p)
	}
	if f := r.favor; f != nil && (f.from == userID || f.to == userID) {
		if s := r.g.DiscardSet(f.setID); s != nil {
			s.EffectPlayed = true
		}
		r.favor = nil
	}
}
