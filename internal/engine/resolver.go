package engine

import (
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/nope"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

// pendingSet is a played set waiting out its nope window.
type pendingSet struct {
	set    *game.CardSet
	actor  string
	req    ekdto.PlayCardsRequest
	window *nope.Window
}

// enterWindow registers a freshly played set and runs the first check.
func (r *room) enterWindow(set *game.CardSet, actor string, req ekdto.PlayCardsRequest) {
	if _, ok := r.pending[set.ID]; ok {
		return
	}
	p := &pendingSet{set: set, actor: actor, req: req, window: nope.NewWindow(r.e.clock)}
	r.pending[set.ID] = p
	r.checkNopes(p)
}

// checkNopes keeps the window open while nopes keep arriving, then decides
// the set by nope parity. Caller holds r.mu.
func (r *room) checkNopes(p *pendingSet) {
	s := p.set
	if !r.g.AnyAliveHolds(card.Nope) {
		s.NopePlayed = false
	}
	if s.NopePlayed {
		s.NopePlayed = false
		r.armWindow(p)
		return
	}

	switch nope.Decide(s.NopeAmount) {
	case nope.Applied:
		r.apply(p)
	case nope.Vetoed:
		s.EffectPlayed = true
		r.logger().Debug("set_vetoed", obslog.SetID(s.ID), zap.Int("nopes", s.NopeAmount))
	}
	r.broadcast(ekdto.NewEvent(ekdto.EventNope, ekdto.NopeEvent{Set: setView(s), CanNope: false}))
	r.dropPending(p)
}

func (r *room) armWindow(p *pendingSet) {
	var err error
	if p.window.State() == nope.Idle {
		err = p.window.Arm(r.g.NopeTime, func() { r.expire(p) })
	} else {
		err = p.window.Rearm()
	}
	if err != nil {
		r.logger().Warn("nope_window_arm_failed", obslog.SetID(p.set.ID), zap.Error(err))
	}
}

// expire runs on the clock's goroutine when a window elapses quietly.
func (r *room) expire(p *pendingSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.pending[p.set.ID] != p {
		return
	}
	r.checkNopes(p)
}

func (r *room) dropPending(p *pendingSet) {
	p.window.Cancel()
	if r.pending[p.set.ID] == p {
		delete(r.pending, p.set.ID)
	}
}

// Nope spends one of the caller's Nope cards against a set still inside
// its window.
func (e *Engine) Nope(userID string, req ekdto.NopeRequest) error {
	r, p, err := e.lockMember(userID, req.GameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	if r.g.Status != game.Playing {
		return ErrWrongPhase
	}
	pending, ok := r.pending[req.SetID]
	if !ok || pending.set.NopePlayed || pending.set.EffectPlayed {
		return ErrNotNopeable
	}
	if !p.Alive {
		return ErrNoNopeCard
	}
	c, err := p.RemoveType(card.Nope)
	if err != nil {
		return ErrNoNopeCard
	}

	played := game.NewCardSet(p, []card.Card{c})
	played.EffectPlayed = true
	r.g.Discard(played)

	s := pending.set
	s.NopePlayed = true
	s.NopeAmount++

	view := gameView(r.g)
	pv := playerView(p)
	r.broadcast(ekdto.NewEvent(ekdto.EventNope, ekdto.NopeEvent{
		Player:  &pv,
		Cards:   cardViews(played.Cards),
		Game:    &view,
		Set:     setView(s),
		CanNope: true,
	}))
	r.logger().Debug("nope_played", obslog.SetID(s.ID), obslog.UserID(userID), zap.Int("nopes", s.NopeAmount))
	return nil
}
