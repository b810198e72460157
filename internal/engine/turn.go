package engine

import (
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

// EndTurn draws for the current player and passes the turn on.
func (e *Engine) EndTurn(userID, gameID string) error {
	r, p, err := e.lockMember(userID, gameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	if r.g.Status != game.Playing {
		return ErrWrongPhase
	}
	if !r.g.IsCurrent(userID) {
		return ErrNotYourTurn
	}
	if !r.g.EffectsPlayed(p) {
		return ErrWaitingForEffect
	}
	r.endTurn(p)
	return nil
}

// endTurn is shared by EndTurn and effects that force the turn over.
func (r *room) endTurn(p *game.Player) {
	res := r.g.EndTurn(p)

	if len(res.Drawn) > 0 {
		view := gameView(r.g)
		r.send(p.UserID, ekdto.NewEvent(ekdto.EventDraw, ekdto.DrawEvent{
			Game:  view,
			Cards: cardViews(res.Drawn),
			Hand:  cardViews(p.Hand()),
		}))
		pv := playerView(p)
		r.broadcastExcept(p.UserID, ekdto.NewEvent(ekdto.EventDraw, ekdto.DrawEvent{Game: view, Player: &pv}))
	}

	switch res.State {
	case game.TurnExploded:
		r.eliminated = append(r.eliminated, userOf(p))
		r.logger().Info("player_exploded", obslog.UserID(p.UserID))
	case game.TurnDefused:
		r.logger().Debug("player_defused", obslog.UserID(p.UserID))
	}

	if res.Decided {
		r.finish(res.Winner)
		return
	}
	if res.Advanced {
		view := gameView(r.g)
		r.broadcast(ekdto.NewEvent(ekdto.EventEndTurn, ekdto.EndTurnEvent{
			Player: playerView(p),
			State:  res.State.String(),
			Game:   &view,
		}))
	}
}
