package engine

import (
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

const futureDepth = 3

// apply runs the consequence of a set that survived its nope window.
func (r *room) apply(p *pendingSet) {
	s := p.set
	s.EffectPlayed = true
	actor := r.g.Player(p.actor)
	if actor == nil || !actor.Alive {
		return
	}

	if len(s.Cards) > 1 {
		switch s.Classify() {
		case game.ComboBlindSteal:
			r.blindSteal(actor, p.req)
		case game.ComboNamedSteal:
			r.namedSteal(actor, p.req)
		case game.ComboDiscardSteal:
			r.discardSteal(actor, p.req)
		}
		return
	}

	endTurn := false
	switch t := s.Cards[0].Type; t {
	case card.Attack:
		if next := r.g.NextAlive(r.g.CurrentIndex); next != nil {
			next.DrawAmount = 2
		}
		actor.DrawAmount = 0
		endTurn = true
	case card.Favor:
		r.requestFavor(actor, s, p.req)
	case card.Future:
		r.send(actor.UserID, ekdto.NewEvent(ekdto.EventFuture, ekdto.FutureEvent{
			Cards: cardViews(r.g.Peek(futureDepth)),
		}))
	case card.Skip:
		actor.DrawAmount--
		endTurn = actor.DrawAmount < 1
	case card.Shuffle:
		r.g.ShuffleDrawPile()
	case card.Reverse:
		r.g.Reverse()
	default:
		r.logger().Warn("effect_unplayable", zap.String("type", t.String()))
	}
	r.logger().Debug("effect_applied", obslog.SetID(s.ID), zap.String("type", s.Cards[0].Type.String()))

	if endTurn && r.g.IsCurrent(actor.UserID) {
		r.send(actor.UserID, ekdto.NewEvent(ekdto.EventEndTurn, ekdto.EndTurnEvent{
			Player: playerView(actor),
			Force:  true,
		}))
		r.endTurn(actor)
	}
}

func (r *room) blindSteal(actor *game.Player, req ekdto.PlayCardsRequest) {
	from := r.target(actor.UserID, req.To)
	if from == nil || from.HandSize() == 0 {
		r.sendError(actor.UserID, ekdto.EventPlayCards, ErrTargetEmptyHand)
		return
	}
	c, err := from.TakeRandom(r.g.Rand())
	if err != nil {
		r.sendError(actor.UserID, ekdto.EventPlayCards, ErrTargetEmptyHand)
		return
	}
	actor.Add(c)
	cv := cardView(c)
	r.broadcast(ekdto.NewEvent(ekdto.EventSteal, ekdto.StealEvent{
		Success: true,
		Type:    game.ComboBlindSteal.String(),
		From:    from.UserID,
		To:      actor.UserID,
		Card:    &cv,
	}))
}

func (r *room) namedSteal(actor *game.Player, req ekdto.PlayCardsRequest) {
	ev := ekdto.StealEvent{
		Type:     game.ComboNamedSteal.String(),
		From:     req.To,
		To:       actor.UserID,
		CardType: req.CardType,
	}
	t, terr := card.ParseType(req.CardType)
	if from := r.target(actor.UserID, req.To); from != nil && terr == nil {
		if c, err := from.RemoveType(t); err == nil {
			actor.Add(c)
			cv := cardView(c)
			ev.Success = true
			ev.Card = &cv
		}
	}
	r.broadcast(ekdto.NewEvent(ekdto.EventSteal, ev))
}

func (r *room) discardSteal(actor *game.Player, req ekdto.PlayCardsRequest) {
	ev := ekdto.StealEvent{
		Type: game.ComboDiscardSteal.String(),
		From: "discard",
		To:   actor.UserID,
	}
	if c, err := r.g.TakeFromDiscard(req.CardID); err == nil {
		actor.Add(c)
		cv := cardView(c)
		ev.Success = true
		ev.CardType = c.Type.String()
		ev.Card = &cv
	}
	r.broadcast(ekdto.NewEvent(ekdto.EventSteal, ev))
}

// requestFavor asks the target for a card. The set stays unresolved until
// the target answers through Favor.
func (r *room) requestFavor(actor *game.Player, s *game.CardSet, req ekdto.PlayCardsRequest) {
	to := r.target(actor.UserID, req.To)
	if to == nil || to.HandSize() == 0 {
		r.sendError(actor.UserID, ekdto.EventPlayCards, ErrTargetEmptyHand)
		return
	}
	s.EffectPlayed = false
	r.favor = &favorRequest{from: actor.UserID, to: to.UserID, setID: s.ID}
	r.broadcast(ekdto.NewEvent(ekdto.EventFavor, ekdto.FavorEvent{
		Force: true,
		From:  userOf(actor),
		To:    userOf(to),
	}))
}

// Favor answers a pending favor request by handing one card to the
// player who asked for it.
func (e *Engine) Favor(userID string, req ekdto.FavorRequest) error {
	r, giver, err := e.lockMember(userID, req.GameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	g := r.g
	if g.Status != game.Playing {
		return ErrWrongPhase
	}
	to := g.Player(req.To)
	if to == nil {
		return ErrInvalidPlayer
	}
	if _, ok := giver.Card(req.Card); !ok {
		return ErrInvalidCard
	}
	f := r.favor
	if f == nil || f.to != userID || f.from != to.UserID || !g.IsCurrent(to.UserID) {
		return ErrFavorRejected
	}
	s := g.DiscardSet(f.setID)
	if s == nil || s.EffectPlayed {
		return ErrFavorRejected
	}
	if _, pending := r.pending[s.ID]; pending {
		return ErrWaitingForEffect
	}

	c, err := giver.RemoveByID(req.Card)
	if err != nil {
		return ErrInvalidCard
	}
	to.Add(c)
	s.EffectPlayed = true
	r.favor = nil

	cv := cardView(c)
	r.broadcast(ekdto.NewEvent(ekdto.EventFavor, ekdto.FavorEvent{
		Success: true,
		From:    userOf(giver),
		To:      userOf(to),
		Card:    &cv,
	}))
	r.logger().Debug("favor_given", zap.String("from", giver.UserID), zap.String("to", to.UserID))
	return nil
}
