package engine

import (
	"go.uber.org/zap"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/internal/obslog"
	"github.com/park285/ek-server/pkg/ekdto"
)

// PlayCards discards a single card or a combo from the current player's
// hand and opens its nope window.
func (e *Engine) PlayCards(userID string, req ekdto.PlayCardsRequest) error {
	r, p, err := e.lockMember(userID, req.GameID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()

	g := r.g
	switch {
	case g.Status != game.Playing:
		return ErrWrongPhase
	case !g.IsCurrent(userID):
		return ErrNotYourTurn
	case len(req.Cards) == 0:
		return ErrNoCardsSelected
	case !p.Alive:
		return ErrCannotPlay
	case !g.EffectsPlayed(p):
		return ErrWaitingForEffect
	case !p.HasCards(req.Cards):
		return ErrMissingCards
	}

	cards := make([]card.Card, 0, len(req.Cards))
	for _, id := range req.Cards {
		c, _ := p.Card(id)
		cards = append(cards, c)
	}
	set := game.NewCardSet(p, cards)
	if err := r.validatePlay(set, req); err != nil {
		return err
	}

	for _, id := range req.Cards {
		if _, err := p.RemoveByID(id); err != nil {
			r.logger().Error("hand_remove_failed", zap.String("card_id", id), zap.Error(err))
			return ErrMissingCards
		}
	}
	g.Discard(set)

	ev := ekdto.PlayEvent{
		Game:   gameView(g),
		Player: playerView(p),
		Cards:  cardViews(set.Cards),
		To:     req.To,
	}
	if g.AnyAliveHolds(card.Nope) {
		sv := setView(set)
		ev.Set = &sv
	}
	r.broadcast(ekdto.NewEvent(ekdto.EventPlayCards, ev))
	r.logger().Debug("cards_played",
		obslog.UserID(userID),
		obslog.SetID(set.ID),
		zap.Int("cards", len(set.Cards)),
	)

	set.NopePlayed = true
	r.enterWindow(set, userID, req)
	return nil
}

func (r *room) validatePlay(set *game.CardSet, req ekdto.PlayCardsRequest) error {
	actor := set.Owner.UserID
	if len(set.Cards) == 1 {
		t := set.Cards[0].Type
		switch {
		case t == card.Explode:
			return ErrCannotPlayExplode
		case !t.PlayableAlone():
			return ErrUnplayableAlone
		case t == card.Favor:
			return r.requireTarget(actor, req.To)
		}
		return nil
	}

	switch set.Classify() {
	case game.ComboBlindSteal:
		return r.requireTarget(actor, req.To)
	case game.ComboNamedSteal:
		if r.target(actor, req.To) == nil {
			return ErrInvalidTarget
		}
		if _, err := card.ParseType(req.CardType); err != nil {
			return ErrInvalidCardType
		}
		return nil
	case game.ComboDiscardSteal:
		if req.CardID == "" {
			return ErrInvalidCardID
		}
		return nil
	}
	return ErrInvalidCombo
}

// target resolves a living opponent, or nil.
func (r *room) target(actorID, to string) *game.Player {
	if to == "" || to == actorID {
		return nil
	}
	t := r.g.Player(to)
	if t == nil || !t.Alive {
		return nil
	}
	return t
}

func (r *room) requireTarget(actorID, to string) error {
	t := r.target(actorID, to)
	if t == nil {
		return ErrInvalidTarget
	}
	if t.HandSize() == 0 {
		return ErrTargetEmptyHand
	}
	return nil
}
