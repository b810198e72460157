package engine

import (
	"time"

	"github.com/park285/ek-server/internal/card"
	"github.com/park285/ek-server/internal/game"
	"github.com/park285/ek-server/pkg/ekdto"
)

func userOf(p *game.Player) ekdto.User { return ekdto.User{ID: p.UserID, Name: p.Name} }

func playerView(p *game.Player) ekdto.Player {
	return ekdto.Player{
		User:       userOf(p),
		Ready:      p.Ready,
		Alive:      p.Alive,
		DrawAmount: p.DrawAmount,
		CardCount:  p.HandSize(),
	}
}

func gameView(g *game.Game) ekdto.Game {
	players := make([]ekdto.Player, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, playerView(p))
	}
	return ekdto.Game{
		ID:                 g.ID,
		Title:              g.Title,
		Status:             g.Status.String(),
		Players:            players,
		CurrentPlayerIndex: g.CurrentIndex,
		Direction:          g.Direction,
		DrawPileLength:     len(g.DrawPile),
		NopeTime:           g.NopeTime.Milliseconds(),
	}
}

func cardView(c card.Card) ekdto.Card {
	return ekdto.Card{ID: c.ID, Name: c.Name, Type: c.Type.String(), Icon: c.Icon}
}

func cardViews(cs []card.Card) []ekdto.Card {
	out := make([]ekdto.Card, len(cs))
	for i, c := range cs {
		out[i] = cardView(c)
	}
	return out
}

func setView(s *game.CardSet) ekdto.CardSet {
	v := ekdto.CardSet{
		ID:           s.ID,
		Cards:        cardViews(s.Cards),
		EffectPlayed: s.EffectPlayed,
		NopePlayed:   s.NopePlayed,
		NopeAmount:   s.NopeAmount,
	}
	if s.Owner != nil {
		v.Owner = s.Owner.UserID
	}
	return v
}

func summaryOf(g *game.Game) ekdto.GameSummary {
	s := ekdto.GameSummary{
		ID:         g.ID,
		Title:      g.Title,
		Status:     g.Status.String(),
		Players:    len(g.Players),
		MaxPlayers: g.MaxPlayers,
		UpdatedAt:  time.Now().UTC(),
	}
	if h := g.Host(); h != nil {
		s.Host = h.Name
	}
	return s
}
