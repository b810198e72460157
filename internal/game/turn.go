package game

import (
	"slices"

	"github.com/park285/ek-server/internal/card"
)

// TurnState describes how a turn ended.
type TurnState int

const (
	TurnInvalid TurnState = iota
	TurnSurvived
	TurnDefused
	TurnExploded
	TurnDisconnected
)

var turnStateStr = [...]string{"invalid", "survived", "defused", "exploded", "disconnected"}

func (s TurnState) String() string {
	if s < 0 || int(s) >= len(turnStateStr) {
		return turnStateStr[TurnInvalid]
	}
	return turnStateStr[s]
}

func (s TurnState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Explode kills p and discards the hand one card per set.
func (g *Game) Explode(p *Player) {
	p.Alive = false
	p.DrawAmount = 0
	for _, c := range p.takeAll() {
		g.Discard(resolvedSet(p, c))
	}
}

// Defuse spends a Defuse and slides the Explode back into the pile at a
// random position.
func (g *Game) Defuse(p *Player) error {
	defuse, err := p.RemoveType(card.Defuse)
	if err != nil {
		return err
	}
	explode, err := p.RemoveType(card.Explode)
	if err != nil {
		p.Add(defuse)
		return err
	}
	g.Discard(resolvedSet(p, defuse))
	at := g.rng.IntN(len(g.DrawPile) + 1)
	g.DrawPile = append(g.DrawPile, card.Card{})
	copy(g.DrawPile[at+1:], g.DrawPile[at:])
	g.DrawPile[at] = explode
	return nil
}

// ResolveDraw handles every Explode in p's hand.
func (g *Game) ResolveDraw(p *Player) TurnState {
	state := TurnSurvived
	for p.HasType(card.Explode) {
		if p.HasType(card.Defuse) {
			_ = g.Defuse(p)
			state = TurnDefused
			continue
		}
		g.Explode(p)
		return TurnExploded
	}
	return state
}

// Winner reports the sole survivor once fewer than two are alive.
// ok is true when the game is decided even if nobody survived.
func (g *Game) Winner() (winner *Player, ok bool) {
	if g.Status != Playing || g.AliveCount() >= 2 {
		return nil, false
	}
	for _, p := range g.Players {
		if p.Alive {
			winner = p
		}
	}
	return winner, true
}

// TurnResult is the outcome of EndTurn.
type TurnResult struct {
	Drawn    []card.Card
	State    TurnState
	Decided  bool
	Winner   *Player
	Advanced bool
}

// EndTurn draws if owed, resolves explosions and moves the cursor once the
// player's draw obligation is spent.
func (g *Game) EndTurn(p *Player) TurnResult {
	var res TurnResult
	if p.DrawAmount >= 1 {
		res.Drawn = g.Draw(p, 1)
	}
	res.State = g.ResolveDraw(p)

	if w, ok := g.Winner(); ok {
		res.Decided = true
		res.Winner = w
		return res
	}

	if res.State != TurnSurvived {
		p.DrawAmount = 1
	}
	p.DrawAmount--
	if p.DrawAmount < 1 {
		g.CurrentIndex = g.NextAliveIndex(g.CurrentIndex)
		if p.Alive {
			p.DrawAmount = 1
		} else {
			p.DrawAmount = 0
		}
		res.Advanced = true
	}
	return res
}

// Departure is the outcome of RemovePlayer.
type Departure struct {
	Player     *Player
	WasCurrent bool
	Decided    bool
	Winner     *Player
	Advanced   bool
	Empty      bool
}

// RemovePlayer drops a seat. While playing the hand is discarded, the win
// condition is checked and the turn handed on if it was theirs.
func (g *Game) RemovePlayer(userID string) (Departure, error) {
	idx := g.IndexOf(userID)
	if idx < 0 {
		return Departure{}, ErrPlayerNotFound
	}
	p := g.Players[idx]
	d := Departure{Player: p, WasCurrent: idx == g.CurrentIndex}
	g.Players = slices.Delete(g.Players, idx, idx+1)

	if len(g.Players) == 0 {
		g.CurrentIndex = 0
		d.Empty = true
		if g.Status == Playing {
			for _, c := range p.takeAll() {
				g.Discard(resolvedSet(p, c))
			}
		}
		return d, nil
	}
	if idx < g.CurrentIndex {
		g.CurrentIndex--
	}
	if g.Status != Playing {
		if g.CurrentIndex >= len(g.Players) {
			g.CurrentIndex = 0
		}
		return d, nil
	}

	for _, c := range p.takeAll() {
		g.Discard(resolvedSet(p, c))
	}
	if w, ok := g.Winner(); ok {
		d.Decided = true
		d.Winner = w
		return d, nil
	}
	if d.WasCurrent {
		// The seat after the leaver now sits at idx.
		prev := idx - 1
		if g.Direction < 0 {
			prev = idx
		}
		g.CurrentIndex = g.NextAliveIndex(prev)
		d.Advanced = true
	}
	return d, nil
}
