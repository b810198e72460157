package card

import "math/rand/v2"

// regular variants dealt four times per multiplier step.
var regulars = [...]struct {
	name string
	icon int
}{
	{"Potato", 4},
	{"Cattermelon", 5},
	{"Rainbow", 6},
	{"Tacocat", 7},
	{"Beard", 8},
}

// Multiplier doubles the deck above five players.
func Multiplier(players int) int {
	if players > 5 {
		return 2
	}
	return 1
}

// ExplodeCount is the number of Explode cards shuffled in at start.
func ExplodeCount(players int) int {
	return max(players-1, 0)
}

// DefuseTopUp is the number of Defuse cards added to the pile at start,
// on top of the one each player is dealt.
func DefuseTopUp(players int) int {
	return max(6*Multiplier(players)-players, 0)
}

// Compose returns the base deck for a player count in a fixed order.
// Explode and Defuse cards are not part of it.
func Compose(players int) []Card {
	m := Multiplier(players)
	pile := make([]Card, 0, deckSize(players))
	for i := 0; i < 5*m; i++ {
		if i < 4*m {
			pile = append(pile,
				New("Attack", Attack, 0),
				New("Skip", Skip, 1),
				New("Favor", Favor, 2),
				New("Shuffle", Shuffle, 3),
			)
			if players > 2 {
				pile = append(pile, New("Reverse", Reverse, 3))
			}
			for _, r := range regulars {
				pile = append(pile, New(r.name, Regular, r.icon))
			}
		}
		pile = append(pile, New("Future", Future, 9), New("Nope", Nope, 3))
	}
	return pile
}

func deckSize(players int) int {
	m := Multiplier(players)
	perStep := 4 + len(regulars)
	if players > 2 {
		perStep++
	}
	return 4*m*perStep + 5*m*2
}

// BuildDeck composes and shuffles the base deck.
func BuildDeck(players int, rng *rand.Rand) []Card {
	return ShufflePile(Compose(players), rng)
}

// StartCards returns the Explode and top-up Defuse cards added at game start.
func StartCards(players int) []Card {
	out := make([]Card, 0, ExplodeCount(players)+DefuseTopUp(players))
	for i := 0; i < ExplodeCount(players); i++ {
		out = append(out, New("Explode", Explode, 0))
	}
	for i := 0; i < DefuseTopUp(players); i++ {
		out = append(out, New("Defuse", Defuse, 0))
	}
	return out
}

// StarterDefuse is the Defuse dealt straight into a hand.
func StarterDefuse() Card { return New("Defuse", Defuse, 0) }

// ShufflePile permutes pile in place (Fisher-Yates) and returns it.
func ShufflePile(pile []Card, rng *rand.Rand) []Card {
	for i := len(pile) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		pile[i], pile[j] = pile[j], pile[i]
	}
	return pile
}
