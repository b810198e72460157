package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogram(cards []Card) map[Type]int {
	h := make(map[Type]int)
	for _, c := range cards {
		h[c.Type]++
	}
	return h
}

func TestDeckHistogram(t *testing.T) {
	for n := 2; n <= 10; n++ {
		m := 1
		if n > 5 {
			m = 2
		}
		reverse := 0
		if n > 2 {
			reverse = 4 * m
		}
		all := append(Compose(n), StartCards(n)...)
		h := histogram(all)

		assert.Equal(t, 4*m, h[Attack], "n=%d attack", n)
		assert.Equal(t, 4*m, h[Skip], "n=%d skip", n)
		assert.Equal(t, 4*m, h[Favor], "n=%d favor", n)
		assert.Equal(t, 4*m, h[Shuffle], "n=%d shuffle", n)
		assert.Equal(t, reverse, h[Reverse], "n=%d reverse", n)
		assert.Equal(t, 20*m, h[Regular], "n=%d regular", n)
		assert.Equal(t, 5*m, h[Future], "n=%d future", n)
		assert.Equal(t, 5*m, h[Nope], "n=%d nope", n)
		assert.Equal(t, n-1, h[Explode], "n=%d explode", n)
		assert.Equal(t, max(6*m-n, 0), h[Defuse], "n=%d defuse", n)
		assert.Len(t, Compose(n), deckSize(n), "n=%d size", n)
	}
}

func TestRegularVariants(t *testing.T) {
	names := make(map[string]int)
	for _, c := range Compose(4) {
		if c.Type == Regular {
			names[c.Name]++
		}
	}
	require.Len(t, names, 5)
	for _, r := range regulars {
		assert.Equal(t, 4, names[r.name], r.name)
	}
}

func TestDefuseTopUpClamps(t *testing.T) {
	assert.Equal(t, 4, DefuseTopUp(2))
	assert.Equal(t, 1, DefuseTopUp(5))
	assert.Equal(t, 6, DefuseTopUp(6))
	assert.Equal(t, 0, DefuseTopUp(12))
	assert.Equal(t, 0, ExplodeCount(0))
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range append(Compose(10), StartCards(10)...) {
		require.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestShuffleIsBijection(t *testing.T) {
	rng, err := NewRand(7)
	require.NoError(t, err)

	pile := Compose(4)
	before := make(map[string]Card, len(pile))
	for _, c := range pile {
		before[c.ID] = c
	}
	out := ShufflePile(pile, rng)
	require.Len(t, out, len(before))
	after := make(map[string]Card, len(out))
	for _, c := range out {
		after[c.ID] = c
	}
	assert.Equal(t, before, after)
}

func TestShufflePositionsUniform(t *testing.T) {
	rng, err := NewRand(2024)
	require.NoError(t, err)

	const size, trials = 5, 50000
	base := make([]Card, size)
	for i := range base {
		base[i] = Card{ID: string(rune('a' + i))}
	}
	var counts [size][size]int
	pile := make([]Card, size)
	for i := 0; i < trials; i++ {
		copy(pile, base)
		ShufflePile(pile, rng)
		for pos, c := range pile {
			counts[pos][c.ID[0]-'a']++
		}
	}
	want := trials / size
	for pos := range counts {
		for card, got := range counts[pos] {
			assert.InDelta(t, want, got, float64(want)*0.05, "pos %d card %d", pos, card)
		}
	}
}

func TestSeededShuffleDeterministic(t *testing.T) {
	base := Compose(3)
	a := append([]Card(nil), base...)
	b := append([]Card(nil), base...)

	r1, err := NewRand(99)
	require.NoError(t, err)
	r2, err := NewRand(99)
	require.NoError(t, err)

	assert.Equal(t, ShufflePile(a, r1), ShufflePile(b, r2))
}
