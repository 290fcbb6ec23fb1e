package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDeckComposition(t *testing.T) {
	assert := assert.New(t)

	deck := newDeck()
	assert.Equal(DeckSize(), len(deck))
	assert.Equal(150, len(deck))

	counts := make(map[int]int)
	for _, c := range deck {
		counts[c.Value]++
		assert.False(c.Visible, "freshly built cards must be face down")
	}

	assert.Equal(5, counts[-2])
	assert.Equal(15, counts[0])
	assert.Equal(10, counts[-1])
	for v := 1; v <= 12; v++ {
		assert.Equal(10, counts[v], "value %d", v)
	}
}

func TestRebuildFaceDownKeepsValues(t *testing.T) {
	assert := assert.New(t)

	original := []*Card{NewCard(4), NewCard(7), NewCard(-2)}
	for _, c := range original {
		c.Reveal()
	}

	fresh := rebuildFaceDown(original)
	assert.Equal(len(original), len(fresh))

	want := map[int]int{4: 1, 7: 1, -2: 1}
	got := make(map[int]int)
	for _, c := range fresh {
		assert.False(c.Visible)
		got[c.Value]++
	}
	assert.Equal(want, got)
}

func TestCardRevealIsOneWay(t *testing.T) {
	c := NewCard(3)
	assert.False(t, c.Visible)
	c.Reveal()
	assert.True(t, c.Visible)
	c.Reveal()
	assert.True(t, c.Visible)
}
