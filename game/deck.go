package game

import "math/rand"

// Deck composition: five -2s, fifteen 0s, ten of every other value
// between -1 and 12, for 150 cards total.
const (
	MinCardValue = -2
	MaxCardValue = 12
)

func cardMultiplicity(value int) int {
	switch value {
	case -2:
		return 5
	case 0:
		return 15
	default:
		return 10
	}
}

// DeckSize is the number of cards in a freshly built deck.
func DeckSize() int {
	total := 0
	for v := MinCardValue; v <= MaxCardValue; v++ {
		total += cardMultiplicity(v)
	}
	return total
}

func newDeck() []*Card {
	deck := make([]*Card, 0, DeckSize())
	for v := MinCardValue; v <= MaxCardValue; v++ {
		for i := 0; i < cardMultiplicity(v); i++ {
			deck = append(deck, NewCard(v))
		}
	}
	shuffleCards(deck)
	return deck
}

func shuffleCards(cards []*Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// rebuildFaceDown returns fresh face-down cards carrying the same values.
// Used when the discard pile is recycled into the draw pile: revealed cards
// never flip back, so the recycled pile is made of new cards.
func rebuildFaceDown(cards []*Card) []*Card {
	fresh := make([]*Card, 0, len(cards))
	for _, c := range cards {
		fresh = append(fresh, NewCard(c.Value))
	}
	shuffleCards(fresh)
	return fresh
}
