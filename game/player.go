package game

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus tracks the network state of a participant. Identity is
// carried by the player id, which survives reconnects.
type ConnectionStatus int

const (
	Connected ConnectionStatus = iota
	ConnectionLost
	Disconnected
)

func (cs ConnectionStatus) String() string {
	switch cs {
	case Connected:
		return "connected"
	case ConnectionLost:
		return "connection-lost"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

func (cs ConnectionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.String())
}

// RoundScore is one entry of a player's score history. A player who was
// fully disconnected when the round was scored records a skipped marker
// instead of a number.
type RoundScore struct {
	Score   int
	Skipped bool
}

func (rs RoundScore) MarshalJSON() ([]byte, error) {
	if rs.Skipped {
		return json.Marshal("-")
	}
	return json.Marshal(rs.Score)
}

type Player struct {
	ID          uuid.UUID
	Name        string
	Avatar      string
	Board       Board
	Scores      []RoundScore
	Status      ConnectionStatus
	WantsReplay bool
	JoinedAt    time.Time

	graceTimer *time.Timer
}

func NewPlayer(name, avatar string) *Player {
	return &Player{
		ID:       uuid.New(),
		Name:     name,
		Avatar:   avatar,
		Status:   Connected,
		JoinedAt: time.Now(),
	}
}

// CumulativeScore sums the numeric entries of the score history.
func (p *Player) CumulativeScore() int {
	total := 0
	for _, rs := range p.Scores {
		if !rs.Skipped {
			total += rs.Score
		}
	}
	return total
}

func (p *Player) stopGraceTimer() {
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
}
