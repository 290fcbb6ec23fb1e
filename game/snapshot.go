package game

import "time"

// PlayerView is one player's slice of a session snapshot. Face-down card
// values are stripped by the Card marshaller.
type PlayerView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Avatar      string           `json:"avatar"`
	Status      ConnectionStatus `json:"connectionStatus"`
	IsAdmin     bool             `json:"isAdmin"`
	Board       [][]*Card        `json:"board,omitempty"`
	Scores      []RoundScore     `json:"scores"`
	TotalScore  int              `json:"totalScore"`
	WantsReplay bool             `json:"wantsReplay"`
}

// KickVoteView summarizes the pending kick vote without exposing who
// voted which way.
type KickVoteView struct {
	TargetID      string    `json:"targetId"`
	InitiatorID   string    `json:"initiatorId"`
	YesVotes      int       `json:"yesVotes"`
	VoteCount     int       `json:"voteCount"`
	RequiredVotes int       `json:"requiredVotes"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Snapshot is the full authoritative state broadcast to clients after
// every accepted mutation. The draw pile is exposed as a count only.
type Snapshot struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Status       Status        `json:"status"`
	AdminID      string        `json:"adminId"`
	Settings     Settings      `json:"settings"`
	Players      []PlayerView  `json:"players"`
	TurnIndex    int           `json:"turnIndex"`
	RoundState   RoundState    `json:"roundState"`
	TurnState    TurnState     `json:"turnState"`
	SelectedCard *Card         `json:"selectedCard,omitempty"`
	DiscardTop   *Card         `json:"discardTop,omitempty"`
	DiscardCount int           `json:"discardCount"`
	DrawCount    int           `json:"drawCount"`
	KickVote     *KickVoteView `json:"kickVote,omitempty"`
	WinnerID     string        `json:"winnerId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func copyCard(c *Card) *Card {
	if c == nil {
		return nil
	}
	dup := *c
	return &dup
}

// Snapshot builds a consistent deep copy of the session under the session
// lock, safe to marshal and send after the lock is released.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.ID.String(),
		Code:         s.Code,
		Status:       s.Status,
		AdminID:      s.AdminID.String(),
		Settings:     s.Settings,
		TurnIndex:    s.TurnIndex,
		RoundState:   s.RoundState,
		TurnState:    s.TurnState,
		SelectedCard: copyCard(s.SelectedCard),
		DiscardCount: len(s.DiscardPile),
		DrawCount:    len(s.DrawPile),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if len(s.DiscardPile) > 0 {
		snap.DiscardTop = copyCard(s.DiscardPile[len(s.DiscardPile)-1])
	}
	for _, p := range s.Players {
		view := PlayerView{
			ID:          p.ID.String(),
			Name:        p.Name,
			Avatar:      p.Avatar,
			Status:      p.Status,
			IsAdmin:     p.ID == s.AdminID,
			Scores:      append([]RoundScore(nil), p.Scores...),
			TotalScore:  p.CumulativeScore(),
			WantsReplay: p.WantsReplay,
		}
		if p.Board != nil {
			view.Board = make([][]*Card, len(p.Board))
			for c, col := range p.Board {
				view.Board[c] = make([]*Card, len(col))
				for r, card := range col {
					view.Board[c][r] = copyCard(card)
				}
			}
		}
		snap.Players = append(snap.Players, view)
	}
	if kv := s.PendingKick; kv != nil {
		eligible := 0
		votesIn := 0
		yes := 0
		for _, p := range s.Players {
			if p.ID == kv.TargetID || p.Status != Connected {
				continue
			}
			eligible++
			if approve, ok := kv.Votes[p.ID]; ok {
				votesIn++
				if approve {
					yes++
				}
			}
		}
		snap.KickVote = &KickVoteView{
			TargetID:      kv.TargetID.String(),
			InitiatorID:   kv.InitiatorID.String(),
			YesVotes:      yes,
			VoteCount:     votesIn,
			RequiredVotes: RequiredVotes(eligible),
			ExpiresAt:     kv.ExpiresAt,
		}
	}
	if w := s.winnerLocked(); w != nil {
		snap.WinnerID = w.ID.String()
	}
	return snap
}
