package game

import "github.com/google/uuid"

// Start deals the first round. Admin only, lobby only, and at least two
// connected players must be seated.
func (s *Session) Start(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerByIDLocked(playerID) == nil {
		return ErrPlayerNotFound
	}
	if playerID != s.AdminID {
		return ErrNotAllowed
	}
	if s.Status != Lobby {
		return ErrGameAlreadyStarted
	}
	if s.connectedCountLocked() < minPlayersToStart {
		return ErrTooFewPlayers
	}
	s.Status = Playing
	s.dealRoundLocked()
	s.touchLocked()
	return nil
}

// dealRoundLocked builds and shuffles a fresh deck, deals every seat a
// full face-down board, flips one card to the discard pile and waits for
// the initial reveals.
func (s *Session) dealRoundLocked() {
	// Settings validation guarantees one deck covers every board plus
	// the first discard, so dealing never runs dry.
	deck := newDeck()
	rows := s.Settings.RowsPerBoard
	cols := s.Settings.ColumnsPerBoard
	for _, p := range s.Players {
		p.Board = newBoard(cols, rows)
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				p.Board[c][r] = deck[len(deck)-1]
				deck = deck[:len(deck)-1]
			}
		}
	}
	top := deck[len(deck)-1]
	deck = deck[:len(deck)-1]
	top.Reveal()
	s.DrawPile = deck
	s.DiscardPile = []*Card{top}
	s.SelectedCard = nil
	s.RoundState = WaitingInitialReveal
	s.TurnState = ChooseAPile
	s.TurnIndex = 0
	s.finisherID = uuid.Nil
	s.pendingFinalTurns = nil
}

// RevealCard flips one of the player's own face-down cards during the
// initial reveal. Each player reveals exactly the configured count.
func (s *Session) RevealCard(playerID uuid.UUID, col, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != Playing || s.RoundState != WaitingInitialReveal {
		return ErrInvalidTurnState
	}
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.Status != Connected {
		return ErrNotAllowed
	}
	if !p.Board.inRange(col, row) {
		return ErrInvalidTurnState
	}
	card := p.Board.Card(col, row)
	if card == nil || card.Visible {
		return ErrInvalidTurnState
	}
	if p.Board.visibleCount() >= s.Settings.InitialRevealCount {
		return ErrInvalidTurnState
	}
	card.Reveal()
	s.applyBoardClearsLocked(p)
	s.maybeFinishInitialRevealLocked()
	s.touchLocked()
	return nil
}

// maybeFinishInitialRevealLocked moves the round to active once every
// connected player has revealed their quota. The player showing the
// highest revealed sum takes the first turn.
func (s *Session) maybeFinishInitialRevealLocked() {
	if s.Status != Playing || s.RoundState != WaitingInitialReveal {
		return
	}
	if s.connectedCountLocked() == 0 {
		return
	}
	for _, p := range s.Players {
		if p.Status == Connected && p.Board.visibleCount() < s.Settings.InitialRevealCount {
			return
		}
	}
	first := -1
	best := 0
	for i, p := range s.Players {
		if p.Status != Connected {
			continue
		}
		if sum := p.Board.VisibleSum(); first == -1 || sum > best {
			first = i
			best = sum
		}
	}
	s.RoundState = RoundActive
	s.TurnState = ChooseAPile
	s.TurnIndex = first
}

// requireTurnLocked validates that playerID is the seated, connected
// player whose turn it currently is.
func (s *Session) requireTurnLocked(playerID uuid.UUID) (*Player, error) {
	if s.Status != Playing || (s.RoundState != RoundActive && s.RoundState != LastLap) {
		return nil, ErrInvalidTurnState
	}
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	if s.TurnIndex >= len(s.Players) || s.Players[s.TurnIndex].ID != playerID || p.Status != Connected {
		return nil, ErrNotAllowed
	}
	return p, nil
}

// PickCard starts the turn by taking the top card of a pile. A card from
// the draw pile may still be thrown away; a card from the discard pile
// must replace a board card.
func (s *Session) PickCard(playerID uuid.UUID, source PickSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.requireTurnLocked(playerID); err != nil {
		return err
	}
	if s.TurnState != ChooseAPile {
		return ErrInvalidTurnState
	}
	switch source {
	case PickDraw:
		if len(s.DrawPile) == 0 {
			s.replenishDrawPileLocked()
		}
		if len(s.DrawPile) == 0 {
			return ErrInvalidTurnState
		}
		card := s.DrawPile[len(s.DrawPile)-1]
		s.DrawPile = s.DrawPile[:len(s.DrawPile)-1]
		card.Reveal()
		s.SelectedCard = card
		s.TurnState = ThrowOrReplace
	case PickDiscard:
		if len(s.DiscardPile) == 0 {
			return ErrInvalidTurnState
		}
		card := s.DiscardPile[len(s.DiscardPile)-1]
		s.DiscardPile = s.DiscardPile[:len(s.DiscardPile)-1]
		s.SelectedCard = card
		s.TurnState = ReplaceACard
	default:
		return ErrInvalidTurnState
	}
	s.touchLocked()
	return nil
}

// replenishDrawPileLocked recycles the discard pile, minus its top card,
// into a fresh shuffled draw pile.
func (s *Session) replenishDrawPileLocked() {
	if len(s.DiscardPile) <= 1 {
		return
	}
	top := s.DiscardPile[len(s.DiscardPile)-1]
	s.DrawPile = append(s.DrawPile, rebuildFaceDown(s.DiscardPile[:len(s.DiscardPile)-1])...)
	s.DiscardPile = []*Card{top}
}

// DiscardSelected throws the selected card away. Only allowed after a
// draw-pile pick; the player must then flip one of their own cards.
func (s *Session) DiscardSelected(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if s.TurnState != ThrowOrReplace {
		return ErrInvalidTurnState
	}
	s.DiscardPile = append(s.DiscardPile, s.SelectedCard)
	s.SelectedCard = nil
	s.TurnState = TurnACard
	if !p.Board.hasFaceDownCard() {
		// Nothing left to flip: the turn ends here.
		s.endTurnLocked(p)
	}
	s.touchLocked()
	return nil
}

// ReplaceCard swaps the selected card onto the board at (col, row); the
// replaced card lands face up on the discard pile and the turn ends.
func (s *Session) ReplaceCard(playerID uuid.UUID, col, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if s.TurnState != ThrowOrReplace && s.TurnState != ReplaceACard {
		return ErrInvalidTurnState
	}
	if !p.Board.inRange(col, row) {
		return ErrInvalidTurnState
	}
	old := p.Board.Card(col, row)
	if old == nil {
		return ErrInvalidTurnState
	}
	old.Reveal()
	s.DiscardPile = append(s.DiscardPile, old)
	s.SelectedCard.Reveal()
	p.Board[col][row] = s.SelectedCard
	s.SelectedCard = nil
	s.applyBoardClearsLocked(p)
	s.endTurnLocked(p)
	s.touchLocked()
	return nil
}

// TurnCard flips one of the player's own face-down cards after a discard
// and ends the turn.
func (s *Session) TurnCard(playerID uuid.UUID, col, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.requireTurnLocked(playerID)
	if err != nil {
		return err
	}
	if s.TurnState != TurnACard {
		return ErrInvalidTurnState
	}
	if !p.Board.inRange(col, row) {
		return ErrInvalidTurnState
	}
	card := p.Board.Card(col, row)
	if card == nil || card.Visible {
		return ErrInvalidTurnState
	}
	card.Reveal()
	s.applyBoardClearsLocked(p)
	s.endTurnLocked(p)
	s.touchLocked()
	return nil
}

// applyBoardClearsLocked moves fully matched columns/rows to the discard
// pile, per the session toggles.
func (s *Session) applyBoardClearsLocked(p *Player) {
	removed := p.Board.applyClears(s.Settings.AllowClearColumn, s.Settings.AllowClearRow)
	s.DiscardPile = append(s.DiscardPile, removed...)
}

// endTurnLocked closes the current turn: it triggers the last lap when a
// board just became fully visible, finishes the round once everyone had
// their final turn, and otherwise hands the turn to the next connected
// player.
func (s *Session) endTurnLocked(p *Player) {
	if s.RoundState == RoundActive && p.Board.FullyVisible() {
		s.RoundState = LastLap
		s.finisherID = p.ID
		s.pendingFinalTurns = make(map[uuid.UUID]bool)
		for _, other := range s.Players {
			if other.ID != p.ID && other.Status == Connected {
				s.pendingFinalTurns[other.ID] = true
			}
		}
	}
	if s.RoundState == LastLap {
		delete(s.pendingFinalTurns, p.ID)
		if len(s.pendingFinalTurns) == 0 {
			s.finishRoundLocked()
			return
		}
	}
	s.TurnState = ChooseAPile
	s.advanceTurnLocked()
}

// advanceTurnLocked moves the turn to the next eligible player in seating
// order, skipping anyone not connected and, in the last lap, anyone who
// already had their final turn.
func (s *Session) advanceTurnLocked() {
	n := len(s.Players)
	if n == 0 {
		return
	}
	for i := 1; i <= n; i++ {
		idx := (s.TurnIndex + i) % n
		p := s.Players[idx]
		if p.Status != Connected {
			continue
		}
		if s.RoundState == LastLap && !s.pendingFinalTurns[p.ID] {
			continue
		}
		s.TurnIndex = idx
		return
	}
}

// skipCurrentTurnLocked forfeits the turn of a player who just dropped
// out. A held selected card goes to the discard pile so no card is lost.
func (s *Session) skipCurrentTurnLocked() {
	if s.SelectedCard != nil {
		s.SelectedCard.Reveal()
		s.DiscardPile = append(s.DiscardPile, s.SelectedCard)
		s.SelectedCard = nil
	}
	s.TurnState = ChooseAPile
	if s.RoundState == LastLap && len(s.pendingFinalTurns) == 0 {
		s.finishRoundLocked()
		return
	}
	s.advanceTurnLocked()
}

// finishRoundLocked reveals every board, scores the round, and either
// finishes the game or deals the next round.
func (s *Session) finishRoundLocked() {
	s.RoundState = RoundOver
	for _, p := range s.Players {
		p.Board.revealAll()
		s.applyBoardClearsLocked(p)
	}

	raw := make(map[uuid.UUID]int)
	for _, p := range s.Players {
		if p.Status == Disconnected {
			p.Scores = append(p.Scores, RoundScore{Skipped: true})
			continue
		}
		raw[p.ID] = p.Board.VisibleSum()
	}

	// The player who ended the round pays double unless they hold the
	// strictly lowest score.
	if finisherScore, ok := raw[s.finisherID]; ok {
		strictlyLowest := true
		for id, score := range raw {
			if id != s.finisherID && score <= finisherScore {
				strictlyLowest = false
				break
			}
		}
		if !strictlyLowest {
			raw[s.finisherID] = finisherScore * 2
		}
	}

	gameOver := false
	for _, p := range s.Players {
		score, ok := raw[p.ID]
		if !ok {
			continue
		}
		p.Scores = append(p.Scores, RoundScore{Score: score})
		if p.CumulativeScore() >= EndScoreThreshold {
			gameOver = true
		}
	}

	if gameOver {
		s.Status = Finished
		s.SelectedCard = nil
		s.finisherID = uuid.Nil
		s.pendingFinalTurns = nil
		return
	}
	s.dealRoundLocked()
}

// Winner returns the player with the lowest cumulative score once the
// game is finished. Ties go to the lower final-round score, then to the
// older seat.
func (s *Session) Winner() *Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerLocked()
}

func (s *Session) winnerLocked() *Player {
	if s.Status != Finished {
		return nil
	}
	var winner *Player
	for _, p := range s.Players {
		if winner == nil {
			winner = p
			continue
		}
		pc, wc := p.CumulativeScore(), winner.CumulativeScore()
		if pc < wc {
			winner = p
		} else if pc == wc && lastNumericScore(p) < lastNumericScore(winner) {
			winner = p
		}
	}
	return winner
}

func lastNumericScore(p *Player) int {
	for i := len(p.Scores) - 1; i >= 0; i-- {
		if !p.Scores[i].Skipped {
			return p.Scores[i].Score
		}
	}
	return 0
}
