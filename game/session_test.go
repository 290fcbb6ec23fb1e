package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSettings is a tiny two-slot board with every automatic clear
// disabled, so scores and transitions are fully deterministic.
func scriptedSettings() Settings {
	s := DefaultSettings()
	s.ColumnsPerBoard = 2
	s.RowsPerBoard = 1
	s.InitialRevealCount = 0
	s.AllowClearColumn = false
	s.AllowClearRow = false
	return s
}

// scriptedSession builds a session already in an active round with known
// boards and piles. boards are [column][row] values; the visible mask
// marks revealed cells. The draw pile top is the last value given.
func scriptedSession(t *testing.T, settings Settings, boards [][][]int, visible [][][]bool, draw []int, discardTop int) (*Session, []*Player) {
	t.Helper()
	s := NewSession("abc123", settings)
	players := make([]*Player, 0, len(boards))
	for i, vals := range boards {
		p := NewPlayer(fmt.Sprintf("player-%d", i), "")
		require.NoError(t, s.AddPlayer(p))
		var mask [][]bool
		if visible != nil {
			mask = visible[i]
		}
		p.Board = buildBoard(vals, mask)
		players = append(players, p)
	}
	s.Status = Playing
	s.RoundState = RoundActive
	s.TurnState = ChooseAPile
	s.TurnIndex = 0
	for _, v := range draw {
		s.DrawPile = append(s.DrawPile, NewCard(v))
	}
	top := NewCard(discardTop)
	top.Reveal()
	s.DiscardPile = []*Card{top}
	return s, players
}

func revealQuota(t *testing.T, s *Session, p *Player) {
	t.Helper()
	revealed := 0
	for c := range p.Board {
		for r := range p.Board[c] {
			if revealed == s.Settings.InitialRevealCount {
				return
			}
			if c != revealed%len(p.Board) {
				continue
			}
			require.NoError(t, s.RevealCard(p.ID, c, r))
			revealed++
		}
	}
}

func TestAddPlayerLimits(t *testing.T) {
	assert := assert.New(t)

	settings := DefaultSettings()
	settings.MaxPlayers = 2
	s := NewSession("abc123", settings)
	p0 := NewPlayer("one", "")
	p1 := NewPlayer("two", "")
	assert.NoError(s.AddPlayer(p0))
	assert.Equal(p0.ID, s.AdminID, "first player becomes admin")
	assert.NoError(s.AddPlayer(p1))

	assert.ErrorIs(s.AddPlayer(NewPlayer("three", "")), ErrGameIsFull)

	require.NoError(t, s.Start(p0.ID))
	assert.ErrorIs(s.AddPlayer(NewPlayer("late", "")), ErrGameAlreadyStarted)
}

func TestStartChecks(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 2)

	assert.ErrorIs(s.Start(players[1].ID), ErrNotAllowed, "only the admin may start")

	solo := NewSession("def456", DefaultSettings())
	alone := NewPlayer("alone", "")
	require.NoError(t, solo.AddPlayer(alone))
	assert.ErrorIs(solo.Start(alone.ID), ErrTooFewPlayers)

	require.NoError(t, s.Start(players[0].ID))
	assert.Equal(Playing, s.Status)
	assert.Equal(WaitingInitialReveal, s.RoundState)
	assert.ErrorIs(s.Start(players[0].ID), ErrGameAlreadyStarted)
}

func TestStartDealsFullBoards(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 3)
	require.NoError(t, s.Start(players[0].ID))

	cells := s.Settings.RowsPerBoard * s.Settings.ColumnsPerBoard
	for _, p := range players {
		assert.Equal(cells, p.Board.CardCount())
		assert.Equal(0, p.Board.visibleCount(), "boards are dealt face down")
	}
	assert.Len(s.DiscardPile, 1)
	assert.True(s.DiscardPile[0].Visible)
	assert.Equal(DeckSize()-3*cells-1, len(s.DrawPile))
	assert.Equal(DeckSize(), s.CardCount())
}

func TestInitialRevealQuotaAndTransition(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 2)
	require.NoError(t, s.Start(players[0].ID))

	p0, p1 := players[0], players[1]
	require.NoError(t, s.RevealCard(p0.ID, 0, 0))
	require.NoError(t, s.RevealCard(p0.ID, 1, 0))

	assert.ErrorIs(s.RevealCard(p0.ID, 2, 0), ErrInvalidTurnState, "quota exhausted")
	assert.ErrorIs(s.RevealCard(p1.ID, 0, 5), ErrInvalidTurnState, "out of range")
	assert.Equal(WaitingInitialReveal, s.RoundState, "round waits for every player")

	require.NoError(t, s.RevealCard(p1.ID, 0, 0))
	assert.ErrorIs(s.RevealCard(p1.ID, 0, 0), ErrInvalidTurnState, "already visible")
	require.NoError(t, s.RevealCard(p1.ID, 1, 0))

	assert.Equal(RoundActive, s.RoundState)
	current := s.Players[s.TurnIndex]
	assert.Equal(Connected, current.Status)

	// The player showing the higher revealed sum goes first.
	best := players[0]
	if players[1].Board.VisibleSum() > best.Board.VisibleSum() {
		best = players[1]
	}
	assert.Equal(best.ID, current.ID)
}

func TestDisconnectDuringInitialRevealUnblocksRound(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 3)
	require.NoError(t, s.Start(players[0].ID))

	revealQuota(t, s, players[1])
	revealQuota(t, s, players[2])
	assert.Equal(WaitingInitialReveal, s.RoundState)

	require.NoError(t, s.MarkConnectionLost(players[0].ID, time.Hour, nil))
	assert.Equal(RoundActive, s.RoundState, "round must not wait for a lost player")
}

func TestInitialRevealOnSingleRowBoards(t *testing.T) {
	assert := assert.New(t)
	settings := DefaultSettings()
	settings.RowsPerBoard = 1
	settings.InitialRevealCount = 1
	require.NoError(t, settings.Validate())

	s := NewSession("abc123", settings)
	p0 := NewPlayer("one", "")
	p1 := NewPlayer("two", "")
	require.NoError(t, s.AddPlayer(p0))
	require.NoError(t, s.AddPlayer(p1))
	require.NoError(t, s.Start(p0.ID))

	require.NoError(t, s.RevealCard(p0.ID, 0, 0))
	assert.Equal(4, p0.Board.CardCount(), "a lone revealed card must not clear")
	assert.Equal(1, p0.Board.visibleCount())

	require.NoError(t, s.RevealCard(p1.ID, 0, 0))
	assert.Equal(RoundActive, s.RoundState, "the reveal quota stays reachable")
}

func TestCardConservationThroughTurns(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 3)
	require.NoError(t, s.Start(players[0].ID))
	for _, p := range players {
		revealQuota(t, s, p)
	}
	require.Equal(t, RoundActive, s.RoundState)

	current := s.Players[s.TurnIndex]
	require.NoError(t, s.PickCard(current.ID, PickDraw))
	assert.Equal(DeckSize(), s.CardCount(), "after draw pick")

	require.NoError(t, s.DiscardSelected(current.ID))
	assert.Equal(DeckSize(), s.CardCount(), "after discard")

	col, row := findFaceDown(current.Board)
	require.NoError(t, s.TurnCard(current.ID, col, row))
	assert.Equal(DeckSize(), s.CardCount(), "after flip")

	next := s.Players[s.TurnIndex]
	assert.NotEqual(current.ID, next.ID)
	require.NoError(t, s.PickCard(next.ID, PickDiscard))
	require.NoError(t, s.ReplaceCard(next.ID, 0, 0))
	assert.Equal(DeckSize(), s.CardCount(), "after replace")
}

func findFaceDown(b Board) (int, int) {
	for c := range b {
		for r := range b[c] {
			if b[c][r] != nil && !b[c][r].Visible {
				return c, r
			}
		}
	}
	return -1, -1
}

func TestForcedReplaceAfterDiscardPick(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	a := players[0]

	require.NoError(t, s.PickCard(a.ID, PickDiscard))
	assert.Equal(ReplaceACard, s.TurnState)
	assert.Equal(3, s.SelectedCard.Value)

	assert.ErrorIs(s.DiscardSelected(a.ID), ErrInvalidTurnState, "a discard pick can never be thrown back")
	assert.Equal(ReplaceACard, s.TurnState, "rejected action leaves state unchanged")
	assert.NotNil(s.SelectedCard)

	require.NoError(t, s.ReplaceCard(a.ID, 0, 0))
	assert.Equal(3, a.Board.Card(0, 0).Value)
	assert.True(a.Board.Card(0, 0).Visible)
	assert.Equal(5, s.DiscardPile[len(s.DiscardPile)-1].Value, "replaced card lands face up on the discard pile")
	assert.Equal(1, s.TurnIndex, "turn passed on")
	assert.Equal(ChooseAPile, s.TurnState)
}

func TestDrawPickThrowAndFlip(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	a := players[0]

	require.NoError(t, s.PickCard(a.ID, PickDraw))
	assert.Equal(ThrowOrReplace, s.TurnState)
	assert.True(s.SelectedCard.Visible, "a drawn card is shown to everyone")
	assert.Equal(9, s.SelectedCard.Value)

	require.NoError(t, s.DiscardSelected(a.ID))
	assert.Equal(TurnACard, s.TurnState)
	assert.Equal(9, s.DiscardPile[len(s.DiscardPile)-1].Value)

	assert.ErrorIs(s.PickCard(a.ID, PickDraw), ErrInvalidTurnState)

	require.NoError(t, s.TurnCard(a.ID, 1, 0))
	assert.True(a.Board.Card(1, 0).Visible)
	assert.Equal(1, s.TurnIndex)
}

func TestTurnGuards(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	a, b := players[0], players[1]

	assert.ErrorIs(s.PickCard(b.ID, PickDraw), ErrNotAllowed, "not b's turn")
	assert.ErrorIs(s.ReplaceCard(a.ID, 0, 0), ErrInvalidTurnState, "nothing selected yet")
	assert.ErrorIs(s.TurnCard(a.ID, 0, 0), ErrInvalidTurnState)
	assert.ErrorIs(s.DiscardSelected(a.ID), ErrInvalidTurnState)
	assert.ErrorIs(s.PickCard(uuid.New(), PickDraw), ErrPlayerNotFound)

	require.NoError(t, s.PickCard(a.ID, PickDraw))
	assert.ErrorIs(s.ReplaceCard(a.ID, 7, 0), ErrInvalidTurnState, "out of range")
}

func TestLastLapAndDoubledScore(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	visible := [][][]bool{
		{{true}, {false}},
		{{true}, {false}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, visible, []int{9, 9}, 3)
	a, b := players[0], players[1]

	// A finishes their board: last lap begins, B gets one final turn.
	require.NoError(t, s.PickCard(a.ID, PickDraw))
	require.NoError(t, s.DiscardSelected(a.ID))
	require.NoError(t, s.TurnCard(a.ID, 1, 0))
	assert.Equal(LastLap, s.RoundState)
	assert.Equal(a.ID, s.finisherID)
	assert.Equal(1, s.TurnIndex)

	require.NoError(t, s.PickCard(b.ID, PickDraw))
	require.NoError(t, s.DiscardSelected(b.ID))
	require.NoError(t, s.TurnCard(b.ID, 1, 0))

	// A ended the round at 6 against B's 3: A pays double.
	require.Len(t, a.Scores, 1)
	require.Len(t, b.Scores, 1)
	assert.Equal(12, a.Scores[0].Score)
	assert.Equal(3, b.Scores[0].Score)

	// Nobody reached the threshold: a fresh round was dealt.
	assert.Equal(Playing, s.Status)
	assert.Equal(WaitingInitialReveal, s.RoundState)
	assert.Equal(0, players[0].Board.visibleCount())
}

func TestFinisherNotDoubledWhenStrictlyLowest(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{1}, {1}},
		{{2}, {9}},
	}
	visible := [][][]bool{
		{{true}, {false}},
		{{true}, {true}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, visible, []int{9, 9}, 3)
	a, b := players[0], players[1]

	require.NoError(t, s.PickCard(a.ID, PickDraw))
	require.NoError(t, s.DiscardSelected(a.ID))
	require.NoError(t, s.TurnCard(a.ID, 1, 0))

	// B's board was already fully visible, so their final turn must still
	// happen before scoring.
	require.Equal(t, LastLap, s.RoundState)
	require.NoError(t, s.PickCard(b.ID, PickDraw))
	require.NoError(t, s.ReplaceCard(b.ID, 1, 0))

	assert.Equal(2, a.Scores[0].Score, "strictly lowest finisher keeps the raw sum")
	assert.Equal(11, b.Scores[0].Score)
}

func TestGameEndAndWinner(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	visible := [][][]bool{
		{{true}, {false}},
		{{true}, {false}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, visible, []int{9, 9}, 3)
	a, b := players[0], players[1]
	a.Scores = []RoundScore{{Score: 95}}
	b.Scores = []RoundScore{{Score: 40}}

	require.NoError(t, s.PickCard(a.ID, PickDraw))
	require.NoError(t, s.DiscardSelected(a.ID))
	require.NoError(t, s.TurnCard(a.ID, 1, 0))
	require.NoError(t, s.PickCard(b.ID, PickDraw))
	require.NoError(t, s.DiscardSelected(b.ID))
	require.NoError(t, s.TurnCard(b.ID, 1, 0))

	assert.Equal(Finished, s.Status)
	assert.Equal(107, a.CumulativeScore())
	assert.Equal(43, b.CumulativeScore())

	winner := s.Winner()
	require.NotNil(t, winner)
	assert.Equal(b.ID, winner.ID)

	snap := s.Snapshot()
	assert.Equal(b.ID.String(), snap.WinnerID, "finished snapshots name the winner")
}

func TestDisconnectSkipsCurrentTurn(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	a, b := players[0], players[1]

	require.NoError(t, s.PickCard(a.ID, PickDraw))
	before := s.CardCount()

	require.NoError(t, s.MarkConnectionLost(a.ID, time.Hour, nil))
	assert.Equal(ConnectionLost, a.Status)
	assert.Nil(s.SelectedCard, "the held card is not lost")
	assert.Equal(9, s.DiscardPile[len(s.DiscardPile)-1].Value)
	assert.Equal(before, s.CardCount())
	assert.Equal(b.ID, s.Players[s.TurnIndex].ID)
	assert.Equal(ChooseAPile, s.TurnState)
}

func TestReconnectUnwedgesTurnAfterEveryoneDropped(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	a, b := players[0], players[1]

	// B drops first, then A drops while holding the turn: with nobody
	// connected the turn has no one to pass to.
	require.NoError(t, s.MarkConnectionLost(b.ID, time.Hour, nil))
	require.NoError(t, s.MarkConnectionLost(a.ID, time.Hour, nil))
	acted, _ := s.ExpireGrace(a.ID)
	require.True(t, acted)
	assert.Equal(a.ID, s.Players[s.TurnIndex].ID)

	require.NoError(t, s.MarkReconnected(b.ID))
	assert.Equal(b.ID, s.Players[s.TurnIndex].ID, "turn must leave the dropped holder")
	assert.NoError(s.PickCard(b.ID, PickDraw))
}

func TestReconnectKeepsSeatBoardAndScores(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	b := players[1]
	b.Scores = []RoundScore{{Score: 17}}
	board := b.Board

	require.NoError(t, s.MarkConnectionLost(b.ID, time.Hour, nil))
	require.NoError(t, s.MarkReconnected(b.ID))

	assert.Equal(Connected, b.Status)
	assert.Equal(1, s.playerIndexLocked(b.ID), "seat position unchanged")
	assert.Equal(board.CardCount(), b.Board.CardCount())
	assert.Same(board[0][0], b.Board[0][0], "board contents unchanged")
	assert.Equal(17, b.Scores[0].Score)
}

func TestGraceExpiryInLobbyRemovesSeatAndTransfersAdmin(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 3)
	admin := players[0]

	require.NoError(t, s.MarkConnectionLost(admin.ID, time.Hour, nil))
	acted, removed := s.ExpireGrace(admin.ID)

	assert.True(acted)
	assert.True(removed)
	assert.Len(s.Players, 2)
	assert.Equal(players[1].ID, s.AdminID, "admin moves to the next-oldest connected player")
}

func TestGraceExpiryMidGameKeepsSeat(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
		{{3}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	b := players[1]

	require.NoError(t, s.MarkConnectionLost(b.ID, time.Hour, nil))
	acted, removed := s.ExpireGrace(b.ID)

	assert.True(acted)
	assert.False(removed)
	assert.Len(s.Players, 3)
	assert.Equal(Disconnected, b.Status)

	// The expiry raced with nothing; a second fire is a no-op.
	acted, _ = s.ExpireGrace(b.ID)
	assert.False(acted)
}

func TestGraceExpiryCancelledByReconnect(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 2)

	require.NoError(t, s.MarkConnectionLost(players[1].ID, time.Hour, nil))
	require.NoError(t, s.MarkReconnected(players[1].ID))

	acted, _ := s.ExpireGrace(players[1].ID)
	assert.False(acted, "a cancelled grace timer must not remove the player")
	assert.Len(s.Players, 2)
}

func TestReplayResetsToLobby(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, []int{9}, 3)
	s.Status = Finished
	players[0].Scores = []RoundScore{{Score: 101}}
	players[1].Scores = []RoundScore{{Score: 60}}

	require.NoError(t, s.ToggleReplay(players[0].ID))
	assert.Equal(Finished, s.Status, "waits for everyone")

	require.NoError(t, s.ToggleReplay(players[1].ID))
	assert.Equal(Lobby, s.Status)
	for _, p := range players {
		assert.Nil(p.Board)
		assert.Empty(p.Scores)
		assert.False(p.WantsReplay)
	}
}

func TestChangeSettingsRules(t *testing.T) {
	assert := assert.New(t)
	s, players := lobbyWith(t, 2)

	updated := DefaultSettings()
	updated.InitialRevealCount = 3
	assert.ErrorIs(s.ChangeSettings(players[1].ID, updated), ErrNotAllowed)
	assert.NoError(s.ChangeSettings(players[0].ID, updated))
	assert.Equal(3, s.Settings.InitialRevealCount)

	bad := DefaultSettings()
	bad.MaxPlayers = 1
	assert.ErrorIs(s.ChangeSettings(players[0].ID, bad), ErrInvalidSettings)

	require.NoError(t, s.Start(players[0].ID))
	assert.ErrorIs(s.ChangeSettings(players[0].ID, updated), ErrGameAlreadyStarted)
}

func TestDrawPileReplenishedFromDiscard(t *testing.T) {
	assert := assert.New(t)
	boards := [][][]int{
		{{5}, {1}},
		{{2}, {1}},
	}
	s, players := scriptedSession(t, scriptedSettings(), boards, nil, nil, 3)
	for _, v := range []int{6, 7} {
		c := NewCard(v)
		c.Reveal()
		s.DiscardPile = append([]*Card{c}, s.DiscardPile...)
	}
	require.Empty(t, s.DrawPile)
	require.Len(t, s.DiscardPile, 3)
	before := s.CardCount()

	require.NoError(t, s.PickCard(players[0].ID, PickDraw))

	assert.NotNil(s.SelectedCard)
	assert.Len(s.DiscardPile, 1, "only the top card stays behind")
	assert.Equal(3, s.DiscardPile[0].Value)
	assert.Len(s.DrawPile, 1)
	assert.False(s.DrawPile[0].Visible)
	assert.Equal(before, s.CardCount())
}
