package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outer lifecycle of a session.
type Status int

const (
	Lobby Status = iota
	Playing
	Finished
	Stopped
)

func (s Status) String() string {
	switch s {
	case Lobby:
		return "lobby"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// RoundState is the nested round lifecycle while the session is playing.
type RoundState int

const (
	WaitingInitialReveal RoundState = iota
	RoundActive
	LastLap
	RoundOver
)

func (rs RoundState) String() string {
	switch rs {
	case WaitingInitialReveal:
		return "waitingInitialReveal"
	case RoundActive:
		return "active"
	case LastLap:
		return "lastLap"
	case RoundOver:
		return "over"
	}
	return "unknown"
}

func (rs RoundState) MarshalJSON() ([]byte, error) { return json.Marshal(rs.String()) }

// TurnState is the per-turn state machine of the current player.
type TurnState int

const (
	ChooseAPile TurnState = iota
	ThrowOrReplace
	ReplaceACard
	TurnACard
)

func (ts TurnState) String() string {
	switch ts {
	case ChooseAPile:
		return "chooseAPile"
	case ThrowOrReplace:
		return "throwOrReplace"
	case ReplaceACard:
		return "replaceACard"
	case TurnACard:
		return "turnACard"
	}
	return "unknown"
}

func (ts TurnState) MarshalJSON() ([]byte, error) { return json.Marshal(ts.String()) }

// KickOutcome reports how a kick-vote mutation resolved.
type KickOutcome int

const (
	KickPending KickOutcome = iota
	KickPassed
	KickFailed
)

const (
	// EndScoreThreshold ends the game once any cumulative score reaches it.
	EndScoreThreshold = 100
	// DefaultGracePeriod is how long a lost connection may come back.
	DefaultGracePeriod = 30 * time.Second
	// KickVoteTTL is how long a kick vote stays open.
	KickVoteTTL = 30 * time.Second
)

// PickSource selects which pile a card is drawn from.
type PickSource string

const (
	PickDraw    PickSource = "draw"
	PickDiscard PickSource = "discard"
)

// Session is the aggregate root of one game: players, piles, settings and
// the round/turn state machines. Every mutation happens under the session
// mutex, so there is at most one in-flight mutation per session, including
// the timer-driven ones.
type Session struct {
	mu sync.Mutex

	ID          uuid.UUID
	Code        string
	AdminID     uuid.UUID
	Settings    Settings
	Players     []*Player
	Status      Status
	DrawPile    []*Card
	DiscardPile []*Card // top is last
	TurnIndex   int
	RoundState  RoundState
	TurnState   TurnState
	SelectedCard *Card
	PendingKick  *KickVote
	CreatedAt    time.Time
	UpdatedAt    time.Time

	finisherID        uuid.UUID
	pendingFinalTurns map[uuid.UUID]bool
}

func NewSession(code string, settings Settings) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		Code:      code,
		Settings:  settings,
		Status:    Lobby,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) touchLocked() {
	s.UpdatedAt = time.Now()
}

// Touch refreshes the activity timestamp, e.g. on chat traffic.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *Session) playerByIDLocked(id uuid.UUID) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) playerIndexLocked(id uuid.UUID) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) connectedCountLocked() int {
	n := 0
	for _, p := range s.Players {
		if p.Status == Connected {
			n++
		}
	}
	return n
}

// PlayerInfo resolves a player's display data by id.
func (s *Session) PlayerInfo(id uuid.UUID) (name, avatar string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByIDLocked(id)
	if p == nil {
		return "", "", ErrPlayerNotFound
	}
	return p.Name, p.Avatar, nil
}

// AddPlayer seats a new participant. Only possible while in the lobby and
// below the player cap.
func (s *Session) AddPlayer(p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != Lobby {
		return ErrGameAlreadyStarted
	}
	if len(s.Players) >= s.Settings.MaxPlayers {
		return ErrGameIsFull
	}
	s.Players = append(s.Players, p)
	if s.AdminID == uuid.Nil {
		s.AdminID = p.ID
	}
	s.touchLocked()
	return nil
}

// ChangeSettings replaces the settings. Admin only, lobby only.
func (s *Session) ChangeSettings(playerID uuid.UUID, settings Settings) error {
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
	if err := settings.Validate(); err != nil {
		return err
	}
	if len(s.Players) > settings.MaxPlayers {
		return ErrInvalidSettings
	}
	s.Settings = settings
	s.touchLocked()
	return nil
}

// Leave removes a player on their own request. In the lobby the seat is
// freed; mid-game the seat stays and is skipped, like a kicked player.
func (s *Session) Leave(playerID uuid.UUID) (removed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return false, ErrPlayerNotFound
	}
	if s.Status == Lobby {
		s.removePlayerLocked(p)
		s.touchLocked()
		return true, nil
	}
	p.stopGraceTimer()
	p.Status = Disconnected
	s.handleInactiveLocked(p)
	s.touchLocked()
	return false, nil
}

func (s *Session) removePlayerLocked(p *Player) {
	idx := s.playerIndexLocked(p.ID)
	if idx < 0 {
		return
	}
	p.stopGraceTimer()
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	if s.TurnIndex > idx {
		s.TurnIndex--
	} else if s.TurnIndex >= len(s.Players) {
		s.TurnIndex = 0
	}
	if s.AdminID == p.ID {
		s.transferAdminLocked()
	}
	if s.PendingKick != nil {
		if s.PendingKick.TargetID == p.ID {
			s.PendingKick.stopTimer()
			s.PendingKick = nil
		} else {
			delete(s.PendingKick.Votes, p.ID)
		}
	}
}

// transferAdminLocked hands the admin role to the next-oldest connected
// player, falling back to any remaining player.
func (s *Session) transferAdminLocked() {
	s.AdminID = uuid.Nil
	for _, p := range s.Players {
		if p.Status == Connected {
			s.AdminID = p.ID
			return
		}
	}
	if len(s.Players) > 0 {
		s.AdminID = s.Players[0].ID
	}
}

// MarkConnectionLost records a transport disconnect and arms the grace
// timer. If it was this player's turn, the turn passes on immediately.
// onExpired runs after a grace expiry actually mutates the session; it is
// called outside the session lock.
func (s *Session) MarkConnectionLost(playerID uuid.UUID, grace time.Duration, onExpired func(removed bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.Status == Disconnected {
		return nil
	}
	p.Status = ConnectionLost
	p.stopGraceTimer()
	p.graceTimer = time.AfterFunc(grace, func() {
		acted, removed := s.ExpireGrace(playerID)
		if acted && onExpired != nil {
			onExpired(removed)
		}
	})
	s.handleInactiveLocked(p)
	s.touchLocked()
	return nil
}

// MarkReconnected resolves a returning connection to the seat with the
// same player id and cancels any pending grace timer.
func (s *Session) MarkReconnected(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.stopGraceTimer()
	p.Status = Connected
	// When every player had dropped, the turn stays stranded on whoever
	// held it last. Move it along now that someone is back.
	if s.Status == Playing && (s.RoundState == RoundActive || s.RoundState == LastLap) &&
		s.TurnIndex < len(s.Players) && s.Players[s.TurnIndex].Status != Connected {
		s.skipCurrentTurnLocked()
	}
	s.touchLocked()
	return nil
}

// ExpireGrace is the grace-timer mutation. It is a no-op when the timer
// raced with a reconnect. In the lobby the seat is freed entirely;
// mid-game the player keeps board and scores but is skipped from then on.
func (s *Session) ExpireGrace(playerID uuid.UUID) (acted, removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByIDLocked(playerID)
	if p == nil || p.Status != ConnectionLost {
		return false, false
	}
	p.graceTimer = nil
	p.Status = Disconnected
	if s.Status == Lobby {
		s.removePlayerLocked(p)
		s.touchLocked()
		return true, true
	}
	s.handleInactiveLocked(p)
	s.touchLocked()
	return true, false
}

// handleInactiveLocked reacts to a player dropping out of the active set:
// turn rotation skips them, the initial reveal no longer waits for them,
// and a finished session re-checks replay readiness.
func (s *Session) handleInactiveLocked(p *Player) {
	switch s.Status {
	case Playing:
		switch s.RoundState {
		case WaitingInitialReveal:
			s.maybeFinishInitialRevealLocked()
		case RoundActive, LastLap:
			if s.RoundState == LastLap {
				delete(s.pendingFinalTurns, p.ID)
			}
			if s.TurnIndex < len(s.Players) && s.Players[s.TurnIndex].ID == p.ID {
				s.skipCurrentTurnLocked()
			} else if s.RoundState == LastLap && len(s.pendingFinalTurns) == 0 {
				s.finishRoundLocked()
			}
		}
	case Finished:
		s.maybeResetForReplayLocked()
	}
}

// ToggleReplay flips a player's replay opt-in after the game finished.
// Once every connected player has opted in, the session resets to lobby.
func (s *Session) ToggleReplay(playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != Finished {
		return ErrInvalidTurnState
	}
	p := s.playerByIDLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.Status != Connected {
		return ErrNotAllowed
	}
	p.WantsReplay = !p.WantsReplay
	s.maybeResetForReplayLocked()
	s.touchLocked()
	return nil
}

func (s *Session) maybeResetForReplayLocked() {
	if s.Status != Finished || s.connectedCountLocked() == 0 {
		return
	}
	for _, p := range s.Players {
		if p.Status == Connected && !p.WantsReplay {
			return
		}
	}
	// Back to the lobby with the same seats. Players who never came back
	// lose their seat, as any disconnected player in a lobby does.
	kept := s.Players[:0]
	for _, p := range s.Players {
		if p.Status == Connected {
			p.Board = nil
			p.Scores = nil
			p.WantsReplay = false
			kept = append(kept, p)
		} else {
			p.stopGraceTimer()
		}
	}
	s.Players = kept
	s.Status = Lobby
	s.DrawPile = nil
	s.DiscardPile = nil
	s.SelectedCard = nil
	s.RoundState = WaitingInitialReveal
	s.TurnState = ChooseAPile
	s.TurnIndex = 0
	s.finisherID = uuid.Nil
	s.pendingFinalTurns = nil
	if s.playerByIDLocked(s.AdminID) == nil {
		s.transferAdminLocked()
	}
}

// StartKickVote opens a vote to remove targetID. The initiator's yes is
// recorded immediately, which can already resolve the vote in very small
// sessions. onExpired runs outside the lock after an expiry discarded the
// vote.
func (s *Session) StartKickVote(initiatorID, targetID uuid.UUID, ttl time.Duration, onExpired func()) (KickOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	initiator := s.playerByIDLocked(initiatorID)
	if initiator == nil {
		return KickPending, ErrPlayerNotFound
	}
	if s.playerByIDLocked(targetID) == nil {
		return KickPending, ErrPlayerNotFound
	}
	if initiator.Status != Connected || initiatorID == targetID || s.PendingKick != nil {
		return KickPending, ErrNotAllowed
	}
	kv := newKickVote(initiatorID, targetID, ttl)
	s.PendingKick = kv
	outcome := s.evaluateKickLocked()
	if outcome == KickPending {
		kv.timer = time.AfterFunc(ttl, func() {
			if s.expireKickVote(kv) && onExpired != nil {
				onExpired()
			}
		})
	}
	s.touchLocked()
	return outcome, nil
}

// CastKickVote records a yes/no vote. A repeat vote from the same player
// overwrites the earlier one.
func (s *Session) CastKickVote(voterID uuid.UUID, approve bool) (KickOutcome, uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kv := s.PendingKick
	if kv == nil {
		return KickPending, uuid.Nil, ErrNotAllowed
	}
	target := kv.TargetID
	voter := s.playerByIDLocked(voterID)
	if voter == nil {
		return KickPending, target, ErrPlayerNotFound
	}
	if voter.Status != Connected || voterID == target {
		return KickPending, target, ErrNotAllowed
	}
	kv.Votes[voterID] = approve
	outcome := s.evaluateKickLocked()
	s.touchLocked()
	return outcome, target, nil
}

// evaluateKickLocked resolves the pending vote: it passes the moment the
// yes-votes reach the quorum and completes as failed once every eligible
// voter has spoken without reaching it. Votes from players who dropped
// out since count for neither side, so the tally and the quorum are
// measured over the same population.
func (s *Session) evaluateKickLocked() KickOutcome {
	kv := s.PendingKick
	if kv == nil {
		return KickPending
	}
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
	if eligible > 0 && yes >= RequiredVotes(eligible) {
		kv.stopTimer()
		s.PendingKick = nil
		s.applyKickLocked(kv.TargetID)
		return KickPassed
	}
	if eligible > 0 && votesIn >= eligible {
		kv.stopTimer()
		s.PendingKick = nil
		return KickFailed
	}
	return KickPending
}

func (s *Session) applyKickLocked(targetID uuid.UUID) {
	target := s.playerByIDLocked(targetID)
	if target == nil {
		return
	}
	if s.Status == Lobby {
		s.removePlayerLocked(target)
		return
	}
	target.stopGraceTimer()
	target.Status = Disconnected
	s.handleInactiveLocked(target)
}

// expireKickVote discards the vote with no effect, unless it was already
// resolved or replaced while the timer was firing.
func (s *Session) expireKickVote(kv *KickVote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PendingKick != kv {
		return false
	}
	s.PendingKick = nil
	s.touchLocked()
	return true
}

// Joinable reports whether a new player could take a seat right now in a
// public lobby.
func (s *Session) Joinable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.Settings.Private && s.Status == Lobby && len(s.Players) < s.Settings.MaxPlayers
}

// CardCount totals the cards across every location the session owns.
func (s *Session) CardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardCountLocked()
}

func (s *Session) cardCountLocked() int {
	n := len(s.DrawPile) + len(s.DiscardPile)
	if s.SelectedCard != nil {
		n++
	}
	for _, p := range s.Players {
		n += p.Board.CardCount()
	}
	return n
}

// IdleAndEmpty reports whether the session has no connected players and
// has seen no activity for maxIdle. Used by the directory sweep.
func (s *Session) IdleAndEmpty(maxIdle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCountLocked() == 0 && time.Since(s.UpdatedAt) > maxIdle
}

// MarkStopped ends the session and releases every timer it owns.
func (s *Session) MarkStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = Stopped
	for _, p := range s.Players {
		p.stopGraceTimer()
	}
	if s.PendingKick != nil {
		s.PendingKick.stopTimer()
		s.PendingKick = nil
	}
}
