package services

import (
	"errors"
	"log"

	"skyjo/game"
	"skyjo/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// LobbyService handles everything before and around a game: session
// creation, joining, settings, replay, leaving, and the connection
// lifecycle with its grace period.
type LobbyService struct {
	db        *gorm.DB
	redis     *redis.Client
	registry  *game.Registry
	games     *GameService
	jwtSecret string
}

func NewLobbyService(db *gorm.DB, redis *redis.Client, registry *game.Registry, games *GameService, jwtSecret string) *LobbyService {
	return &LobbyService{
		db:        db,
		redis:     redis,
		registry:  registry,
		games:     games,
		jwtSecret: jwtSecret,
	}
}

type JoinGameRequest struct {
	Name   string `json:"name" binding:"required"`
	Avatar string `json:"avatar"`
}

type JoinGameResponse struct {
	GameID   string `json:"game_id"`
	Code     string `json:"code"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

// CreatePrivate opens a fresh private session with the requester as
// admin.
func (s *LobbyService) CreatePrivate(req *JoinGameRequest, hub *Hub) (*JoinGameResponse, error) {
	settings := game.DefaultSettings()
	settings.Private = true
	sess := s.registry.Create(settings)
	return s.seatPlayer(sess, req, hub)
}

// Find seats the requester in any open public session, creating one when
// none is available.
func (s *LobbyService) Find(req *JoinGameRequest, hub *Hub) (*JoinGameResponse, error) {
	if sess := s.registry.FindOpenPublic(); sess != nil {
		resp, err := s.seatPlayer(sess, req, hub)
		// The seat may have been taken between lookup and join; fall
		// through to a fresh session in that case.
		if err == nil || (!errors.Is(err, game.ErrGameIsFull) && !errors.Is(err, game.ErrGameAlreadyStarted)) {
			return resp, err
		}
	}
	sess := s.registry.Create(game.DefaultSettings())
	return s.seatPlayer(sess, req, hub)
}

// Join seats the requester in the session with the given code.
func (s *LobbyService) Join(code string, req *JoinGameRequest, hub *Hub) (*JoinGameResponse, error) {
	sess, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return s.seatPlayer(sess, req, hub)
}

func (s *LobbyService) seatPlayer(sess *game.Session, req *JoinGameRequest, hub *Hub) (*JoinGameResponse, error) {
	p := game.NewPlayer(req.Name, req.Avatar)
	if err := sess.AddPlayer(p); err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	token, err := middleware.GeneratePlayerToken(s.jwtSecret, p.ID.String(), snap.Code)
	if err != nil {
		return nil, err
	}
	log.Printf("Player %s (%s) joined game %s", p.ID, p.Name, snap.Code)
	s.games.SyncAndBroadcast(sess, hub)
	return &JoinGameResponse{
		GameID:   snap.ID,
		Code:     snap.Code,
		PlayerID: p.ID.String(),
		Token:    token,
	}, nil
}

// ChangeSettings applies a new settings set. Admin only, lobby only.
func (s *LobbyService) ChangeSettings(code, playerID string, settings game.Settings, hub *Hub) error {
	sess, id, err := s.games.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.ChangeSettings(id, settings); err != nil {
		return err
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

// Replay records a player's wish for another game; once every connected
// player agrees the session resets to the lobby.
func (s *LobbyService) Replay(code, playerID string, hub *Hub) error {
	sess, id, err := s.games.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.ToggleReplay(id); err != nil {
		return err
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

// Leave removes the requester from the session. A session whose last
// seat empties this way is closed immediately instead of waiting for
// the inactivity sweep.
func (s *LobbyService) Leave(code, playerID string, hub *Hub) error {
	sess, id, err := s.games.resolve(code, playerID)
	if err != nil {
		return err
	}
	removed, err := sess.Leave(id)
	if err != nil {
		return err
	}
	log.Printf("Player %s left game %s", playerID, code)
	snap := sess.Snapshot()
	if removed && len(snap.Players) == 0 {
		s.registry.Remove(snap.Code)
		s.games.RemoveMirror(snap)
		log.Printf("Game %s closed after its last player left", snap.Code)
		return nil
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

// HandleConnect resolves a fresh websocket connection to its seat. For a
// returning player this cancels the grace timer and restores their
// connected status.
func (s *LobbyService) HandleConnect(code, playerID string, hub *Hub) error {
	sess, id, err := s.games.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.MarkReconnected(id); err != nil {
		return err
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

// HandleDisconnect marks the player's connection as lost and arms the
// grace timer. When the timer fires without a reconnect, the expiry
// mutation runs under the session lock and the result is broadcast.
func (s *LobbyService) HandleDisconnect(code, playerID string, hub *Hub) {
	sess, id, err := s.games.resolve(code, playerID)
	if err != nil {
		return
	}
	err = sess.MarkConnectionLost(id, game.DefaultGracePeriod, func(removed bool) {
		if removed {
			log.Printf("Player %s removed from game %s after grace expiry", playerID, code)
		} else {
			log.Printf("Player %s in game %s is now disconnected", playerID, code)
		}
		s.afterTimerMutation(code, hub)
	})
	if err != nil {
		return
	}
	log.Printf("Player %s lost connection to game %s", playerID, code)
	s.games.SyncAndBroadcast(sess, hub)
}

func (s *LobbyService) afterTimerMutation(code string, hub *Hub) {
	sess, err := s.registry.Get(code)
	if err != nil {
		return
	}
	s.games.SyncAndBroadcast(sess, hub)
}
