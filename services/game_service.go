package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"skyjo/game"
	"skyjo/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GameService orchestrates in-game intents: it resolves the session,
// validates and applies the mutation, writes the durable mirror and the
// redis snapshot, and broadcasts the new state.
type GameService struct {
	db       *gorm.DB
	redis    *redis.Client
	registry *game.Registry
}

func NewGameService(db *gorm.DB, redis *redis.Client, registry *game.Registry) *GameService {
	return &GameService{
		db:       db,
		redis:    redis,
		registry: registry,
	}
}

func (s *GameService) resolve(code, playerID string) (*game.Session, uuid.UUID, error) {
	sess, err := s.registry.Get(code)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(playerID)
	if err != nil {
		return nil, uuid.Nil, game.ErrPlayerNotFound
	}
	return sess, id, nil
}

// PlayerInfo resolves a player's display data within a session.
func (s *GameService) PlayerInfo(code, playerID string) (name, avatar string, err error) {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return "", "", err
	}
	return sess.PlayerInfo(id)
}

func (s *GameService) StartGame(code, playerID string, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.Start(id); err != nil {
		return err
	}
	log.Printf("Game %s started by player %s", code, playerID)
	s.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *GameService) RevealCard(code, playerID string, col, row int, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.RevealCard(id, col, row); err != nil {
		return err
	}
	s.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *GameService) PickCard(code, playerID, source string, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	var src game.PickSource
	switch source {
	case string(game.PickDraw):
		src = game.PickDraw
	case string(game.PickDiscard):
		src = game.PickDiscard
	default:
		return game.ErrInvalidTurnState
	}
	if err := sess.PickCard(id, src); err != nil {
		return err
	}
	s.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *GameService) ReplaceCard(code, playerID string, col, row int, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.ReplaceCard(id, col, row); err != nil {
		return err
	}
	s.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *GameService) DiscardSelected(code, playerID string, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.DiscardSelected(id); err != nil {
		return err
	}
	s.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *GameService) TurnCard(code, playerID string, col, row int, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	if err := sess.TurnCard(id, col, row); err != nil {
		return err
	}
	s.SyncAndBroadcast(sess, hub)
	return nil
}

// Chat relays a message to the whole session. Chat is not part of the
// game state, so it broadcasts directly instead of a snapshot, but it
// still counts as activity.
func (s *GameService) Chat(code, playerID, text string, hub *Hub) error {
	sess, id, err := s.resolve(code, playerID)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	name, avatar, err := sess.PlayerInfo(id)
	if err != nil {
		return err
	}
	sess.Touch()
	if hub != nil {
		hub.BroadcastToGame(code, "chat_message", gin.H{
			"player_id": playerID,
			"name":      name,
			"avatar":    avatar,
			"text":      text,
			"sent_at":   time.Now(),
		})
	}
	return nil
}

// GetCurrentState returns the authoritative snapshot for a session,
// falling back to the redis mirror for sessions this process no longer
// holds in memory.
func (s *GameService) GetCurrentState(code string) (*game.Snapshot, error) {
	sess, err := s.registry.Get(code)
	if err == nil {
		snap := sess.Snapshot()
		return &snap, nil
	}
	if snap := s.getSessionState(code); snap != nil {
		return snap, nil
	}
	return nil, game.ErrGameNotFound
}

// SyncAndBroadcast publishes the session state everywhere it needs to
// go: the gorm mirror, the redis snapshot cache, and every connection of
// the session.
func (s *GameService) SyncAndBroadcast(sess *game.Session, hub *Hub) {
	snap := sess.Snapshot()
	s.syncMirror(snap)
	if err := s.storeSessionState(snap); err != nil {
		log.Printf("Failed to store session state for %s: %v", snap.Code, err)
	}
	if hub != nil {
		hub.BroadcastToGame(snap.Code, "game_state", snap)
	}
}

// syncMirror writes the durable copy of the session. The mirror is never
// read back during an active session.
func (s *GameService) syncMirror(snap game.Snapshot) {
	if s.db == nil {
		return
	}
	record := models.Game{
		ID:         snap.ID,
		Code:       snap.Code,
		Status:     snap.Status.String(),
		AdminID:    snap.AdminID,
		Private:    snap.Settings.Private,
		MaxPlayers: snap.Settings.MaxPlayers,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
	}
	if err := s.db.Save(&record).Error; err != nil {
		log.Printf("Failed to mirror game %s: %v", snap.Code, err)
		return
	}
	keep := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		keep = append(keep, p.ID)
		row := models.Player{
			ID:     p.ID,
			GameID: snap.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Score:  p.TotalScore,
			Status: p.Status.String(),
		}
		if err := s.db.Save(&row).Error; err != nil {
			log.Printf("Failed to mirror player %s in game %s: %v", p.ID, snap.Code, err)
		}
	}
	if len(keep) > 0 {
		s.db.Where("game_id = ? AND id NOT IN ?", snap.ID, keep).Delete(&models.Player{})
	} else {
		s.db.Where("game_id = ?", snap.ID).Delete(&models.Player{})
	}
}

// RemoveMirror deletes the durable and cached copies of a collected
// session.
func (s *GameService) RemoveMirror(snap game.Snapshot) {
	if s.db != nil {
		s.db.Where("game_id = ?", snap.ID).Delete(&models.Player{})
		s.db.Model(&models.Game{}).Where("id = ?", snap.ID).Update("status", game.Stopped.String())
	}
	if s.redis != nil {
		s.redis.Del(context.Background(), "game:"+strings.ToLower(snap.Code))
	}
}

func (s *GameService) storeSessionState(snap game.Snapshot) error {
	if s.redis == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	key := "game:" + strings.ToLower(snap.Code)
	if err := s.redis.Set(context.Background(), key, data, 2*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store in redis: %w", err)
	}
	return nil
}

func (s *GameService) getSessionState(code string) *game.Snapshot {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(context.Background(), "game:"+strings.ToLower(code)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Redis error getting session state for %s: %v", code, err)
		}
		return nil
	}
	var snap game.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		log.Printf("Failed to unmarshal session state for %s: %v", code, err)
		return nil
	}
	return &snap
}
