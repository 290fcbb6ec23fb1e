package services

import (
	"log"

	"skyjo/game"

	"github.com/google/uuid"
)

// KickService runs the quorum votes that remove a disruptive player.
type KickService struct {
	registry *game.Registry
	games    *GameService
}

func NewKickService(registry *game.Registry, games *GameService) *KickService {
	return &KickService{
		registry: registry,
		games:    games,
	}
}

// Initiate opens a kick vote against targetID. The initiator counts as a
// yes, which can already decide the vote in a two-seat session.
func (s *KickService) Initiate(code, initiatorID, targetID string, hub *Hub) error {
	sess, initiator, err := s.games.resolve(code, initiatorID)
	if err != nil {
		return err
	}
	target, err := uuid.Parse(targetID)
	if err != nil {
		return game.ErrPlayerNotFound
	}
	outcome, err := sess.StartKickVote(initiator, target, game.KickVoteTTL, func() {
		log.Printf("Kick vote against %s in game %s expired without quorum", targetID, code)
		s.afterExpiry(code, hub)
	})
	if err != nil {
		return err
	}
	log.Printf("Kick vote against %s started by %s in game %s", targetID, initiatorID, code)
	if outcome == game.KickPassed {
		s.finishKick(code, targetID, hub)
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

// Vote records one yes/no ballot; a repeat vote overwrites the earlier
// one. The vote resolves the moment the quorum is reached or everyone
// eligible has spoken.
func (s *KickService) Vote(code, voterID string, approve bool, hub *Hub) error {
	sess, voter, err := s.games.resolve(code, voterID)
	if err != nil {
		return err
	}
	outcome, target, err := sess.CastKickVote(voter, approve)
	if err != nil {
		return err
	}
	switch outcome {
	case game.KickPassed:
		s.finishKick(code, target.String(), hub)
	case game.KickFailed:
		log.Printf("Kick vote against %s in game %s completed without quorum", target, code)
	}
	s.games.SyncAndBroadcast(sess, hub)
	return nil
}

func (s *KickService) finishKick(code, targetID string, hub *Hub) {
	log.Printf("Kick vote passed: removing player %s from game %s", targetID, code)
	if hub != nil {
		hub.ClosePlayerClients(code, targetID)
	}
}

func (s *KickService) afterExpiry(code string, hub *Hub) {
	sess, err := s.registry.Get(code)
	if err != nil {
		return
	}
	s.games.SyncAndBroadcast(sess, hub)
}
