package game

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// KickThreshold is the fraction of eligible voters whose yes-votes are
// needed for a kick to pass. The target never counts as eligible.
const KickThreshold = 0.8

// KickVote is a time-boxed quorum poll to remove one player from the
// session. At most one vote is active per session.
type KickVote struct {
	TargetID    uuid.UUID
	InitiatorID uuid.UUID
	Votes       map[uuid.UUID]bool
	ExpiresAt   time.Time

	timer *time.Timer
}

func newKickVote(initiatorID, targetID uuid.UUID, ttl time.Duration) *KickVote {
	kv := &KickVote{
		TargetID:    targetID,
		InitiatorID: initiatorID,
		Votes:       map[uuid.UUID]bool{initiatorID: true},
		ExpiresAt:   time.Now().Add(ttl),
	}
	return kv
}

// RequiredVotes computes the quorum for the given number of eligible
// voters (connected players excluding the target).
func RequiredVotes(eligibleVoters int) int {
	return int(math.Ceil(float64(eligibleVoters) * KickThreshold))
}

func (kv *KickVote) yesVotes() int {
	n := 0
	for _, approve := range kv.Votes {
		if approve {
			n++
		}
	}
	return n
}

func (kv *KickVote) stopTimer() {
	if kv.timer != nil {
		kv.timer.Stop()
		kv.timer = nil
	}
}
