package models

import (
	"time"

	"gorm.io/gorm"
)

// Game is the durable mirror of a session. Services write it through
// after mutations; the in-memory session stays the source of truth while
// the session is alive.
type Game struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	Code       string         `json:"code" gorm:"uniqueIndex;not null"`
	Status     string         `json:"status" gorm:"not null;default:'lobby'"` // lobby, playing, finished, stopped
	AdminID    string         `json:"admin_id"`
	Private    bool           `json:"private"`
	MaxPlayers int            `json:"max_players"`
	StartedAt  *time.Time     `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Players []Player `json:"players,omitempty" gorm:"foreignKey:GameID"`
}
