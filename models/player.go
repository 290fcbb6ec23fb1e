package models

import (
	"time"

	"gorm.io/gorm"
)

type Player struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	GameID    string         `json:"game_id" gorm:"index;not null"`
	Name      string         `json:"name" gorm:"not null"`
	Avatar    string         `json:"avatar"`
	Score     int            `json:"score" gorm:"not null;default:0"`
	Status    string         `json:"status" gorm:"not null;default:'connected'"`
	JoinedAt  time.Time      `json:"joined_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Game Game `json:"game,omitempty"`
}
