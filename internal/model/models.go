package model

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is the durable copy of a connection's display identity.
type Profile struct {
	ConnectionID string `gorm:"primaryKey;size:64"`
	Nickname     string `gorm:"size:32"`
	Avatar       string `gorm:"size:128"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoundLog stores one scored round. Seats and Breakdown are JSON so the
// schema does not follow the scoring categories.
type RoundLog struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	RoomCode    string `gorm:"index;size:16;not null"`
	Round       int    `gorm:"not null"`
	TeamAPoints int
	TeamBPoints int
	TeamATotal  int
	TeamBTotal  int
	Seats       datatypes.JSON
	Breakdown   datatypes.JSON
	EndedAt     time.Time
	CreatedAt   time.Time
}
