package models

import "time"

type Session struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Pin        string     `gorm:"size:10;uniqueIndex;not null" json:"pin"`
	Title      string     `gorm:"size:100;not null" json:"title"`
	Status     string     `gorm:"size:20;not null;default:'PREPARED'" json:"status"`
	Questions  []Question `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Players    []Player   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"players,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

const (
	SessionStatusPrepared = "PREPARED"
	SessionStatusActive   = "ACTIVE"
	SessionStatusFinished = "FINISHED"
)
