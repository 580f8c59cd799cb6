package models

import "time"

type Player struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index" json:"session_id"`
	Nickname   string    `gorm:"size:100;not null" json:"nickname"`
	FinalScore int       `gorm:"not null;default:0" json:"final_score"`
	CreatedAt  time.Time `json:"created_at"`
}
