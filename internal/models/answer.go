package models

import "time"

// Answer is the scored submission of one player for one question.
// LastOptionIndex is the player's final choice, which differs from
// OptionIndex when they changed their answer after it was scored.
type Answer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       uint      `gorm:"not null;index" json:"session_id"`
	PlayerID        uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"player_id"`
	QuestionIndex   int       `gorm:"not null;uniqueIndex:idx_answer_unique" json:"question_index"`
	OptionIndex     int       `gorm:"not null" json:"option_index"`
	LastOptionIndex int       `gorm:"not null" json:"last_option_index"`
	IsCorrect       bool      `gorm:"not null" json:"is_correct"`
	Points          int       `gorm:"not null;default:0" json:"points"`
	CreatedAt       time.Time `json:"created_at"`
}
