package models

import "time"

// Question belongs to one session; OrderNum is its 0-based play position.
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    uint      `gorm:"not null;uniqueIndex:idx_question_order" json:"session_id"`
	OrderNum     int       `gorm:"not null;uniqueIndex:idx_question_order" json:"order_num"`
	Text         string    `gorm:"size:200;not null" json:"text"`
	Options      []string  `gorm:"type:text;serializer:json;not null" json:"options"`
	CorrectIndex int       `gorm:"not null" json:"correct_index"`
	CreatedAt    time.Time `json:"created_at"`
}
