package models

import "time"

// ActivityLog records who did what, for the activity feed.
type ActivityLog struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	UserID      int64     `gorm:"index" json:"user_id,omitempty"`
	Action      string    `gorm:"not null" json:"action"`
	EntityType  string    `json:"entity_type,omitempty"`
	EntityID    int64     `json:"entity_id,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
