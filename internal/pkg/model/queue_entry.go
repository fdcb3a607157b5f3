package model

import (
	"time"
)

// QueueEntry is one player waiting for an opponent. At most one active
// entry exists per user; joining again replaces the previous entry.
type QueueEntry struct {
	UserId   string `gorm:"primaryKey"`
	Rating   int
	JoinedAt time.Time
}

func (QueueEntry) TableName() string {
	return "queue_entry"
}
