package model

import "time"

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusDead    = "DEAD"
)

const (
	TopicStatementRecalc = "statement.recalculate"
	TopicBadgeRecalc     = "badge.recalculate"
)

// OutboxEvent is a side effect recorded in the same transaction as the
// mutation that caused it (statement/badge recompute triggers). A background
// dispatcher delivers rows independently so a collaborator outage can never
// fail an ingest response.
type OutboxEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"size:36;uniqueIndex" json:"event_id"`
	Topic         string    `gorm:"size:60;not null;index" json:"topic"`
	Payload       string    `gorm:"type:text" json:"payload"`
	Status        string    `gorm:"size:10;not null;default:PENDING;index" json:"status"`
	Attempts      int       `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time `gorm:"index" json:"next_attempt_at"`
	LastError     string    `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
