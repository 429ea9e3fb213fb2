package model

import "time"

const (
	EventTracked         = "TRACKED"
	EventStatusChange    = "STATUS_CHANGE"
	EventStopLossMoved   = "SL_MOVED"
	EventTakeProfitMoved = "TP_MOVED"
	EventBreakevenSet    = "BE_SET"
	EventClosed          = "CLOSED"
	EventNoteAdded       = "NOTE_ADDED"
	EventTerminalMatch   = "TERMINAL_MATCH"
	EventActionRequested = "ACTION_REQUESTED"
	EventActionResult    = "ACTION_RESULT"
)

// TradeEvent is the append-only audit ledger for a trade. Rows are never
// updated or deleted. ActorID is nil for system-originated mutations.
type TradeEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TradeID   uint      `gorm:"index;not null" json:"trade_id"`
	Action    string    `gorm:"size:30;not null" json:"action"`
	ActorID   *uint     `gorm:"index" json:"actor_id,omitempty"`
	OldValue  string    `gorm:"size:120" json:"old_value,omitempty"`
	NewValue  string    `gorm:"size:120" json:"new_value,omitempty"`
	Note      string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (TradeEvent) TableName() string {
	return "trade_events"
}
