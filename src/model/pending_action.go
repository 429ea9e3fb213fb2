package model

import "time"

// Action kinds requestable against a trade. The first four are executable
// by a terminal; STATUS_CHANGE and ADD_NOTE only ever apply server-side.
const (
	ActionSetBreakeven     = "SET_BE"
	ActionMoveStopLoss     = "MOVE_SL"
	ActionChangeTakeProfit = "CHANGE_TP"
	ActionClose            = "CLOSE"
	ActionStatusChange     = "STATUS_CHANGE"
	ActionAddNote          = "ADD_NOTE"
)

const (
	ActionStatusPending   = "PENDING"
	ActionStatusDelivered = "DELIVERED"
	ActionStatusSucceeded = "SUCCEEDED"
	ActionStatusFailed    = "FAILED"
)

// PendingAction is one outstanding command destined for a terminal.
// PENDING rows are handed out by the poll endpoint and marked DELIVERED;
// the terminal reports back a terminal status. Rows stuck in DELIVERED are
// re-delivered after a timeout until Attempts exhausts.
type PendingAction struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccountID    uint       `gorm:"index;not null" json:"account_id"`
	TradeID      uint       `gorm:"index;not null" json:"trade_id"`
	Ticket       int64      `json:"ticket"`
	ActionType   string     `gorm:"size:12;not null" json:"action_type"`
	NewValue     *float64   `json:"new_value,omitempty"`
	Status       string     `gorm:"size:12;not null;default:PENDING;index" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	RequestedBy  uint       `gorm:"not null" json:"requested_by"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (PendingAction) TableName() string {
	return "pending_actions"
}

// Terminal reports whether the action already reached a final state.
func (a *PendingAction) Terminal() bool {
	return a.Status == ActionStatusSucceeded || a.Status == ActionStatusFailed
}

// ExecutableByTerminal reports whether the action kind is something a
// trading terminal can physically perform.
func ExecutableByTerminal(actionType string) bool {
	switch actionType {
	case ActionSetBreakeven, ActionMoveStopLoss, ActionChangeTakeProfit, ActionClose:
		return true
	}
	return false
}
