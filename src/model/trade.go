package model

import "time"

const (
	TradeStatusPending = "PENDING"
	TradeStatusOpen    = "OPEN"
	TradeStatusTPHit   = "TP_HIT"
	TradeStatusSLHit   = "SL_HIT"
	TradeStatusBE      = "BE"
	TradeStatusClosed  = "CLOSED"
)

const (
	IntegrityUnverified = "UNVERIFIED"
	IntegrityVerified   = "VERIFIED"
)

const (
	ResolutionUnknown          = "unknown"
	ResolutionTerminalVerified = "terminal-verified"
)

// Trade is a tracked signal card: the unit whose status, integrity and
// R-multiples the rest of the platform consumes.
//
// The Initial* snapshot is captured when tracking starts and never changes
// afterwards; all R math is relative to InitialRiskAbs regardless of later
// stop-loss amendments.
type Trade struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SignalCardID uint   `gorm:"uniqueIndex;not null" json:"signal_card_id"`
	ClanID       uint   `gorm:"index;not null" json:"clan_id"`
	UserID       uint   `gorm:"index;not null" json:"user_id"`
	Status       string `gorm:"size:10;not null;default:PENDING" json:"status"`

	IntegrityStatus   string `gorm:"size:12;not null;default:UNVERIFIED;index" json:"integrity_status"`
	IntegrityDetail   string `gorm:"type:text" json:"integrity_detail,omitempty"`
	StatementEligible bool   `gorm:"not null;default:false" json:"statement_eligible"`
	ResolutionSource  string `gorm:"size:30;not null;default:unknown" json:"resolution_source"`

	InitialEntry      float64 `json:"initial_entry"`
	InitialStopLoss   float64 `json:"initial_stop_loss"`
	InitialTakeProfit float64 `json:"initial_take_profit"`
	InitialRiskAbs    float64 `json:"initial_risk_abs"`

	CurrentStopLoss   float64 `json:"current_stop_loss"`
	CurrentTakeProfit float64 `json:"current_take_profit"`

	ClosePrice *float64 `json:"close_price,omitempty"`
	FinalR     *float64 `gorm:"column:final_r" json:"final_r,omitempty"`

	TerminalTradeID *uint      `gorm:"index" json:"terminal_trade_id,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	LastEvaluatedAt *time.Time `gorm:"index" json:"last_evaluated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	SignalCard    *SignalCard    `gorm:"foreignKey:SignalCardID" json:"signal_card,omitempty"`
	TerminalTrade *TerminalTrade `gorm:"foreignKey:TerminalTradeID" json:"terminal_trade,omitempty"`
}

func (Trade) TableName() string {
	return "trades"
}

// TerminalLinked reports whether real terminal activity backs this trade.
func (t *Trade) TerminalLinked() bool {
	return t.TerminalTradeID != nil
}
