package model

import "time"

const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// TerminalTrade is one broker-side trade record reported by a terminal.
// The broker ticket is unique per account, not globally, hence the
// composite unique index. Once closed the row is immutable except for the
// match link set by the signal matcher.
type TerminalTrade struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AccountID  uint       `gorm:"not null;uniqueIndex:idx_account_ticket" json:"account_id"`
	Ticket     int64      `gorm:"not null;uniqueIndex:idx_account_ticket" json:"ticket"`
	Symbol     string     `gorm:"size:40;not null" json:"symbol"`
	Direction  string     `gorm:"size:4;not null" json:"direction"`
	Lots       float64    `json:"lots"`
	OpenPrice  float64    `json:"open_price"`
	ClosePrice *float64   `json:"close_price,omitempty"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Profit     float64    `json:"profit"`
	Commission float64    `json:"commission"`
	Swap       float64    `json:"swap"`
	IsOpen     bool       `gorm:"not null;default:true" json:"is_open"`
	TradeID    *uint      `gorm:"index" json:"trade_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (TerminalTrade) TableName() string {
	return "terminal_trades"
}
