package model

import "time"

const (
	PlatformMT4 = "MT4"
	PlatformMT5 = "MT5"

	AccountTypeLive = "LIVE"
	AccountTypeDemo = "DEMO"
)

// Connection status is never stored; it is derived from LastHeartbeatAt on read.
const (
	ConnectionOnline  = "online"
	ConnectionIdle    = "idle"
	ConnectionOffline = "offline"
)

// TradingAccount is one linked trading-terminal account. The terminal
// authenticates with an API key of the form "<keyID>.<secret>"; only the
// key ID is stored in clear, the secret is bcrypt-hashed.
type TradingAccount struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"index;not null" json:"user_id"`
	Broker          string     `gorm:"size:100" json:"broker"`
	Platform        string     `gorm:"size:10;not null;default:MT4" json:"platform"`
	AccountNumber   string     `gorm:"size:40;index" json:"account_number"`
	AccountType     string     `gorm:"size:10;not null;default:DEMO" json:"account_type"`
	Currency        string     `gorm:"size:10" json:"currency"`
	Balance         float64    `json:"balance"`
	Equity          float64    `json:"equity"`
	APIKeyID        string     `gorm:"size:64;uniqueIndex;column:api_key_id" json:"-"`
	APIKeyHash      string     `gorm:"type:text;column:api_key_hash" json:"-"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
	Active          bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (TradingAccount) TableName() string {
	return "trading_accounts"
}
