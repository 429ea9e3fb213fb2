package model

import "time"

// SignalCard is a user-authored trade idea posted in a clan channel.
// Cards are created and edited by the chat subsystem; this core only reads
// them when a card is tracked or matched against terminal activity.
type SignalCard struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClanID     uint      `gorm:"index;not null" json:"clan_id"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Instrument string    `gorm:"size:40;not null" json:"instrument"`
	Direction  string    `gorm:"size:4;not null" json:"direction"`
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	// ExtraTargets keeps targets beyond the first as a comma-separated list;
	// only the first target participates in R math.
	ExtraTargets string    `gorm:"type:text" json:"extra_targets,omitempty"`
	Timeframe    string    `gorm:"size:10" json:"timeframe"`
	Tags         string    `gorm:"type:text" json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (SignalCard) TableName() string {
	return "signal_cards"
}
