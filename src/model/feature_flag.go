package model

import "time"

// FlagIntegrityEvaluator gates the background integrity sweep. Read fresh
// on every tick so the loop can be disabled without a restart.
const FlagIntegrityEvaluator = "integrity_evaluator"

type FeatureFlag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:60;uniqueIndex;not null" json:"name"`
	Enabled   bool      `gorm:"not null;default:false" json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FeatureFlag) TableName() string {
	return "feature_flags"
}
