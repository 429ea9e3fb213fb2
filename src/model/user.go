package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is the minimal projection of the platform user this core needs:
// identity, platform role and the session token the API gateway forwards.
// Profile management lives in the user subsystem.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:60;uniqueIndex" json:"username"`
	Role         string    `gorm:"size:10;not null;default:USER" json:"role"`
	SessionToken string    `gorm:"size:64;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
