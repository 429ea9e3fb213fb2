package model

import "time"

const (
	ClanRoleLeader   = "LEADER"
	ClanRoleCoLeader = "CO_LEADER"
	ClanRoleMember   = "MEMBER"
)

// Clan and ClanMember are owned by the social subsystem; this core only
// reads memberships to scope matching and authorize trade actions.
type Clan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Clan) TableName() string {
	return "clans"
}

type ClanMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClanID    uint      `gorm:"not null;uniqueIndex:idx_clan_user" json:"clan_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_clan_user" json:"user_id"`
	Role      string    `gorm:"size:12;not null;default:MEMBER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClanMember) TableName() string {
	return "clan_members"
}
