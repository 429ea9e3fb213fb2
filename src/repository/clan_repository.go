package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// ClanRepository reads clan memberships owned by the social subsystem.
type ClanRepository struct {
	db *gorm.DB
}

func NewClanRepository() *ClanRepository {
	return &ClanRepository{db: database.MainDB}
}

func (r *ClanRepository) WithDB(db *gorm.DB) *ClanRepository {
	return &ClanRepository{db: db}
}

// ClanIDsForUser lists the clans a user belongs to.
func (r *ClanRepository) ClanIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint

	err := r.db.WithContext(ctx).
		Model(&model.ClanMember{}).
		Where("user_id = ?", userID).
		Pluck("clan_id", &ids).Error
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Error("Failed to list clan memberships")
		return nil, err
	}

	return ids, nil
}

// MembershipRole returns the user's role in a clan, or "" for non-members.
func (r *ClanRepository) MembershipRole(ctx context.Context, userID, clanID uint) (string, error) {
	var member model.ClanMember

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND clan_id = ?", userID, clanID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return member.Role, nil
}
