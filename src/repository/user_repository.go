package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// UserRepository reads the user projection maintained by the user subsystem.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository() *UserRepository {
	return &UserRepository{db: database.MainDB}
}

func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User

	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) FindBySessionToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	var user model.User

	err := r.db.WithContext(ctx).
		Where("session_token = ?", token).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}
