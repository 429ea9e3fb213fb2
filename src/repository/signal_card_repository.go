package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// SignalCardRepository reads signal cards authored through the chat
// subsystem. This core never edits a card; edits and their version history
// belong to the editing subsystem.
type SignalCardRepository struct {
	db *gorm.DB
}

func NewSignalCardRepository() *SignalCardRepository {
	return &SignalCardRepository{db: database.MainDB}
}

func (r *SignalCardRepository) WithDB(db *gorm.DB) *SignalCardRepository {
	return &SignalCardRepository{db: db}
}

func (r *SignalCardRepository) FindByID(ctx context.Context, id uint) (*model.SignalCard, error) {
	var card model.SignalCard

	err := r.db.WithContext(ctx).First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &card, nil
}
