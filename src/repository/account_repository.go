package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// AccountRepository handles read/write operations for trading accounts.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *AccountRepository) WithDB(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.TradingAccount) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "AccountRepository",
		"op":      "Create",
		"user_id": account.UserID,
		"broker":  account.Broker,
	}).Debug("Creating trading account")

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		logger.WithError(err).Error("Failed to create trading account")
		return err
	}

	return nil
}

// FindByID fetches an account by primary ID. Returns (nil, nil) if not found.
func (r *AccountRepository) FindByID(ctx context.Context, id uint) (*model.TradingAccount, error) {
	var account model.TradingAccount

	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("id", id).Error("Failed to fetch account by ID")
		return nil, err
	}

	return &account, nil
}

// FindByKeyID fetches an account by its API key ID. Returns (nil, nil) if
// not found.
func (r *AccountRepository) FindByKeyID(ctx context.Context, keyID string) (*model.TradingAccount, error) {
	var account model.TradingAccount

	err := r.db.WithContext(ctx).
		Where("api_key_id = ?", keyID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).Error("Failed to fetch account by key ID")
		return nil, err
	}

	return &account, nil
}

// FindByUser lists all accounts linked by a user, newest first.
func (r *AccountRepository) FindByUser(ctx context.Context, userID uint) ([]model.TradingAccount, error) {
	var accounts []model.TradingAccount

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&accounts).Error
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Error("Failed to list accounts for user")
		return nil, err
	}

	return accounts, nil
}

// RecordHeartbeat updates telemetry and the liveness timestamp in one UPDATE.
// Connection status is derived from last_heartbeat_at on read, never stored.
func (r *AccountRepository) RecordHeartbeat(ctx context.Context, id uint, balance, equity float64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.TradingAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":           balance,
			"equity":            equity,
			"last_heartbeat_at": at,
		}).Error
	if err != nil {
		logger.WithError(err).WithField("account_id", id).Error("Failed to record heartbeat")
		return err
	}

	return nil
}

// RotateKey replaces an account's API key credentials. The old key stops
// authenticating as soon as the row commits.
func (r *AccountRepository) RotateKey(ctx context.Context, id uint, keyID, keyHash string) error {
	res := r.db.WithContext(ctx).
		Model(&model.TradingAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"api_key_id":   keyID,
			"api_key_hash": keyHash,
		})

	if res.Error != nil {
		logger.WithError(res.Error).WithField("account_id", id).Error("Failed to rotate API key")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Deactivate soft-disables an account owned by the given user.
func (r *AccountRepository) Deactivate(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).
		Model(&model.TradingAccount{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("active", false)

	if res.Error != nil {
		logger.WithError(res.Error).WithField("account_id", id).Error("Failed to deactivate account")
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "AccountRepository",
		"account_id": id,
	}).Info("Trading account deactivated")

	return nil
}
