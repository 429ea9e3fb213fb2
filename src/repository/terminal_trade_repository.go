package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// TerminalTradeRepository handles broker-side trade records reported by
// terminals. The natural key is (account_id, ticket).
type TerminalTradeRepository struct {
	db *gorm.DB
}

func NewTerminalTradeRepository() *TerminalTradeRepository {
	return &TerminalTradeRepository{db: database.MainDB}
}

func (r *TerminalTradeRepository) WithDB(db *gorm.DB) *TerminalTradeRepository {
	return &TerminalTradeRepository{db: db}
}

// FindByAccountAndTicket returns (nil, nil) when the ticket is unknown.
func (r *TerminalTradeRepository) FindByAccountAndTicket(ctx context.Context, accountID uint, ticket int64) (*model.TerminalTrade, error) {
	var trade model.TerminalTrade

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND ticket = ?", accountID, ticket).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithFields(map[string]interface{}{
			"account_id": accountID,
			"ticket":     ticket,
		}).Error("Failed to fetch terminal trade")
		return nil, err
	}

	return &trade, nil
}

func (r *TerminalTradeRepository) FindByID(ctx context.Context, id uint) (*model.TerminalTrade, error) {
	var trade model.TerminalTrade

	err := r.db.WithContext(ctx).First(&trade, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &trade, nil
}

func (r *TerminalTradeRepository) Create(ctx context.Context, trade *model.TerminalTrade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"account_id": trade.AccountID,
			"ticket":     trade.Ticket,
		}).Error("Failed to create terminal trade")
		return err
	}
	return nil
}

func (r *TerminalTradeRepository) Save(ctx context.Context, trade *model.TerminalTrade) error {
	if err := r.db.WithContext(ctx).Save(trade).Error; err != nil {
		logger.WithError(err).WithField("id", trade.ID).Error("Failed to save terminal trade")
		return err
	}
	return nil
}

// CloseWithOutbox persists a closed terminal trade together with its
// recompute trigger in one transaction. Save handles both fresh rows and
// updates of an existing open row.
func (r *TerminalTradeRepository) CloseWithOutbox(ctx context.Context, trade *model.TerminalTrade, outbox *model.OutboxEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(trade).Error; err != nil {
			return err
		}
		return tx.Create(outbox).Error
	})
	if err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"account_id": trade.AccountID,
			"ticket":     trade.Ticket,
		}).Error("Failed to close terminal trade")
		return err
	}
	return nil
}

// FindUnmatchedClosedForUser lists closed, not-yet-matched terminal trades
// across all of a user's accounts. Used by the integrity evaluator when it
// re-attempts resolution for a stale unverified trade.
func (r *TerminalTradeRepository) FindUnmatchedClosedForUser(ctx context.Context, userID uint) ([]model.TerminalTrade, error) {
	var trades []model.TerminalTrade

	err := r.db.WithContext(ctx).
		Joins("JOIN trading_accounts ON trading_accounts.id = terminal_trades.account_id").
		Where("trading_accounts.user_id = ? AND terminal_trades.is_open = ? AND terminal_trades.trade_id IS NULL", userID, false).
		Order("terminal_trades.close_time ASC").
		Find(&trades).Error
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Error("Failed to list unmatched closed terminal trades")
		return nil, err
	}

	return trades, nil
}
