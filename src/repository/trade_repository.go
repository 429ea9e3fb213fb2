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

// TradeRepository handles tracked trades and their append-only event ledger.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithError(err).WithField("signal_card_id", trade.SignalCardID).Error("Failed to create trade")
		return err
	}
	return nil
}

// FindByID fetches a trade with its signal card and terminal link.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByID(ctx context.Context, id uint) (*model.Trade, error) {
	var trade model.Trade

	err := r.db.WithContext(ctx).
		Preload("SignalCard").
		Preload("TerminalTrade").
		First(&trade, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithError(err).WithField("id", id).Error("Failed to fetch trade by ID")
		return nil, err
	}

	return &trade, nil
}

// FindBySignalCard returns the trade tracking a card, or (nil, nil) when
// the card is untracked.
func (r *TradeRepository) FindBySignalCard(ctx context.Context, signalCardID uint) (*model.Trade, error) {
	var trade model.Trade

	err := r.db.WithContext(ctx).
		Where("signal_card_id = ?", signalCardID).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &trade, nil
}

// FindCandidates lists a user's open, unmatched trades in the given clans
// whose signal direction matches. Ordered by signal creation time then ID so
// tie-breaking downstream is deterministic.
func (r *TradeRepository) FindCandidates(ctx context.Context, userID uint, clanIDs []uint, direction string) ([]model.Trade, error) {
	if len(clanIDs) == 0 {
		return nil, nil
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Joins("JOIN signal_cards ON signal_cards.id = trades.signal_card_id").
		Where("trades.user_id = ?", userID).
		Where("trades.clan_id IN ?", clanIDs).
		Where("trades.terminal_trade_id IS NULL").
		Where("trades.integrity_status = ?", model.IntegrityUnverified).
		Where("trades.status IN ?", []string{model.TradeStatusPending, model.TradeStatusOpen}).
		Where("signal_cards.direction = ?", direction).
		Order("signal_cards.created_at ASC, trades.id ASC").
		Preload("SignalCard").
		Find(&trades).Error
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Error("Failed to list match candidates")
		return nil, err
	}

	return trades, nil
}

// FindUnverified lists trades still awaiting integrity resolution that are
// old enough and have not been evaluated since the given cutoff.
func (r *TradeRepository) FindUnverified(ctx context.Context, createdBefore, evaluatedBefore time.Time, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 100
	}

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("integrity_status = ?", model.IntegrityUnverified).
		Where("created_at < ?", createdBefore).
		Where("last_evaluated_at IS NULL OR last_evaluated_at < ?", evaluatedBefore).
		Order("id ASC").
		Limit(limit).
		Preload("SignalCard").
		Find(&trades).Error
	if err != nil {
		logger.WithError(err).Error("Failed to list unverified trades")
		return nil, err
	}

	return trades, nil
}

// TouchEvaluated stamps last_evaluated_at regardless of sweep outcome.
func (r *TradeRepository) TouchEvaluated(ctx context.Context, tradeID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ?", tradeID).
		Update("last_evaluated_at", at).Error
}

// AppendEvent writes one row to the append-only trade ledger.
func (r *TradeRepository) AppendEvent(ctx context.Context, event *model.TradeEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		logger.WithError(err).WithField("trade_id", event.TradeID).Error("Failed to append trade event")
		return err
	}
	return nil
}

func (r *TradeRepository) FindEventsByTrade(ctx context.Context, tradeID uint) ([]model.TradeEvent, error) {
	var events []model.TradeEvent

	err := r.db.WithContext(ctx).
		Where("trade_id = ?", tradeID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

// ---------------------------------------------------
// Transaction helpers
// ---------------------------------------------------

// ErrAlreadyMatched is returned when a concurrent match won the link race.
var ErrAlreadyMatched = errors.New("trade already matched")

// CommitMatch links a terminal trade to a tracked trade, marks it VERIFIED
// and appends the audit event plus outbox rows, all in one transaction so a
// crash cannot leave a half-linked pair.
func (r *TradeRepository) CommitMatch(
	ctx context.Context,
	trade *model.Trade,
	terminal *model.TerminalTrade,
	event *model.TradeEvent,
	outbox []model.OutboxEvent,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":              "TradeRepository",
		"op":                "CommitMatch",
		"trade_id":          trade.ID,
		"terminal_trade_id": terminal.ID,
		"ticket":            terminal.Ticket,
	}).Info("Committing terminal match")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Trade{}).
			Where("id = ? AND terminal_trade_id IS NULL", trade.ID).
			Updates(map[string]interface{}{
				"integrity_status":   model.IntegrityVerified,
				"resolution_source":  model.ResolutionTerminalVerified,
				"statement_eligible": true,
				"integrity_detail":   event.Note,
				"terminal_trade_id":  terminal.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyMatched
		}

		if err := tx.Model(&model.TerminalTrade{}).
			Where("id = ?", terminal.ID).
			Update("trade_id", trade.ID).Error; err != nil {
			return err
		}

		if err := tx.Create(event).Error; err != nil {
			return err
		}

		for i := range outbox {
			if err := tx.Create(&outbox[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateWithEvent applies field updates to a trade and appends the audit
// event in one transaction.
func (r *TradeRepository) UpdateWithEvent(
	ctx context.Context,
	tradeID uint,
	updates map[string]interface{},
	event *model.TradeEvent,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&model.Trade{}).
				Where("id = ?", tradeID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		return tx.Create(event).Error
	})
}
