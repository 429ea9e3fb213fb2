package service

import (
	"context"
	"fmt"
	"math"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"signalengine/src/model"
	"signalengine/src/repository"
	"signalengine/src/risk"
)

// TradeService tracks signal cards and exposes the derived risk view of a
// trade.
type TradeService struct {
	trades      *repository.TradeRepository
	signalCards *repository.SignalCardRepository

	now func() time.Time
}

func NewTradeService(trades *repository.TradeRepository, signalCards *repository.SignalCardRepository) *TradeService {
	return &TradeService{
		trades:      trades,
		signalCards: signalCards,
		now:         time.Now,
	}
}

// Track starts tracking a signal card as a trade. Only the card author may
// track it, each card tracks at most once, and the call captures the
// immutable initial snapshot that anchors all later R math. Tracking an
// already-tracked card returns the existing trade.
func (s *TradeService) Track(ctx context.Context, user *model.User, signalCardID uint) (*model.Trade, error) {
	card, err := s.signalCards.FindByID(ctx, signalCardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrNotFound
	}
	if card.AuthorID != user.ID {
		return nil, &ForbiddenError{Reason: "only the card author may track it"}
	}

	existing, err := s.trades.FindBySignalCard(ctx, signalCardID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	trade := &model.Trade{
		SignalCardID: card.ID,
		ClanID:       card.ClanID,
		UserID:       card.AuthorID,
		Status:       model.TradeStatusPending,

		IntegrityStatus:  model.IntegrityUnverified,
		ResolutionSource: model.ResolutionUnknown,

		InitialEntry:      card.Entry,
		InitialStopLoss:   card.StopLoss,
		InitialTakeProfit: card.TakeProfit,
		InitialRiskAbs:    math.Abs(card.Entry - card.StopLoss),

		CurrentStopLoss:   card.StopLoss,
		CurrentTakeProfit: card.TakeProfit,
	}

	if err := s.trades.Create(ctx, trade); err != nil {
		return nil, err
	}

	event := &model.TradeEvent{
		TradeID: trade.ID,
		Action:  model.EventTracked,
		ActorID: &user.ID,
		Note:    fmt.Sprintf("tracking %s %s", card.Instrument, card.Direction),
	}
	if err := s.trades.AppendEvent(ctx, event); err != nil {
		logger.WithError(err).WithField("trade_id", trade.ID).Warn("Tracked trade but failed to append event")
	}

	logger.WithFields(map[string]interface{}{
		"trade_id":       trade.ID,
		"signal_card_id": card.ID,
		"user_id":        user.ID,
	}).Info("Signal card tracked")

	return trade, nil
}

// RiskView is the derived risk state of a trade. Everything here is
// computed on read; nothing is stored.
type RiskView struct {
	StopStatus risk.StopStatus  `json:"stop_status"`
	TargetR    *decimal.Decimal `json:"target_r,omitempty"`
	RealizedR  *decimal.Decimal `json:"realized_r,omitempty"`
}

// Get returns a trade with signal card and terminal link preloaded.
func (s *TradeService) Get(ctx context.Context, id uint) (*model.Trade, error) {
	trade, err := s.trades.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, ErrNotFound
	}
	return trade, nil
}

func (s *TradeService) Timeline(ctx context.Context, tradeID uint) ([]model.TradeEvent, error) {
	return s.trades.FindEventsByTrade(ctx, tradeID)
}

// Risk derives the risk view for a loaded trade. A matched terminal trade's
// close price feeds realized R when the trade itself carries none.
func (s *TradeService) Risk(trade *model.Trade) RiskView {
	dir := risk.Long
	if trade.SignalCard != nil {
		dir = risk.DirectionFor(trade.SignalCard.Direction)
	}

	view := RiskView{
		StopStatus: risk.DeriveStopStatus(dir, trade.InitialEntry, trade.CurrentStopLoss),
	}

	if target, ok := risk.TargetRMultiple(trade.InitialTakeProfit, trade.InitialEntry, trade.InitialRiskAbs); ok {
		view.TargetR = &target
	}

	closePrice := trade.ClosePrice
	if closePrice == nil && trade.TerminalTrade != nil {
		closePrice = trade.TerminalTrade.ClosePrice
	}

	if realized, ok := risk.RealizedR(risk.Snapshot{
		Direction:         dir,
		Status:            trade.Status,
		InitialEntry:      trade.InitialEntry,
		InitialTakeProfit: trade.InitialTakeProfit,
		InitialRiskAbs:    trade.InitialRiskAbs,
		ClosePrice:        closePrice,
		FinalR:            trade.FinalR,
	}); ok {
		view.RealizedR = &realized
	}

	return view
}
