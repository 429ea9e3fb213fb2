package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
)

// Terminal-reported lifecycle events.
const (
	TerminalEventOpen   = "OPEN"
	TerminalEventUpdate = "UPDATE"
	TerminalEventClose  = "CLOSE"
)

// MatchDispatcher hands a closed terminal trade to the signal matcher
// asynchronously. Ingest never blocks on matching.
type MatchDispatcher interface {
	DispatchMatch(terminalTradeID uint)
}

// TerminalTradePayload is the trade body a terminal reports on every
// lifecycle event and in history syncs.
type TerminalTradePayload struct {
	Ticket     int64      `json:"ticket"`
	Symbol     string     `json:"symbol"`
	Direction  string     `json:"direction"`
	Lots       float64    `json:"lots"`
	OpenPrice  float64    `json:"open_price"`
	ClosePrice *float64   `json:"close_price,omitempty"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Profit     float64    `json:"profit"`
	Commission float64    `json:"commission"`
	Swap       float64    `json:"swap"`
}

func (p *TerminalTradePayload) validate() error {
	if p.Ticket <= 0 {
		return fmt.Errorf("%w: ticket must be positive", ErrValidation)
	}
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if p.Direction != model.DirectionBuy && p.Direction != model.DirectionSell {
		return fmt.Errorf("%w: direction must be BUY or SELL", ErrValidation)
	}
	return nil
}

// IngestService turns terminal telemetry into TerminalTrade rows. Re-sent
// events are absorbed idempotently: the (account, ticket) pair is the
// identity, and a closed row never reopens.
type IngestService struct {
	terminalTrades *repository.TerminalTradeRepository
	dispatcher     MatchDispatcher

	now func() time.Time
}

func NewIngestService(terminalTrades *repository.TerminalTradeRepository, dispatcher MatchDispatcher) *IngestService {
	return &IngestService{
		terminalTrades: terminalTrades,
		dispatcher:     dispatcher,
		now:            time.Now,
	}
}

// RecordEvent applies one lifecycle event. CLOSE additionally queues the
// trade for signal matching once the row is committed.
func (s *IngestService) RecordEvent(ctx context.Context, account *model.TradingAccount, eventType string, payload TerminalTradePayload) (*model.TerminalTrade, error) {
	if err := payload.validate(); err != nil {
		monitor.IncTradeEvent("invalid")
		return nil, err
	}

	existing, err := s.terminalTrades.FindByAccountAndTicket(ctx, account.ID, payload.Ticket)
	if err != nil {
		monitor.IncTradeEvent("error")
		return nil, err
	}

	switch eventType {
	case TerminalEventOpen:
		return s.recordOpen(ctx, account, payload, existing)
	case TerminalEventUpdate:
		return s.recordUpdate(ctx, account, payload, existing)
	case TerminalEventClose:
		return s.recordClose(ctx, account, payload, existing)
	default:
		monitor.IncTradeEvent("invalid")
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, eventType)
	}
}

func (s *IngestService) recordOpen(ctx context.Context, account *model.TradingAccount, payload TerminalTradePayload, existing *model.TerminalTrade) (*model.TerminalTrade, error) {
	if existing != nil {
		// duplicate OPEN; refresh mutable fields if still open
		if existing.IsOpen {
			return s.recordUpdate(ctx, account, payload, existing)
		}
		monitor.IncTradeEvent("duplicate")
		return existing, nil
	}

	trade := payloadToTrade(account.ID, payload)
	trade.IsOpen = true

	if err := s.terminalTrades.Create(ctx, trade); err != nil {
		monitor.IncTradeEvent("error")
		return nil, err
	}

	monitor.IncTradeEvent("open")
	return trade, nil
}

func (s *IngestService) recordUpdate(ctx context.Context, account *model.TradingAccount, payload TerminalTradePayload, existing *model.TerminalTrade) (*model.TerminalTrade, error) {
	if existing == nil {
		// UPDATE for a trade we never saw opened; backfill it
		return s.recordOpen(ctx, account, payload, nil)
	}
	if !existing.IsOpen {
		monitor.IncTradeEvent("duplicate")
		return existing, nil
	}

	existing.StopLoss = payload.StopLoss
	existing.TakeProfit = payload.TakeProfit
	existing.Lots = payload.Lots
	existing.Profit = payload.Profit
	existing.Commission = payload.Commission
	existing.Swap = payload.Swap

	if err := s.terminalTrades.Save(ctx, existing); err != nil {
		monitor.IncTradeEvent("error")
		return nil, err
	}

	monitor.IncTradeEvent("update")
	return existing, nil
}

func (s *IngestService) recordClose(ctx context.Context, account *model.TradingAccount, payload TerminalTradePayload, existing *model.TerminalTrade) (*model.TerminalTrade, error) {
	if existing != nil && !existing.IsOpen {
		monitor.IncTradeEvent("duplicate")
		return existing, nil
	}

	if payload.ClosePrice == nil {
		monitor.IncTradeEvent("invalid")
		return nil, fmt.Errorf("%w: close event requires close_price", ErrValidation)
	}
	closeTime := payload.CloseTime
	if closeTime == nil {
		t := s.now()
		closeTime = &t
	}

	if existing == nil {
		existing = payloadToTrade(account.ID, payload)
	} else {
		existing.ClosePrice = payload.ClosePrice
		existing.StopLoss = payload.StopLoss
		existing.TakeProfit = payload.TakeProfit
		existing.Profit = payload.Profit
		existing.Commission = payload.Commission
		existing.Swap = payload.Swap
	}
	existing.IsOpen = false
	existing.CloseTime = closeTime

	// the statement trigger rides the same transaction as the close, so a
	// crash between them is impossible
	if err := s.terminalTrades.CloseWithOutbox(ctx, existing, s.closeOutboxEvent(account, existing)); err != nil {
		monitor.IncTradeEvent("error")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"account_id": account.ID,
		"ticket":     payload.Ticket,
		"symbol":     payload.Symbol,
	}).Info("Terminal trade closed")

	monitor.IncTradeEvent("close")
	if s.dispatcher != nil {
		s.dispatcher.DispatchMatch(existing.ID)
	}

	return existing, nil
}

// SyncResult tallies one history sync batch.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SyncHistory ingests a batch of historical closed trades, typically on
// first terminal connect. The whole batch is validated before any row is
// written; a malformed entry rejects the batch. Replaying the same history
// yields all skips.
func (s *IngestService) SyncHistory(ctx context.Context, account *model.TradingAccount, payloads []TerminalTradePayload) (SyncResult, error) {
	var result SyncResult

	for i := range payloads {
		if err := payloads[i].validate(); err != nil {
			return SyncResult{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if payloads[i].ClosePrice == nil || payloads[i].CloseTime == nil {
			return SyncResult{}, fmt.Errorf("entry %d: %w: history entries must be closed", i, ErrValidation)
		}
	}

	for i := range payloads {
		payload := payloads[i]

		existing, err := s.terminalTrades.FindByAccountAndTicket(ctx, account.ID, payload.Ticket)
		if err != nil {
			return result, err
		}

		if existing != nil {
			if existing.IsOpen {
				// terminal knows better: the trade closed while we missed it
				if _, err := s.recordClose(ctx, account, payload, existing); err != nil {
					return result, err
				}
				result.Updated++
			} else {
				result.Skipped++
			}
			continue
		}

		trade := payloadToTrade(account.ID, payload)
		trade.IsOpen = false
		trade.CloseTime = payload.CloseTime

		if err := s.terminalTrades.Create(ctx, trade); err != nil {
			return result, err
		}
		result.Created++

		if s.dispatcher != nil {
			s.dispatcher.DispatchMatch(trade.ID)
		}
	}

	logger.WithFields(map[string]interface{}{
		"account_id": account.ID,
		"created":    result.Created,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
	}).Info("Terminal history synced")

	return result, nil
}

func (s *IngestService) closeOutboxEvent(account *model.TradingAccount, trade *model.TerminalTrade) *model.OutboxEvent {
	payload, _ := json.Marshal(map[string]interface{}{
		"account_id": account.ID,
		"user_id":    account.UserID,
		"ticket":     trade.Ticket,
	})

	return &model.OutboxEvent{
		EventID:       uuid.NewString(),
		Topic:         model.TopicStatementRecalc,
		Payload:       string(payload),
		Status:        model.OutboxStatusPending,
		NextAttemptAt: s.now(),
	}
}

func payloadToTrade(accountID uint, payload TerminalTradePayload) *model.TerminalTrade {
	return &model.TerminalTrade{
		AccountID:  accountID,
		Ticket:     payload.Ticket,
		Symbol:     payload.Symbol,
		Direction:  payload.Direction,
		Lots:       payload.Lots,
		OpenPrice:  payload.OpenPrice,
		ClosePrice: payload.ClosePrice,
		OpenTime:   payload.OpenTime,
		StopLoss:   payload.StopLoss,
		TakeProfit: payload.TakeProfit,
		Profit:     payload.Profit,
		Commission: payload.Commission,
		Swap:       payload.Swap,
	}
}
