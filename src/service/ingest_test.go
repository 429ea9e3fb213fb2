package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"signalengine/src/model"
	"signalengine/src/repository"
)

type fakeDispatcher struct {
	dispatched []uint
}

func (d *fakeDispatcher) DispatchMatch(terminalTradeID uint) {
	d.dispatched = append(d.dispatched, terminalTradeID)
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint) *model.TradingAccount {
	t.Helper()
	account := &model.TradingAccount{
		UserID:        userID,
		Platform:      model.PlatformMT4,
		AccountNumber: "1001",
		APIKeyID:      "key-" + t.Name(),
		APIKeyHash:    "hash",
		Active:        true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func closedPayload(ticket int64, openPrice, closePrice float64, openTime time.Time) TerminalTradePayload {
	closeTime := openTime.Add(30 * time.Minute)
	return TerminalTradePayload{
		Ticket:     ticket,
		Symbol:     "EURUSD",
		Direction:  model.DirectionBuy,
		Lots:       0.5,
		OpenPrice:  openPrice,
		ClosePrice: &closePrice,
		OpenTime:   openTime,
		CloseTime:  &closeTime,
		StopLoss:   openPrice - 0.0050,
	}
}

func TestRecordEventLifecycle(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	svc := NewIngestService(repository.NewTerminalTradeRepository().WithDB(db), dispatcher)
	ctx := context.Background()

	account := seedAccount(t, db, 7)
	openTime := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	payload := TerminalTradePayload{
		Ticket:    555,
		Symbol:    "EURUSD",
		Direction: model.DirectionBuy,
		Lots:      0.5,
		OpenPrice: 1.1002,
		OpenTime:  openTime,
		StopLoss:  1.0950,
	}

	trade, err := svc.RecordEvent(ctx, account, TerminalEventOpen, payload)
	require.NoError(t, err)
	assert.True(t, trade.IsOpen)
	assert.Empty(t, dispatcher.dispatched)

	t.Run("update amends mutable fields", func(t *testing.T) {
		payload.StopLoss = 1.1000
		updated, err := svc.RecordEvent(ctx, account, TerminalEventUpdate, payload)
		require.NoError(t, err)
		assert.Equal(t, 1.1000, updated.StopLoss)
		assert.Equal(t, trade.ID, updated.ID)
	})

	t.Run("close dispatches a match job and writes the outbox row", func(t *testing.T) {
		closePrice := 1.1050
		closeTime := openTime.Add(2 * time.Hour)
		payload.ClosePrice = &closePrice
		payload.CloseTime = &closeTime

		closed, err := svc.RecordEvent(ctx, account, TerminalEventClose, payload)
		require.NoError(t, err)
		assert.False(t, closed.IsOpen)
		require.NotNil(t, closed.ClosePrice)
		assert.Equal(t, closePrice, *closed.ClosePrice)
		assert.Equal(t, []uint{trade.ID}, dispatcher.dispatched)

		var outboxCount int64
		require.NoError(t, db.Model(&model.OutboxEvent{}).
			Where("topic = ?", model.TopicStatementRecalc).
			Count(&outboxCount).Error)
		assert.Equal(t, int64(1), outboxCount)
	})

	t.Run("duplicate close is absorbed", func(t *testing.T) {
		closePrice := 1.1050
		payload.ClosePrice = &closePrice

		closed, err := svc.RecordEvent(ctx, account, TerminalEventClose, payload)
		require.NoError(t, err)
		assert.False(t, closed.IsOpen)
		// no second dispatch, no second outbox row
		assert.Len(t, dispatcher.dispatched, 1)

		var outboxCount int64
		require.NoError(t, db.Model(&model.OutboxEvent{}).Count(&outboxCount).Error)
		assert.Equal(t, int64(1), outboxCount)
	})
}

func TestRecordEventValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewIngestService(repository.NewTerminalTradeRepository().WithDB(db), &fakeDispatcher{})
	ctx := context.Background()
	account := seedAccount(t, db, 7)

	t.Run("bad direction", func(t *testing.T) {
		_, err := svc.RecordEvent(ctx, account, TerminalEventOpen, TerminalTradePayload{
			Ticket: 1, Symbol: "EURUSD", Direction: "LONG",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown event type", func(t *testing.T) {
		_, err := svc.RecordEvent(ctx, account, "REOPEN", TerminalTradePayload{
			Ticket: 1, Symbol: "EURUSD", Direction: model.DirectionBuy,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("close without price", func(t *testing.T) {
		_, err := svc.RecordEvent(ctx, account, TerminalEventClose, TerminalTradePayload{
			Ticket: 2, Symbol: "EURUSD", Direction: model.DirectionBuy,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSyncHistoryIdempotent(t *testing.T) {
	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	svc := NewIngestService(repository.NewTerminalTradeRepository().WithDB(db), dispatcher)
	ctx := context.Background()
	account := seedAccount(t, db, 7)

	openTime := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	batch := []TerminalTradePayload{
		closedPayload(100, 1.1000, 1.1050, openTime),
		closedPayload(101, 1.2000, 1.1900, openTime.Add(24*time.Hour)),
	}

	result, err := svc.SyncHistory(ctx, account, batch)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 2}, result)
	assert.Len(t, dispatcher.dispatched, 2)

	t.Run("replay skips everything", func(t *testing.T) {
		result, err := svc.SyncHistory(ctx, account, batch)
		require.NoError(t, err)
		assert.Equal(t, SyncResult{Skipped: 2}, result)
		assert.Len(t, dispatcher.dispatched, 2)
	})

	t.Run("open entry rejects the whole batch", func(t *testing.T) {
		bad := append(batch, TerminalTradePayload{
			Ticket: 102, Symbol: "EURUSD", Direction: model.DirectionBuy,
		})
		_, err := svc.SyncHistory(ctx, account, bad)
		assert.ErrorIs(t, err, ErrValidation)

		var count int64
		require.NoError(t, db.Model(&model.TerminalTrade{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}
