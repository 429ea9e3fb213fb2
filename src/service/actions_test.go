package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"signalengine/src/authz"
	"signalengine/src/model"
	"signalengine/src/repository"
)

type actionFixture struct {
	db      *gorm.DB
	svc     *ActionService
	author  *model.User
	member  *model.User
	leader  *model.User
	clan    *model.Clan
	card    *model.SignalCard
	trade   *model.Trade
	account *model.TradingAccount
}

func newActionFixture(t *testing.T) *actionFixture {
	t.Helper()
	db := newTestDB(t)

	f := &actionFixture{db: db}
	f.svc = NewActionService(
		repository.NewTradeRepository().WithDB(db),
		repository.NewPendingActionRepository().WithDB(db),
		repository.NewClanRepository().WithDB(db),
		authz.NewPolicy(),
	)

	f.author = &model.User{Username: "author", Role: model.RoleUser}
	f.member = &model.User{Username: "member", Role: model.RoleUser}
	f.leader = &model.User{Username: "leader", Role: model.RoleUser}
	require.NoError(t, db.Create(f.author).Error)
	require.NoError(t, db.Create(f.member).Error)
	require.NoError(t, db.Create(f.leader).Error)

	f.clan = &model.Clan{Name: "alpha"}
	require.NoError(t, db.Create(f.clan).Error)
	for user, role := range map[*model.User]string{
		f.author: model.ClanRoleMember,
		f.member: model.ClanRoleMember,
		f.leader: model.ClanRoleLeader,
	} {
		require.NoError(t, db.Create(&model.ClanMember{
			ClanID: f.clan.ID, UserID: user.ID, Role: role,
		}).Error)
	}

	f.card = &model.SignalCard{
		ClanID:     f.clan.ID,
		AuthorID:   f.author.ID,
		Instrument: "EURUSD",
		Direction:  model.DirectionBuy,
		Entry:      1.1000,
		StopLoss:   1.0950,
		TakeProfit: 1.1100,
	}
	require.NoError(t, db.Create(f.card).Error)

	f.trade = &model.Trade{
		SignalCardID:      f.card.ID,
		ClanID:            f.clan.ID,
		UserID:            f.author.ID,
		Status:            model.TradeStatusOpen,
		IntegrityStatus:   model.IntegrityUnverified,
		ResolutionSource:  model.ResolutionUnknown,
		InitialEntry:      1.1000,
		InitialStopLoss:   1.0950,
		InitialTakeProfit: 1.1100,
		InitialRiskAbs:    0.0050,
		CurrentStopLoss:   1.0950,
		CurrentTakeProfit: 1.1100,
	}
	require.NoError(t, db.Create(f.trade).Error)

	return f
}

// linkTerminal backs the fixture trade with an open terminal trade.
func (f *actionFixture) linkTerminal(t *testing.T) *model.TerminalTrade {
	t.Helper()

	f.account = &model.TradingAccount{
		UserID:        f.author.ID,
		Platform:      model.PlatformMT4,
		AccountNumber: "9001",
		APIKeyID:      "key-" + t.Name(),
		Active:        true,
	}
	require.NoError(t, f.db.Create(f.account).Error)

	terminal := &model.TerminalTrade{
		AccountID: f.account.ID,
		Ticket:    42,
		Symbol:    "EURUSD",
		Direction: model.DirectionBuy,
		OpenPrice: 1.1002,
		OpenTime:  time.Now(),
		IsOpen:    true,
		TradeID:   &f.trade.ID,
	}
	require.NoError(t, f.db.Create(terminal).Error)
	require.NoError(t, f.db.Model(f.trade).Update("terminal_trade_id", terminal.ID).Error)
	f.trade.TerminalTradeID = &terminal.ID

	return terminal
}

func TestDirectApply(t *testing.T) {
	f := newActionFixture(t)
	ctx := context.Background()

	t.Run("author sets breakeven", func(t *testing.T) {
		outcome, err := f.svc.Request(ctx, f.author, f.trade.ID, ActionInput{
			ActionType: model.ActionSetBreakeven,
		})
		require.NoError(t, err)
		assert.False(t, outcome.Queued)
		assert.Equal(t, 1.1000, outcome.Trade.CurrentStopLoss)

		var events []model.TradeEvent
		require.NoError(t, f.db.Where("trade_id = ?", f.trade.ID).Find(&events).Error)
		require.Len(t, events, 1)
		assert.Equal(t, model.EventBreakevenSet, events[0].Action)
	})

	t.Run("leader changes status", func(t *testing.T) {
		outcome, err := f.svc.Request(ctx, f.leader, f.trade.ID, ActionInput{
			ActionType: model.ActionStatusChange,
			NewStatus:  model.TradeStatusTPHit,
		})
		require.NoError(t, err)
		assert.Equal(t, model.TradeStatusTPHit, outcome.Trade.Status)
		assert.NotNil(t, outcome.Trade.ClosedAt)
	})

	t.Run("member may only note", func(t *testing.T) {
		_, err := f.svc.Request(ctx, f.member, f.trade.ID, ActionInput{
			ActionType: model.ActionMoveStopLoss,
			NewValue:   floatPtr(1.0980),
		})
		var forbidden *ForbiddenError
		require.ErrorAs(t, err, &forbidden)

		outcome, err := f.svc.Request(ctx, f.member, f.trade.ID, ActionInput{
			ActionType: model.ActionAddNote,
			Note:       "nice entry",
		})
		require.NoError(t, err)
		assert.False(t, outcome.Queued)
	})

	t.Run("unknown trade", func(t *testing.T) {
		_, err := f.svc.Request(ctx, f.author, 9999, ActionInput{
			ActionType: model.ActionAddNote, Note: "x",
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTerminalLinkedRouting(t *testing.T) {
	f := newActionFixture(t)
	terminal := f.linkTerminal(t)
	ctx := context.Background()

	t.Run("status change denied even for admin", func(t *testing.T) {
		admin := &model.User{Username: "admin", Role: model.RoleAdmin}
		require.NoError(t, f.db.Create(admin).Error)

		_, err := f.svc.Request(ctx, admin, f.trade.ID, ActionInput{
			ActionType: model.ActionStatusChange,
			NewStatus:  model.TradeStatusClosed,
		})
		var forbidden *ForbiddenError
		require.ErrorAs(t, err, &forbidden)
	})

	t.Run("leader cannot command the terminal", func(t *testing.T) {
		_, err := f.svc.Request(ctx, f.leader, f.trade.ID, ActionInput{
			ActionType: model.ActionClose,
		})
		var forbidden *ForbiddenError
		require.ErrorAs(t, err, &forbidden)
	})

	t.Run("author close is queued, not applied", func(t *testing.T) {
		outcome, err := f.svc.Request(ctx, f.author, f.trade.ID, ActionInput{
			ActionType: model.ActionClose,
		})
		require.NoError(t, err)
		require.True(t, outcome.Queued)
		assert.Equal(t, model.ActionStatusPending, outcome.Action.Status)
		assert.Equal(t, terminal.Ticket, outcome.Action.Ticket)

		var fresh model.Trade
		require.NoError(t, f.db.First(&fresh, f.trade.ID).Error)
		assert.Equal(t, model.TradeStatusOpen, fresh.Status)
	})
}

func TestPollAndReport(t *testing.T) {
	f := newActionFixture(t)
	f.linkTerminal(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	f.svc.now = func() time.Time { return current }

	outcome, err := f.svc.Request(ctx, f.author, f.trade.ID, ActionInput{
		ActionType: model.ActionClose,
	})
	require.NoError(t, err)
	require.True(t, outcome.Queued)
	actionID := outcome.Action.ID

	delivered, err := f.svc.Poll(ctx, f.account)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, model.ActionStatusDelivered, delivered[0].Status)
	assert.Equal(t, 1, delivered[0].Attempts)

	t.Run("second poll inside the window is empty", func(t *testing.T) {
		current = base.Add(time.Minute)
		delivered, err := f.svc.Poll(ctx, f.account)
		require.NoError(t, err)
		assert.Empty(t, delivered)
	})

	t.Run("stale delivery is handed out again", func(t *testing.T) {
		current = base.Add(6 * time.Minute)
		delivered, err := f.svc.Poll(ctx, f.account)
		require.NoError(t, err)
		require.Len(t, delivered, 1)
		assert.Equal(t, 2, delivered[0].Attempts)
	})

	t.Run("successful report closes the trade", func(t *testing.T) {
		price := 1.1050
		status, err := f.svc.ReportResult(ctx, f.account, actionID, ResultInput{
			Success: true,
			Price:   &price,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ActionStatusSucceeded, status)

		var fresh model.Trade
		require.NoError(t, f.db.First(&fresh, f.trade.ID).Error)
		assert.Equal(t, model.TradeStatusClosed, fresh.Status)
		require.NotNil(t, fresh.ClosePrice)
		assert.Equal(t, 1.1050, *fresh.ClosePrice)
	})

	t.Run("repeated report is idempotent", func(t *testing.T) {
		status, err := f.svc.ReportResult(ctx, f.account, actionID, ResultInput{Success: false})
		require.NoError(t, err)
		assert.Equal(t, model.ActionStatusSucceeded, status)
	})

	t.Run("foreign account cannot report", func(t *testing.T) {
		other := &model.TradingAccount{UserID: 99, Platform: model.PlatformMT4, APIKeyID: "other-key", Active: true}
		require.NoError(t, f.db.Create(other).Error)

		_, err := f.svc.ReportResult(ctx, other, actionID, ResultInput{Success: true})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeliveryExpiry(t *testing.T) {
	f := newActionFixture(t)
	f.linkTerminal(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	f.svc.now = func() time.Time { return current }

	outcome, err := f.svc.Request(ctx, f.author, f.trade.ID, ActionInput{
		ActionType: model.ActionSetBreakeven,
	})
	require.NoError(t, err)

	// exhaust the retry budget
	for i := 0; i < f.svc.cfg.ActionMaxAttempts; i++ {
		delivered, err := f.svc.Poll(ctx, f.account)
		require.NoError(t, err)
		require.Len(t, delivered, 1)
		current = current.Add(6 * time.Minute)
	}

	delivered, err := f.svc.Poll(ctx, f.account)
	require.NoError(t, err)
	assert.Empty(t, delivered)

	var action model.PendingAction
	require.NoError(t, f.db.First(&action, outcome.Action.ID).Error)
	assert.Equal(t, model.ActionStatusFailed, action.Status)
	assert.Equal(t, "delivery expired", action.ErrorMessage)
}

func floatPtr(v float64) *float64 { return &v }
