package service

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/authz"
	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
)

// ActionInput is a user's requested mutation of a trade.
type ActionInput struct {
	ActionType string   `json:"action_type"`
	NewValue   *float64 `json:"new_value,omitempty"`
	NewStatus  string   `json:"new_status,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// RequestOutcome tells the caller whether the action applied immediately or
// was queued for the terminal.
type RequestOutcome struct {
	Queued bool                 `json:"queued"`
	Action *model.PendingAction `json:"action,omitempty"`
	Trade  *model.Trade         `json:"trade,omitempty"`
}

// ActionService routes trade mutations: direct server-side application for
// unlinked trades, the pull queue for terminal-linked ones. All requests
// pass through the authorization policy first.
type ActionService struct {
	trades  *repository.TradeRepository
	actions *repository.PendingActionRepository
	clans   *repository.ClanRepository
	policy  *authz.Policy
	cfg     Config

	now func() time.Time
}

func NewActionService(
	trades *repository.TradeRepository,
	actions *repository.PendingActionRepository,
	clans *repository.ClanRepository,
	policy *authz.Policy,
) *ActionService {
	return &ActionService{
		trades:  trades,
		actions: actions,
		clans:   clans,
		policy:  policy,
		cfg:     GetConfig(),
		now:     time.Now,
	}
}

var validStatuses = map[string]bool{
	model.TradeStatusPending: true,
	model.TradeStatusOpen:    true,
	model.TradeStatusTPHit:   true,
	model.TradeStatusSLHit:   true,
	model.TradeStatusBE:      true,
	model.TradeStatusClosed:  true,
}

// Request authorizes and applies (or queues) an action against a trade.
func (s *ActionService) Request(ctx context.Context, user *model.User, tradeID uint, input ActionInput) (*RequestOutcome, error) {
	trade, err := s.trades.FindByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, ErrNotFound
	}

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	membershipRole, err := s.clans.MembershipRole(ctx, user.ID, trade.ClanID)
	if err != nil {
		return nil, err
	}

	decision := s.policy.Decide(authz.Request{
		ActorRole:      user.Role,
		MembershipRole: membershipRole,
		Action:         input.ActionType,
		IsAuthor:       trade.UserID == user.ID,
		TerminalLinked: trade.TerminalLinked(),
	})
	if !decision.Allowed {
		monitor.IncActionEvent("denied")
		return nil, &ForbiddenError{Reason: decision.Reason}
	}

	if trade.TerminalLinked() && model.ExecutableByTerminal(input.ActionType) {
		return s.queueForTerminal(ctx, user, trade, input)
	}

	if err := s.applyDirect(ctx, user, trade, input); err != nil {
		return nil, err
	}

	fresh, err := s.trades.FindByID(ctx, trade.ID)
	if err != nil {
		return nil, err
	}
	return &RequestOutcome{Trade: fresh}, nil
}

func (s *ActionService) validateInput(input ActionInput) error {
	switch input.ActionType {
	case model.ActionMoveStopLoss, model.ActionChangeTakeProfit:
		if input.NewValue == nil || *input.NewValue <= 0 {
			return fmt.Errorf("%w: %s requires a positive new_value", ErrValidation, input.ActionType)
		}
	case model.ActionStatusChange:
		if !validStatuses[input.NewStatus] {
			return fmt.Errorf("%w: unknown status %q", ErrValidation, input.NewStatus)
		}
	case model.ActionAddNote:
		if input.Note == "" {
			return fmt.Errorf("%w: note is required", ErrValidation)
		}
	case model.ActionSetBreakeven, model.ActionClose:
		// no payload required
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrValidation, input.ActionType)
	}
	return nil
}

func (s *ActionService) queueForTerminal(ctx context.Context, user *model.User, trade *model.Trade, input ActionInput) (*RequestOutcome, error) {
	terminal := trade.TerminalTrade
	if terminal == nil {
		return nil, fmt.Errorf("trade %d linked but terminal trade not loaded", trade.ID)
	}
	if !terminal.IsOpen {
		return nil, fmt.Errorf("%w: terminal trade already closed", ErrValidation)
	}

	newValue := input.NewValue
	if input.ActionType == model.ActionSetBreakeven {
		entry := trade.InitialEntry
		newValue = &entry
	}

	action := &model.PendingAction{
		AccountID:   terminal.AccountID,
		TradeID:     trade.ID,
		Ticket:      terminal.Ticket,
		ActionType:  input.ActionType,
		NewValue:    newValue,
		Status:      model.ActionStatusPending,
		RequestedBy: user.ID,
	}

	if err := s.actions.Create(ctx, action); err != nil {
		return nil, err
	}

	event := &model.TradeEvent{
		TradeID:  trade.ID,
		Action:   model.EventActionRequested,
		ActorID:  &user.ID,
		NewValue: input.ActionType,
		Note:     fmt.Sprintf("queued %s for ticket %d", input.ActionType, terminal.Ticket),
	}
	if err := s.trades.AppendEvent(ctx, event); err != nil {
		logger.WithError(err).WithField("action_id", action.ID).Warn("Queued action but failed to append event")
	}

	monitor.IncActionEvent("queued")
	return &RequestOutcome{Queued: true, Action: action}, nil
}

func (s *ActionService) applyDirect(ctx context.Context, user *model.User, trade *model.Trade, input ActionInput) error {
	now := s.now()
	updates := map[string]interface{}{}
	event := &model.TradeEvent{
		TradeID: trade.ID,
		ActorID: &user.ID,
		Note:    input.Note,
	}

	switch input.ActionType {
	case model.ActionSetBreakeven:
		updates["current_stop_loss"] = trade.InitialEntry
		event.Action = model.EventBreakevenSet
		event.OldValue = fmt.Sprintf("%g", trade.CurrentStopLoss)
		event.NewValue = fmt.Sprintf("%g", trade.InitialEntry)

	case model.ActionMoveStopLoss:
		updates["current_stop_loss"] = *input.NewValue
		event.Action = model.EventStopLossMoved
		event.OldValue = fmt.Sprintf("%g", trade.CurrentStopLoss)
		event.NewValue = fmt.Sprintf("%g", *input.NewValue)

	case model.ActionChangeTakeProfit:
		updates["current_take_profit"] = *input.NewValue
		event.Action = model.EventTakeProfitMoved
		event.OldValue = fmt.Sprintf("%g", trade.CurrentTakeProfit)
		event.NewValue = fmt.Sprintf("%g", *input.NewValue)

	case model.ActionClose:
		updates["status"] = model.TradeStatusClosed
		updates["closed_at"] = now
		if input.NewValue != nil {
			updates["close_price"] = *input.NewValue
		}
		event.Action = model.EventClosed
		event.OldValue = trade.Status
		event.NewValue = model.TradeStatusClosed

	case model.ActionStatusChange:
		updates["status"] = input.NewStatus
		if input.NewStatus == model.TradeStatusClosed ||
			input.NewStatus == model.TradeStatusTPHit ||
			input.NewStatus == model.TradeStatusSLHit ||
			input.NewStatus == model.TradeStatusBE {
			updates["closed_at"] = now
		}
		event.Action = model.EventStatusChange
		event.OldValue = trade.Status
		event.NewValue = input.NewStatus

	case model.ActionAddNote:
		event.Action = model.EventNoteAdded
	}

	if err := s.trades.UpdateWithEvent(ctx, trade.ID, updates, event); err != nil {
		return err
	}

	monitor.IncActionEvent("applied")
	return nil
}

// Poll hands out the actions due for an account, marking them DELIVERED.
func (s *ActionService) Poll(ctx context.Context, account *model.TradingAccount) ([]model.PendingAction, error) {
	result, err := s.actions.Deliver(ctx, account.ID, s.now(), s.cfg.ActionRedeliverAfter, s.cfg.ActionMaxAttempts)
	if err != nil {
		return nil, err
	}

	for range result.Delivered {
		monitor.IncActionEvent("delivered")
	}
	for i := 0; i < result.Expired; i++ {
		monitor.IncActionEvent("expired")
	}

	if result.Delivered == nil {
		return []model.PendingAction{}, nil
	}
	return result.Delivered, nil
}

// ResultInput is a terminal's report on a delivered action.
type ResultInput struct {
	Success      bool     `json:"success"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Price        *float64 `json:"price,omitempty"`
}

// ReportResult records a terminal's execution outcome and, on success,
// applies the action's effect to the trade. Repeated reports for the same
// action return the stored status unchanged.
func (s *ActionService) ReportResult(ctx context.Context, account *model.TradingAccount, actionID uint, input ResultInput) (string, error) {
	action, err := s.actions.FindByID(ctx, actionID)
	if err != nil {
		return "", err
	}
	if action == nil || action.AccountID != account.ID {
		return "", ErrNotFound
	}

	wasTerminal := action.Terminal()

	resultEvent := &model.TradeEvent{
		TradeID:  action.TradeID,
		Action:   model.EventActionResult,
		OldValue: action.ActionType,
		Note:     input.ErrorMessage,
	}
	if input.Success {
		resultEvent.NewValue = model.ActionStatusSucceeded
	} else {
		resultEvent.NewValue = model.ActionStatusFailed
	}

	status, err := s.actions.Complete(ctx, action, input.Success, input.ErrorMessage, s.now(), resultEvent)
	if err != nil {
		return "", err
	}

	if !wasTerminal && status == model.ActionStatusSucceeded {
		if err := s.applyTerminalEffect(ctx, action, input.Price); err != nil {
			// the result is recorded; the trade projection catches up on retry
			logger.WithError(err).WithField("action_id", action.ID).Error("Failed to apply action effect to trade")
		}
		monitor.IncActionEvent("succeeded")
	} else if !wasTerminal && status == model.ActionStatusFailed {
		monitor.IncActionEvent("failed")
	}

	return status, nil
}

// applyTerminalEffect mirrors a confirmed terminal execution onto the trade
// projection. ActorID stays nil: the mutation is terminal-originated.
func (s *ActionService) applyTerminalEffect(ctx context.Context, action *model.PendingAction, price *float64) error {
	trade, err := s.trades.FindByID(ctx, action.TradeID)
	if err != nil {
		return err
	}
	if trade == nil {
		return fmt.Errorf("trade %d not found for action %d", action.TradeID, action.ID)
	}

	now := s.now()
	updates := map[string]interface{}{}
	event := &model.TradeEvent{TradeID: trade.ID}

	switch action.ActionType {
	case model.ActionSetBreakeven:
		updates["current_stop_loss"] = trade.InitialEntry
		event.Action = model.EventBreakevenSet
		event.OldValue = fmt.Sprintf("%g", trade.CurrentStopLoss)
		event.NewValue = fmt.Sprintf("%g", trade.InitialEntry)

	case model.ActionMoveStopLoss:
		if action.NewValue == nil {
			return nil
		}
		updates["current_stop_loss"] = *action.NewValue
		event.Action = model.EventStopLossMoved
		event.OldValue = fmt.Sprintf("%g", trade.CurrentStopLoss)
		event.NewValue = fmt.Sprintf("%g", *action.NewValue)

	case model.ActionChangeTakeProfit:
		if action.NewValue == nil {
			return nil
		}
		updates["current_take_profit"] = *action.NewValue
		event.Action = model.EventTakeProfitMoved
		event.OldValue = fmt.Sprintf("%g", trade.CurrentTakeProfit)
		event.NewValue = fmt.Sprintf("%g", *action.NewValue)

	case model.ActionClose:
		updates["status"] = model.TradeStatusClosed
		updates["closed_at"] = now
		if price != nil {
			updates["close_price"] = *price
		}
		event.Action = model.EventClosed
		event.OldValue = trade.Status
		event.NewValue = model.TradeStatusClosed

	default:
		return nil
	}

	return s.trades.UpdateWithEvent(ctx, trade.ID, updates, event)
}
