package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"signalengine/src/auth"
	"signalengine/src/model"
	"signalengine/src/service"
)

type heartbeater interface {
	Heartbeat(ctx context.Context, account *model.TradingAccount, input service.HeartbeatInput) (string, error)
}

// HeartbeatHandler accepts a terminal liveness ping with balance/equity
// telemetry and answers with the derived connection status and the account
// it was credited to.
func HeartbeatHandler(accounts heartbeater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var input service.HeartbeatInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, err)
			return
		}

		status, err := accounts.Heartbeat(r.Context(), account, input)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     status,
			"account_id": account.ID,
		})
	}
}

type tradeIngester interface {
	RecordEvent(ctx context.Context, account *model.TradingAccount, eventType string, payload service.TerminalTradePayload) (*model.TerminalTrade, error)
	SyncHistory(ctx context.Context, account *model.TradingAccount, payloads []service.TerminalTradePayload) (service.SyncResult, error)
}

type tradeEventRequest struct {
	Event string                       `json:"event"`
	Trade service.TerminalTradePayload `json:"trade"`
}

// TradeEventHandler ingests one OPEN/UPDATE/CLOSE lifecycle event.
func TradeEventHandler(ingest tradeIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req tradeEventRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		trade, err := ingest.RecordEvent(r.Context(), account, req.Event, req.Trade)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, trade)
	}
}

type syncRequest struct {
	Trades []service.TerminalTradePayload `json:"trades"`
}

// SyncTradesHandler ingests a batch of historical closed trades.
func SyncTradesHandler(ingest tradeIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req syncRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}

		result, err := ingest.SyncHistory(r.Context(), account, req.Trades)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

type actionQueue interface {
	Poll(ctx context.Context, account *model.TradingAccount) ([]model.PendingAction, error)
	ReportResult(ctx context.Context, account *model.TradingAccount, actionID uint, input service.ResultInput) (string, error)
}

// PollActionsHandler hands out the pending actions for this terminal.
func PollActionsHandler(actions actionQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		delivered, err := actions.Poll(r.Context(), account)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"actions": delivered})
	}
}

// ActionResultHandler records the terminal's execution outcome for an action.
func ActionResultHandler(actions actionQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, ok := auth.GetAccountFromContext(r.Context())
		if !ok || account == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid action id", http.StatusBadRequest)
			return
		}

		var input service.ResultInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, err)
			return
		}

		status, err := actions.ReportResult(r.Context(), account, uint(id), input)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}
