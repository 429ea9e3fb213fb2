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

type tradeTracker interface {
	Track(ctx context.Context, user *model.User, signalCardID uint) (*model.Trade, error)
	Get(ctx context.Context, id uint) (*model.Trade, error)
	Timeline(ctx context.Context, tradeID uint) ([]model.TradeEvent, error)
	Risk(trade *model.Trade) service.RiskView
}

// TrackSignalCardHandler starts tracking a signal card as a trade.
func TrackSignalCardHandler(trades tradeTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid signal card id", http.StatusBadRequest)
			return
		}

		trade, err := trades.Track(r.Context(), user, uint(id))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, trade)
	}
}

// GetTradeHandler returns a trade with its derived risk view and event
// timeline.
func GetTradeHandler(trades tradeTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}

		trade, err := trades.Get(r.Context(), uint(id))
		if err != nil {
			writeError(w, err)
			return
		}

		events, err := trades.Timeline(r.Context(), trade.ID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"trade":    trade,
			"risk":     trades.Risk(trade),
			"timeline": events,
		})
	}
}

type actionRequester interface {
	Request(ctx context.Context, user *model.User, tradeID uint, input service.ActionInput) (*service.RequestOutcome, error)
}

// RequestActionHandler authorizes and applies (or queues) a trade action.
func RequestActionHandler(actions actionRequester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid trade id", http.StatusBadRequest)
			return
		}

		var input service.ActionInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, err)
			return
		}

		outcome, err := actions.Request(r.Context(), user, uint(id), input)
		if err != nil {
			writeError(w, err)
			return
		}

		status := http.StatusOK
		if outcome.Queued {
			status = http.StatusAccepted
		}
		writeJSON(w, status, outcome)
	}
}
