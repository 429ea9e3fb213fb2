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

type accountManager interface {
	Link(ctx context.Context, userID uint, input service.LinkInput) (*model.TradingAccount, string, error)
	Disconnect(ctx context.Context, userID, accountID uint) error
	Status(ctx context.Context, userID, accountID uint) (*service.AccountStatus, error)
}

// LinkAccountHandler completes a link handshake. The response is the only
// place the plaintext API key ever appears.
func LinkAccountHandler(accounts accountManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var input service.LinkInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, err)
			return
		}

		account, apiKey, err := accounts.Link(r.Context(), user.ID, input)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"account": account,
			"api_key": apiKey,
		})
	}
}

func DisconnectAccountHandler(accounts accountManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		if err := accounts.Disconnect(r.Context(), user.ID, uint(id)); err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
	}
}

func AccountStatusHandler(accounts accountManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}

		status, err := accounts.Status(r.Context(), user.ID, uint(id))
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}
