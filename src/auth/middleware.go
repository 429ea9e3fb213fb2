package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/service"
)

// UserAuthenticator resolves a session token to a user.
type UserAuthenticator interface {
	FindBySessionToken(ctx context.Context, token string) (*model.User, error)
}

// TerminalAuthenticator resolves a terminal API key to its account.
type TerminalAuthenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*model.TradingAccount, error)
}

// UserAuth authenticates the session token from the Authorization header
// and puts the user on the request context.
func UserAuth(users UserAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing session token", http.StatusUnauthorized)
				return
			}

			user, err := users.FindBySessionToken(r.Context(), token)
			if err != nil {
				logger.WithError(err).Error("Failed to resolve session token")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, "invalid session token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TerminalAuth authenticates the X-API-Key header and puts the trading
// account on the request context.
func TerminalAuth(terminals TerminalAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}

			account, err := terminals.Authenticate(r.Context(), apiKey)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					http.Error(w, "invalid API key", http.StatusUnauthorized)
					return
				}
				logger.WithError(err).Error("Failed to authenticate terminal")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
