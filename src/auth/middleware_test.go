package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"signalengine/src/model"
	"signalengine/src/service"
)

type stubUsers struct {
	user *model.User
}

func (s *stubUsers) FindBySessionToken(_ context.Context, token string) (*model.User, error) {
	if s.user != nil && token == "good-token" {
		return s.user, nil
	}
	return nil, nil
}

type stubTerminals struct {
	account *model.TradingAccount
}

func (s *stubTerminals) Authenticate(_ context.Context, apiKey string) (*model.TradingAccount, error) {
	if s.account != nil && apiKey == "kid.secret" {
		return s.account, nil
	}
	return nil, service.ErrUnauthorized
}

func TestUserAuth(t *testing.T) {
	users := &stubUsers{user: &model.User{ID: 7}}

	var gotUser *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := UserAuth(users)(next)

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint(7), gotUser.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTerminalAuth(t *testing.T) {
	terminals := &stubTerminals{account: &model.TradingAccount{ID: 3}}

	var gotAccount *model.TradingAccount
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount, _ = GetAccountFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := TerminalAuth(terminals)(next)

	t.Run("valid API key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "kid.secret")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint(3), gotAccount.ID)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-API-Key", "nope")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
