package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
	"signalengine/src/security"
)

// AccountService is the account gateway: it links terminals, authenticates
// API keys, accepts heartbeats and derives connection status.
type AccountService struct {
	accounts *repository.AccountRepository
	cfg      Config

	// authCache skips bcrypt for keys verified within the TTL; the account
	// row itself is always read fresh.
	authCache *gocache.Cache
	// lastBeat tracks the most recent accepted heartbeat per account for
	// rate limiting. In-process only; limits are per account, so multiple
	// instances need no coordination.
	lastBeat *gocache.Cache

	now func() time.Time
}

func NewAccountService(accounts *repository.AccountRepository) *AccountService {
	cfg := GetConfig()

	return &AccountService{
		accounts:  accounts,
		cfg:       cfg,
		authCache: gocache.New(cfg.AuthCacheTTL, 2*cfg.AuthCacheTTL),
		lastBeat:  gocache.New(cfg.HeartbeatMinInterval, 2*cfg.HeartbeatMinInterval),
		now:       time.Now,
	}
}

type LinkInput struct {
	Broker        string `json:"broker"`
	Platform      string `json:"platform"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	Currency      string `json:"currency"`
}

// Link creates a TradingAccount on a successful handshake and returns the
// plaintext API key exactly once. Only the bcrypt hash is stored.
func (s *AccountService) Link(ctx context.Context, userID uint, input LinkInput) (*model.TradingAccount, string, error) {
	if input.Platform != model.PlatformMT4 && input.Platform != model.PlatformMT5 {
		return nil, "", fmt.Errorf("%w: platform must be MT4 or MT5", ErrValidation)
	}
	if input.AccountType == "" {
		input.AccountType = model.AccountTypeDemo
	}
	if input.AccountType != model.AccountTypeLive && input.AccountType != model.AccountTypeDemo {
		return nil, "", fmt.Errorf("%w: account type must be LIVE or DEMO", ErrValidation)
	}
	if input.AccountNumber == "" {
		return nil, "", fmt.Errorf("%w: account number is required", ErrValidation)
	}

	key, err := security.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	account := &model.TradingAccount{
		UserID:        userID,
		Broker:        input.Broker,
		Platform:      input.Platform,
		AccountNumber: input.AccountNumber,
		AccountType:   input.AccountType,
		Currency:      input.Currency,
		APIKeyID:      key.KeyID,
		APIKeyHash:    key.Hash,
		Active:        true,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", err
	}

	logger.WithFields(map[string]interface{}{
		"account_id": account.ID,
		"user_id":    userID,
		"platform":   input.Platform,
	}).Info("Trading account linked")

	return account, key.Plaintext, nil
}

// Disconnect soft-deactivates an account; its API key stops authenticating.
func (s *AccountService) Disconnect(ctx context.Context, userID, accountID uint) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.UserID != userID {
		return ErrNotFound
	}

	if err := s.accounts.Deactivate(ctx, accountID, userID); err != nil {
		return err
	}

	s.authCache.Delete(account.APIKeyID)
	return nil
}

// Authenticate resolves an API key to its account. No side effects on
// failure.
func (s *AccountService) Authenticate(ctx context.Context, apiKey string) (*model.TradingAccount, error) {
	keyID, secret, ok := security.SplitAPIKey(apiKey)
	if !ok {
		return nil, ErrUnauthorized
	}

	account, err := s.accounts.FindByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.Active {
		return nil, ErrUnauthorized
	}

	if cached, found := s.authCache.Get(keyID); found && cached.(string) == secret {
		return account, nil
	}

	if !security.VerifySecret(account.APIKeyHash, secret) {
		return nil, ErrUnauthorized
	}
	s.authCache.SetDefault(keyID, secret)

	return account, nil
}

type HeartbeatInput struct {
	Balance float64 `json:"balance"`
	Equity  float64 `json:"equity"`
}

// Heartbeat updates telemetry and the liveness timestamp. Rejects with
// ErrRateLimited when beats arrive faster than the configured minimum
// interval.
func (s *AccountService) Heartbeat(ctx context.Context, account *model.TradingAccount, input HeartbeatInput) (string, error) {
	now := s.now()
	key := strconv.FormatUint(uint64(account.ID), 10)

	if last, found := s.lastBeat.Get(key); found {
		if now.Sub(last.(time.Time)) < s.cfg.HeartbeatMinInterval {
			monitor.IncHeartbeat("rate_limited")
			return "", ErrRateLimited
		}
	}

	if err := s.accounts.RecordHeartbeat(ctx, account.ID, input.Balance, input.Equity, now); err != nil {
		monitor.IncHeartbeat("error")
		return "", err
	}
	s.lastBeat.Set(key, now, s.cfg.HeartbeatMinInterval)

	monitor.IncHeartbeat("ok")
	return model.ConnectionOnline, nil
}

// ConnectionStatus derives online/idle/offline from the last heartbeat.
// Never persisted: one timestamp is the whole state machine.
func (s *AccountService) ConnectionStatus(lastHeartbeatAt *time.Time) string {
	return DeriveConnectionStatus(lastHeartbeatAt, s.now(), s.cfg.OnlineWindow, s.cfg.IdleWindow)
}

func DeriveConnectionStatus(lastHeartbeatAt *time.Time, now time.Time, onlineWindow, idleWindow time.Duration) string {
	if lastHeartbeatAt == nil {
		return model.ConnectionOffline
	}

	since := now.Sub(*lastHeartbeatAt)
	switch {
	case since < onlineWindow:
		return model.ConnectionOnline
	case since < idleWindow:
		return model.ConnectionIdle
	default:
		return model.ConnectionOffline
	}
}

// AccountStatus is the user-facing view of a linked terminal.
type AccountStatus struct {
	Account    *model.TradingAccount `json:"account"`
	Connection string                `json:"connection"`
}

func (s *AccountService) Status(ctx context.Context, userID, accountID uint) (*AccountStatus, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.UserID != userID {
		return nil, ErrNotFound
	}

	return &AccountStatus{
		Account:    account,
		Connection: s.ConnectionStatus(account.LastHeartbeatAt),
	}, nil
}
