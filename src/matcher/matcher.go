// Package matcher links closed terminal trades to tracked signal cards.
// Matching is best-effort and asynchronous: a failed or empty match leaves
// the trade unverified for the integrity evaluator to retry later.
package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/instrument"
	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
)

// Config bounds what counts as the same trade. A candidate outside either
// tolerance is not scored at all.
type Config struct {
	MaxPipDistance float64
	MaxTimeDiff    time.Duration
	TimeWeight     float64
	PriceWeight    float64
}

func DefaultConfig() Config {
	return Config{
		MaxPipDistance: 5.0,
		MaxTimeDiff:    60 * time.Minute,
		TimeWeight:     0.6,
		PriceWeight:    0.4,
	}
}

// Score rates how well a terminal trade fits a signal card, in [0, 1].
// Closer in time and price scores higher.
func (c Config) Score(timeDiff time.Duration, pipDistance float64) float64 {
	timeScore := 1 - timeDiff.Minutes()/c.MaxTimeDiff.Minutes()
	priceScore := 1 - pipDistance/c.MaxPipDistance
	return c.TimeWeight*timeScore + c.PriceWeight*priceScore
}

type Matcher struct {
	trades         *repository.TradeRepository
	terminalTrades *repository.TerminalTradeRepository
	accounts       *repository.AccountRepository
	clans          *repository.ClanRepository
	cfg            Config

	now func() time.Time
}

func New(
	trades *repository.TradeRepository,
	terminalTrades *repository.TerminalTradeRepository,
	accounts *repository.AccountRepository,
	clans *repository.ClanRepository,
	cfg Config,
) *Matcher {
	return &Matcher{
		trades:         trades,
		terminalTrades: terminalTrades,
		accounts:       accounts,
		clans:          clans,
		cfg:            cfg,
		now:            time.Now,
	}
}

// MatchTerminalTrade attempts to link one closed terminal trade to the best
// candidate tracked trade. Safe to call repeatedly for the same trade.
func (m *Matcher) MatchTerminalTrade(ctx context.Context, terminalTradeID uint) error {
	terminal, err := m.terminalTrades.FindByID(ctx, terminalTradeID)
	if err != nil {
		return err
	}
	if terminal == nil || terminal.IsOpen || terminal.TradeID != nil {
		monitor.IncMatcherResult("skipped")
		return nil
	}

	account, err := m.accounts.FindByID(ctx, terminal.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		monitor.IncMatcherResult("skipped")
		return nil
	}

	clanIDs, err := m.clans.ClanIDsForUser(ctx, account.UserID)
	if err != nil {
		return err
	}

	candidates, err := m.trades.FindCandidates(ctx, account.UserID, clanIDs, terminal.Direction)
	if err != nil {
		return err
	}

	best, bestScore := m.pickBest(candidates, terminal)
	if best == nil {
		monitor.IncMatcherResult("no_match")
		return nil
	}

	if err := m.commit(ctx, best, terminal, account.UserID, bestScore); err != nil {
		if errors.Is(err, repository.ErrAlreadyMatched) {
			return nil
		}
		return err
	}
	return nil
}

// ResolveTrade is the inverse direction, driven by the integrity evaluator:
// given a stale unverified trade, search the user's unmatched closed
// terminal activity for a fit. Returns whether the trade was resolved.
func (m *Matcher) ResolveTrade(ctx context.Context, trade *model.Trade) (bool, error) {
	if trade.SignalCard == nil || trade.TerminalLinked() {
		return false, nil
	}

	terminals, err := m.terminalTrades.FindUnmatchedClosedForUser(ctx, trade.UserID)
	if err != nil {
		return false, err
	}

	var best *model.TerminalTrade
	bestScore := -1.0
	for i := range terminals {
		terminal := &terminals[i]
		if terminal.Direction != trade.SignalCard.Direction {
			continue
		}

		score, ok := m.fit(trade, terminal)
		if !ok {
			continue
		}
		if score > bestScore {
			best = terminal
			bestScore = score
		}
	}

	if best == nil {
		return false, nil
	}

	if err := m.commit(ctx, trade, best, trade.UserID, bestScore); err != nil {
		if errors.Is(err, repository.ErrAlreadyMatched) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// pickBest scores eligible candidates and returns the winner. Candidates
// arrive ordered by card creation time, and only a strictly better score
// displaces the current best, so ties go to the earliest card.
func (m *Matcher) pickBest(candidates []model.Trade, terminal *model.TerminalTrade) (*model.Trade, float64) {
	var best *model.Trade
	bestScore := -1.0
	for i := range candidates {
		trade := &candidates[i]
		if trade.SignalCard == nil {
			continue
		}

		score, ok := m.fit(trade, terminal)
		if !ok {
			continue
		}
		if score > bestScore {
			best = trade
			bestScore = score
		}
	}

	return best, bestScore
}

// fit applies the eligibility filters and returns the score when all pass.
func (m *Matcher) fit(trade *model.Trade, terminal *model.TerminalTrade) (float64, bool) {
	card := trade.SignalCard

	if instrument.Normalize(card.Instrument) != instrument.Normalize(terminal.Symbol) {
		return 0, false
	}

	timeDiff := terminal.OpenTime.Sub(card.CreatedAt)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}
	if timeDiff > m.cfg.MaxTimeDiff {
		return 0, false
	}

	pipDist := instrument.PipDistance(card.Instrument, card.Entry, terminal.OpenPrice)
	if pipDist > m.cfg.MaxPipDistance {
		return 0, false
	}

	return m.cfg.Score(timeDiff, pipDist), true
}

type recalcPayload struct {
	TradeID uint `json:"trade_id"`
	UserID  uint `json:"user_id"`
	ClanID  uint `json:"clan_id"`
}

func (m *Matcher) commit(ctx context.Context, trade *model.Trade, terminal *model.TerminalTrade, userID uint, score float64) error {
	// the ledger row carries the terminal identity so the match is
	// auditable without the application log
	event := &model.TradeEvent{
		TradeID:  trade.ID,
		Action:   model.EventTerminalMatch,
		OldValue: trade.IntegrityStatus,
		NewValue: model.IntegrityVerified,
		Note:     fmt.Sprintf("matched ticket %d %s %s", terminal.Ticket, terminal.Direction, terminal.Symbol),
	}

	payload, _ := json.Marshal(recalcPayload{
		TradeID: trade.ID,
		UserID:  userID,
		ClanID:  trade.ClanID,
	})

	now := m.now()
	outbox := []model.OutboxEvent{
		{
			EventID:       uuid.NewString(),
			Topic:         model.TopicStatementRecalc,
			Payload:       string(payload),
			Status:        model.OutboxStatusPending,
			NextAttemptAt: now,
		},
		{
			EventID:       uuid.NewString(),
			Topic:         model.TopicBadgeRecalc,
			Payload:       string(payload),
			Status:        model.OutboxStatusPending,
			NextAttemptAt: now,
		},
	}

	err := m.trades.CommitMatch(ctx, trade, terminal, event, outbox)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyMatched) {
			monitor.IncMatcherResult("race")
			return err
		}
		monitor.IncMatcherResult("error")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"trade_id":          trade.ID,
		"terminal_trade_id": terminal.ID,
		"ticket":            terminal.Ticket,
		"score":             score,
	}).Info("Terminal trade matched to signal")

	monitor.IncMatcherResult("matched")
	return nil
}
