package executors

import (
	"context"
	"sync/atomic"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/monitor"
	"signalengine/src/repository"
)

// TradeResolver attempts to resolve one unverified trade against terminal
// activity. The signal matcher is the production implementation.
type TradeResolver interface {
	ResolveTrade(ctx context.Context, trade *model.Trade) (bool, error)
}

// Evaluator periodically sweeps stale unverified trades and retries
// resolution. One sweep runs at a time; a tick arriving while the previous
// sweep is still working is skipped, not queued.
type Evaluator struct {
	trades   *repository.TradeRepository
	flags    *repository.FeatureFlagRepository
	resolver TradeResolver
	cfg      Config

	running atomic.Bool
	now     func() time.Time
}

func NewEvaluator(
	trades *repository.TradeRepository,
	flags *repository.FeatureFlagRepository,
	resolver TradeResolver,
) *Evaluator {
	return &Evaluator{
		trades:   trades,
		flags:    flags,
		resolver: resolver,
		cfg:      GetConfig(),
		now:      time.Now,
	}
}

// Summary tallies one sweep.
type Summary struct {
	Skipped    bool
	Scanned    int
	Resolved   int
	Unresolved int
}

// RunOnce executes a single sweep. Returns Skipped when another sweep holds
// the slot or the feature flag is off.
func (e *Evaluator) RunOnce(ctx context.Context) (Summary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Summary{Skipped: true}, nil
	}
	defer e.running.Store(false)

	// flag is read fresh every sweep so toggling it needs no restart
	enabled, err := e.flags.IsEnabled(ctx, model.FlagIntegrityEvaluator, true)
	if err != nil {
		return Summary{}, err
	}
	if !enabled {
		logger.Debug("Integrity evaluator disabled, skipping sweep")
		return Summary{Skipped: true}, nil
	}

	now := e.now()
	trades, err := e.trades.FindUnverified(ctx,
		now.Add(-e.cfg.EvaluatorMinAge),
		now.Add(-e.cfg.EvaluatorCooldown),
		e.cfg.EvaluatorBatch,
	)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(trades)}
	for i := range trades {
		trade := &trades[i]

		resolved, resolveErr := e.resolver.ResolveTrade(ctx, trade)

		// stamp before inspecting the outcome so an erroring trade still
		// waits out the cooldown instead of being retried every sweep
		if err := e.trades.TouchEvaluated(ctx, trade.ID, now); err != nil {
			logger.WithError(err).WithField("trade_id", trade.ID).Warn("Failed to stamp evaluation time")
		}

		if resolveErr != nil {
			logger.WithError(resolveErr).WithField("trade_id", trade.ID).Error("Evaluator failed to resolve trade")
			monitor.IncEvaluatorTrade("error")
			continue
		}

		if resolved {
			summary.Resolved++
			monitor.IncEvaluatorTrade("resolved")
		} else {
			summary.Unresolved++
			monitor.IncEvaluatorTrade("unresolved")
		}
	}

	monitor.IncEvaluatorRun()
	if summary.Scanned > 0 {
		logger.WithFields(map[string]interface{}{
			"scanned":    summary.Scanned,
			"resolved":   summary.Resolved,
			"unresolved": summary.Unresolved,
		}).Info("Integrity sweep finished")
	}

	return summary, nil
}

// StartLoop runs sweeps until the context is cancelled.
func (e *Evaluator) StartLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.EvaluatorPeriod)
	defer ticker.Stop()

	logger.WithField("period", e.cfg.EvaluatorPeriod).Info("Integrity evaluator started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Integrity evaluator stopped")
			return

		case <-ticker.C:
			if _, err := e.RunOnce(ctx); err != nil {
				logger.WithError(err).Error("Integrity sweep failed")
			}
		}
	}
}
