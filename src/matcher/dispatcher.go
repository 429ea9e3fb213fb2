package matcher

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	logger "github.com/sirupsen/logrus"
)

// Dispatcher runs match attempts on a bounded worker pool so a burst of
// closes cannot pile up goroutines. Jobs are fire-and-forget; a dropped job
// is recovered by the integrity evaluator sweep.
type Dispatcher struct {
	matcher *Matcher
	pool    *ants.Pool
	timeout time.Duration
}

func NewDispatcher(m *Matcher, poolSize int) (*Dispatcher, error) {
	if poolSize <= 0 {
		poolSize = 8
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		matcher: m,
		pool:    pool,
		timeout: 30 * time.Second,
	}, nil
}

// DispatchMatch queues a match attempt for a closed terminal trade.
func (d *Dispatcher) DispatchMatch(terminalTradeID uint) {
	err := d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.matcher.MatchTerminalTrade(ctx, terminalTradeID); err != nil {
			logger.WithError(err).WithField("terminal_trade_id", terminalTradeID).Error("Match attempt failed")
		}
	})
	if err != nil {
		// pool saturated; the evaluator sweep retries this trade later
		logger.WithError(err).WithField("terminal_trade_id", terminalTradeID).Warn("Match job dropped")
	}
}

func (d *Dispatcher) Release() {
	d.pool.Release()
}
