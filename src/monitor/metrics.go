// Package monitor exposes the prometheus instrumentation for the
// reconciliation core. A single Metrics instance registers on the default
// registry; package-level helpers save callers from holding it.
package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	heartbeats      *prometheus.CounterVec
	tradeEvents     *prometheus.CounterVec
	matcherResults  *prometheus.CounterVec
	evaluatorRuns   prometheus.Counter
	evaluatorTrades *prometheus.CounterVec
	actions         *prometheus.CounterVec
	outboxDispatch  *prometheus.CounterVec
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			heartbeats: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_heartbeats_total",
				Help: "Terminal heartbeats by outcome",
			}, []string{"outcome"}),
			tradeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_trade_events_total",
				Help: "Terminal trade events ingested by result",
			}, []string{"result"}),
			matcherResults: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_matcher_results_total",
				Help: "Signal matcher attempts by outcome",
			}, []string{"outcome"}),
			evaluatorRuns: promauto.NewCounter(prometheus.CounterOpts{
				Name: "signalengine_evaluator_runs_total",
				Help: "Completed integrity evaluator sweeps",
			}),
			evaluatorTrades: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_evaluator_trades_total",
				Help: "Trades touched by the integrity evaluator by result",
			}, []string{"result"}),
			actions: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_pending_actions_total",
				Help: "Pending action lifecycle transitions",
			}, []string{"event"}),
			outboxDispatch: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "signalengine_outbox_dispatch_total",
				Help: "Outbox delivery attempts by result",
			}, []string{"result"}),
		}
	})
	return metrics
}

func IncHeartbeat(outcome string) {
	GetMetrics().heartbeats.WithLabelValues(outcome).Inc()
}

func IncTradeEvent(result string) {
	GetMetrics().tradeEvents.WithLabelValues(result).Inc()
}

func IncMatcherResult(outcome string) {
	GetMetrics().matcherResults.WithLabelValues(outcome).Inc()
}

func IncEvaluatorRun() {
	GetMetrics().evaluatorRuns.Inc()
}

func IncEvaluatorTrade(result string) {
	GetMetrics().evaluatorTrades.WithLabelValues(result).Inc()
}

func IncActionEvent(event string) {
	GetMetrics().actions.WithLabelValues(event).Inc()
}

func IncOutboxDispatch(result string) {
	GetMetrics().outboxDispatch.WithLabelValues(result).Inc()
}
