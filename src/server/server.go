package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/auth"
	"signalengine/src/authz"
	"signalengine/src/executors"
	"signalengine/src/handler"
	"signalengine/src/matcher"
	"signalengine/src/repository"
	"signalengine/src/service"
)

// StartServer wires the full engine and serves until SIGINT/SIGTERM:
// HTTP surface plus the integrity evaluator and outbox dispatcher loops.
func StartServer(port string) {
	cfg := GetConfig()

	accountRepo := repository.NewAccountRepository()
	terminalTradeRepo := repository.NewTerminalTradeRepository()
	tradeRepo := repository.NewTradeRepository()
	signalCardRepo := repository.NewSignalCardRepository()
	actionRepo := repository.NewPendingActionRepository()
	clanRepo := repository.NewClanRepository()
	userRepo := repository.NewUserRepository()
	outboxRepo := repository.NewOutboxRepository()
	flagRepo := repository.NewFeatureFlagRepository()

	m := matcher.New(tradeRepo, terminalTradeRepo, accountRepo, clanRepo, matcher.DefaultConfig())
	dispatcher, err := matcher.NewDispatcher(m, service.GetConfig().MatcherPoolSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start matcher pool")
	}
	defer dispatcher.Release()

	accounts := service.NewAccountService(accountRepo)
	ingest := service.NewIngestService(terminalTradeRepo, dispatcher)
	actions := service.NewActionService(tradeRepo, actionRepo, clanRepo, authz.NewPolicy())
	trades := service.NewTradeService(tradeRepo, signalCardRepo)

	// background loops share the server's lifetime
	loopCtx, cancelLoops := context.WithCancel(context.Background())
	defer cancelLoops()

	evaluator := executors.NewEvaluator(tradeRepo, flagRepo, m)
	go evaluator.StartLoop(loopCtx)

	outbox := executors.NewOutboxDispatcher(outboxRepo)
	go outbox.StartLoop(loopCtx)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	// terminal API, authenticated by API key
	r.Route("/api/terminal", func(r chi.Router) {
		r.Use(auth.TerminalAuth(accounts))

		r.Post("/heartbeat", handler.HeartbeatHandler(accounts))
		r.Post("/trade-event", handler.TradeEventHandler(ingest))
		r.Post("/trades/sync", handler.SyncTradesHandler(ingest))
		r.Get("/actions", handler.PollActionsHandler(actions))
		r.Post("/actions/{id}/result", handler.ActionResultHandler(actions))
	})

	// user API, authenticated by session token
	r.Group(func(r chi.Router) {
		r.Use(auth.UserAuth(userRepo))

		r.Post("/api/accounts/link", handler.LinkAccountHandler(accounts))
		r.Post("/api/accounts/{id}/disconnect", handler.DisconnectAccountHandler(accounts))
		r.Get("/api/accounts/{id}/status", handler.AccountStatusHandler(accounts))

		r.Post("/api/signal-cards/{id}/track", handler.TrackSignalCardHandler(trades))
		r.Get("/api/trades/{id}", handler.GetTradeHandler(trades))
		r.Post("/api/trades/{id}/actions", handler.RequestActionHandler(actions))
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	cancelLoops()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
