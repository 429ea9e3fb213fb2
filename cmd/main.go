package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"signalengine/src/database"
	"signalengine/src/executors"
	"signalengine/src/matcher"
	"signalengine/src/model"
	"signalengine/src/repository"
	"signalengine/src/security"
	"signalengine/src/server"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Signalengine CMD"
	app.Usage = "The signalengine command line interface"

	app.Commands = []cli.Command{
		serverCMD,
		evaluatorCMD,
		outboxCMD,
		keysCMD,
		flagCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the API server with background loops",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the HTTP server, integrity evaluator and outbox dispatcher`,
	}
	evaluatorCMD = cli.Command{
		Name:        "evaluator",
		Usage:       "run one integrity sweep",
		Action:      evaluatorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run a single integrity evaluator sweep and exit`,
	}
	outboxCMD = cli.Command{
		Name:        "outbox",
		Usage:       "drain due outbox events once",
		Action:      outboxAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Deliver one batch of due outbox events and exit`,
	}
	keysCMD = cli.Command{
		Name:      "keys",
		Usage:     "rotate an account API key",
		Action:    keysAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.UintFlag{Name: "account", Usage: "trading account ID"},
		},
		Description: `Generate a fresh API key for an account and print it once`,
	}
	flagCMD = cli.Command{
		Name:      "flag",
		Usage:     "set a feature flag",
		Action:    flagAction,
		ArgsUsage: "<name> <on|off>",
		Flags:     []cli.Flag{},
		Description: `Upsert a feature flag row, e.g. "flag integrity_evaluator off"`,
	}
)

func serverAction(_ *cli.Context) error {
	logrus.Info("Starting server CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	server.StartServer(server.GetConfig().Port)
	return nil
}

func evaluatorAction(_ *cli.Context) error {
	logrus.Info("Starting evaluator CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	tradeRepo := repository.NewTradeRepository()
	m := matcher.New(
		tradeRepo,
		repository.NewTerminalTradeRepository(),
		repository.NewAccountRepository(),
		repository.NewClanRepository(),
		matcher.DefaultConfig(),
	)
	evaluator := executors.NewEvaluator(tradeRepo, repository.NewFeatureFlagRepository(), m)

	summary, err := evaluator.RunOnce(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Sweep failed")
		return err
	}

	fmt.Printf("scanned=%d resolved=%d unresolved=%d skipped=%v\n",
		summary.Scanned, summary.Resolved, summary.Unresolved, summary.Skipped)
	return nil
}

func outboxAction(_ *cli.Context) error {
	logrus.Info("Starting outbox CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	dispatcher := executors.NewOutboxDispatcher(repository.NewOutboxRepository())
	sent, err := dispatcher.RunOnce(context.Background())
	if err != nil {
		logrus.WithError(err).Error("Outbox drain failed")
		return err
	}

	fmt.Printf("sent=%d\n", sent)
	return nil
}

func keysAction(c *cli.Context) error {
	accountID := c.Uint("account")
	if accountID == 0 {
		return fmt.Errorf("--account is required")
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	key, err := security.GenerateAPIKey()
	if err != nil {
		return err
	}

	accountRepo := repository.NewAccountRepository()
	if err := accountRepo.RotateKey(context.Background(), uint(accountID), key.KeyID, key.Hash); err != nil {
		return err
	}

	// printed exactly once; only the hash is stored
	fmt.Println(key.Plaintext)
	return nil
}

func flagAction(c *cli.Context) error {
	name := c.Args().Get(0)
	state := c.Args().Get(1)
	if name == "" || (state != "on" && state != "off") {
		return fmt.Errorf("usage: flag <name> <on|off>")
	}
	if name != model.FlagIntegrityEvaluator {
		logrus.WithField("flag", name).Warn("Flag is not one the engine reads")
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	flagRepo := repository.NewFeatureFlagRepository()
	if err := flagRepo.Set(context.Background(), name, state == "on"); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"flag": name, "enabled": state == "on"}).Info("Feature flag set")
	return nil
}
