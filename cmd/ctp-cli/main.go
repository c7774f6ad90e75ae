package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/zhou-yuxin/ctp-client/internal/config"
	"github.com/zhou-yuxin/ctp-client/internal/logging"
	"github.com/zhou-yuxin/ctp-client/pkg/trading"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("ctp-cli", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nflags:\n", flags.FlagUsages())
	}
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("ctp-cli", flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trader, err := trading.NewTrader(ctx, logger, cfg.DSN, cfg.Trading())
	if err != nil {
		logger.Error("failed to start trader", zap.Error(err))
		os.Exit(1)
	}

	name, args := flags.Arg(0), flags.Args()[1:]
	if name == "quotes" {
		err = streamQuotes(ctx, trader, args, os.Stdout)
	} else {
		err = execute(ctx, trader, name, args, os.Stdout)
	}
	if errClose := trader.Close(); errClose != nil {
		logger.Error("failed to close trader", zap.Error(errClose))
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", name), zap.Error(err))
		os.Exit(1)
	}
}
