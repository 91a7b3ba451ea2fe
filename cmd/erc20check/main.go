// Command erc20check runs the token transfer verification sequence against a
// local development node and reports per-case outcomes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pkg/errors"

	"github.com/meverselabs/erc20check/chainclient/ethrpc"
	"github.com/meverselabs/erc20check/config"
	"github.com/meverselabs/erc20check/harness"
)

func main() {
	cfgPath := flag.String("cfg", "./config.toml", "config file path")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))

	if err := run(context.Background(), logger, *cfgPath); err != nil {
		logger.Error("verification failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	mint, err := cfg.Mint()
	if err != nil {
		return err
	}
	token, err := cfg.Token()
	if err != nil {
		return err
	}

	cli, err := ethrpc.Dial(ctx, cfg.Endpoint, cfg.TokenArtifact)
	if err != nil {
		return err
	}
	defer cli.Close()
	logger.Debug("connected", "endpoint", cfg.Endpoint)

	h, err := harness.Setup(ctx, cli, harness.Options{Mint: mint, Token: token})
	if err != nil {
		return errors.Wrap(err, "setup")
	}
	logger.Info("fixture ready",
		"token", h.Token.Hex(),
		"owner", h.Owner.Hex(),
		"spender", h.Spender.Hex(),
		"minted", h.Minted.String(),
	)

	report, err := h.Run(ctx)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		if res.Passed() {
			logger.Info("case passed", "name", res.Name, "elapsed", res.Elapsed)
			continue
		}
		logger.Error("case failed", "name", res.Name, "err", res.Err)
		if res.Dump != "" {
			logger.Debug("fixture state at failure", "dump", res.Dump)
		}
	}
	if !report.OK() {
		return errors.Errorf("%d of %d cases failed", len(report.Failed()), len(report.Results))
	}
	logger.Info("all cases passed", "cases", len(report.Results))
	return nil
}
