package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/app"
	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/dialogue"
	"github.com/kapu/cashier-dialog-gen/internal/util"
)

func main() {
	count := flag.Int("count", 1, "number of dialogues to generate")
	modeFlag := flag.String("mode", string(dialogue.ModeTurnByTurn), "generation mode: turn, single or batch")
	batchSize := flag.Int("batch-size", constants.BatchConfig.DefaultSize, "dialogues per call in batch mode")
	flag.Parse()

	if *count < 1 {
		fmt.Fprintln(os.Stderr, "-count must be at least 1")
		os.Exit(2)
	}
	mode, err := dialogue.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Dialogue generator starting...",
		zap.String("provider", cfg.API.Provider),
		zap.String("model", cfg.API.Model),
		zap.String("mode", string(mode)),
		zap.Int("count", *count),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	gen, err := container.NewGenerator(mode, *batchSize)
	if err != nil {
		logger.Error("Failed to initialize generator", zap.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A first signal stops the run after the current call.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	summary := container.NewRunner(gen).Run(ctx, *count)
	fmt.Println(summary.String())

	if err := container.FlushMetrics(); err != nil {
		logger.Warn("Failed to write metrics textfile", zap.Error(err))
	}

	if summary.Succeeded == 0 {
		container.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
}
