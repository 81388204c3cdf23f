package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/dialogue"
	"github.com/kapu/cashier-dialog-gen/internal/llm"
	"github.com/kapu/cashier-dialog-gen/internal/menu"
	"github.com/kapu/cashier-dialog-gen/internal/metrics"
	"github.com/kapu/cashier-dialog-gen/internal/order"
	"github.com/kapu/cashier-dialog-gen/internal/profile"
	"github.com/kapu/cashier-dialog-gen/internal/prompt"
	"github.com/kapu/cashier-dialog-gen/internal/runner"
	"github.com/kapu/cashier-dialog-gen/internal/storage"
	"github.com/kapu/cashier-dialog-gen/internal/validation"
)

// Container bundles the assembled services of one generation run.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Menu    *menu.Index
	Writer  *storage.Writer

	deps    dialogue.Deps
	closers []func()
}

// NewGenerator builds the strategy for mode on top of the shared services.
func (c *Container) NewGenerator(mode dialogue.Mode, batchSize int) (dialogue.Generator, error) {
	if c == nil || c.deps.Completer == nil {
		return nil, fmt.Errorf("generation dependencies not initialized")
	}
	return dialogue.New(mode, c.deps, c.Config.Pipeline.MaxTurns, batchSize)
}

// NewRunner wires gen to the storage fan-out and metrics.
func (c *Container) NewRunner(gen dialogue.Generator) *runner.Runner {
	return runner.New(gen, c.Writer, c.Metrics, c.Logger)
}

// FlushMetrics writes the metrics textfile when one is configured.
func (c *Container) FlushMetrics() error {
	if c.Config.Metrics.File == "" {
		return nil
	}
	return c.Metrics.WriteToTextfile(c.Config.Metrics.File)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles provider, menu, prompts and storage. Optional sinks (Redis,
// PostgreSQL, S3) are only connected when configured, and a failure to reach
// one of them fails the build.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	m := metrics.New()

	// Completion stack
	provider, err := llm.NewProvider(ctx, cfg.API, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}
	delay := cfg.API.DelayAfterCall
	if !cfg.API.RateLimited() {
		delay = 0
	}
	completer := llm.NewClient(provider, delay, logger, llm.WithObserver(m))

	// Menu
	menus := menu.NewCache(menu.NewLoader(logger), logger)
	idx, err := menus.Get(cfg.Pipeline.MenuPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}

	phrases, err := dialogue.LoadPhraseBook()
	if err != nil {
		return nil, fmt.Errorf("failed to load phrase book: %w", err)
	}
	prompts := prompt.NewPromptBuilder()

	// Storage
	files, err := storage.NewFileStore(cfg.Pipeline.DialogsDir, cfg.Pipeline.RegProfilesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	sinks := []storage.Sink{files}
	var seq storage.Sequence = files

	if cfg.Redis.Enabled {
		redisStore, err := storage.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		closers = append(closers, func() {
			_ = redisStore.Close()
		})
		if err := redisStore.EnsureFloor(ctx, files.MaxID()); err != nil {
			return nil, fmt.Errorf("failed to align dialog id sequence: %w", err)
		}
		sinks = append(sinks, redisStore)
		seq = redisStore
	}

	if cfg.Postgres.Enabled {
		pg, err := storage.OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		closers = append(closers, func() {
			_ = pg.Close()
		})
		sinks = append(sinks, pg)
	}

	if cfg.S3.Enabled() {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		sinks = append(sinks, s3Store)
	}

	writer := storage.NewWriter(seq, sinks, logger)

	logger.Info("Services assembled",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.API.Model),
		zap.Int("menu_items", idx.Len()),
		zap.Strings("sinks", writer.Sinks()),
	)

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Menu:    idx,
		Writer:  writer,
		deps: dialogue.Deps{
			Completer: completer,
			Menu:      idx,
			Sampler:   profile.NewSampler(cfg.Pipeline.Seed),
			Prompts:   prompts,
			Phrases:   phrases,
			Extractor: order.NewExtractor(completer, idx, prompts, logger),
			Validator: validation.NewValidator(idx, cfg.Pipeline.CalorieThreshold, logger),
			Logger:    logger,
		},
		closers: closers,
	}, nil
}
