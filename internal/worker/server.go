package worker

import (
	"codedoc/internal/app"
	"codedoc/internal/config"
	"codedoc/internal/infra/redisq"
	"codedoc/internal/usecase"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	ConsumerName string
	Concurrency  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// Run consumes the task stream until SIGINT/SIGTERM, running every claimed
// task through the engine.
func Run(appCfg *config.Config, cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.Load(appCfg.Engine)
	if err != nil {
		return err
	}

	cli := redisq.New(appCfg.Redis)
	defer cli.Close()
	if err := cli.Init(ctx); err != nil {
		return err
	}

	consumer := usecase.Consumer{
		Q:            cli,
		Tasks:        engine.Dispatcher,
		ConsumerName: cfg.ConsumerName,
		Workers:      firstPositive(cfg.Concurrency, appCfg.Worker.Concurrency),
		BaseBackoff:  firstPositiveDur(cfg.BaseBackoff, appCfg.Worker.BaseBackoff),
		MaxBackoff:   firstPositiveDur(cfg.MaxBackoff, appCfg.Worker.MaxBackoff),
		Block:        appCfg.Worker.Block,
	}

	log.Info().
		Str("consumer", consumer.ConsumerName).
		Int("workers", consumer.Workers).
		Str("stream", appCfg.Redis.StreamKey).
		Msg("worker started")

	err = consumer.Run(ctx)
	snap := engine.Metrics.Snapshot()
	log.Info().
		Int64("total_tasks", snap.TotalTasks).
		Int64("failed_tasks", snap.FailedTasks).
		Msg("worker stopped")

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveDur(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
