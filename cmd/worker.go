package cmd

import (
	"codedoc/internal/worker"
	"time"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var (
		consumerName string
		concurrency  int
		baseBackoff  time.Duration
		maxBackoff   time.Duration
	)

	var command = &cobra.Command{
		Use:   "worker",
		Short: "Run tasks from the Redis stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			return worker.Run(cfg, worker.Config{
				ConsumerName: consumerName,
				Concurrency:  concurrency,
				BaseBackoff:  baseBackoff,
				MaxBackoff:   maxBackoff,
			})
		},
	}

	command.Flags().StringVar(&consumerName, "consumer", "worker-1", "Worker consumer name")
	command.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent consumers, overrides WORKER_CONCURRENCY")
	command.Flags().DurationVar(&baseBackoff, "base-backoff", 0, "Base claim backoff, overrides WORKER_BASE_BACKOFF")
	command.Flags().DurationVar(&maxBackoff, "max-backoff", 0, "Max claim backoff, overrides WORKER_MAX_BACKOFF")

	return command
}
