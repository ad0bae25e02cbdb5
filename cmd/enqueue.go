package cmd

import (
	"codedoc/internal/domain"
	"codedoc/internal/infra/redisq"
	"codedoc/internal/usecase"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func enqueueCmd() *cobra.Command {
	var (
		id      string
		typ     string
		payload []string
	)

	var command = &cobra.Command{
		Use:   "enqueue",
		Short: "Publish a task to the Redis stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePayload(payload)
			if err != nil {
				return err
			}

			cfg := loadConfig()
			cli := redisq.New(cfg.Redis)
			defer cli.Close()
			if err := cli.Connect(cmd.Context()); err != nil {
				return err
			}

			enq := usecase.Enqueuer{Q: cli}
			taskID, err := enq.Now(cmd.Context(), domain.Task{ID: id, Type: domain.TaskType(strings.ToUpper(typ)), Payload: p})
			if err != nil {
				return err
			}
			printStatus("✓", fmt.Sprintf("Enqueued %s on %s", taskID, cfg.Redis.StreamKey), color.FgGreen)
			return nil
		},
	}

	command.Flags().StringVar(&id, "id", "", "Task id (generated when empty)")
	command.Flags().StringVarP(&typ, "type", "t", "", "Task type, e.g. USER_QUERY")
	command.Flags().StringArrayVarP(&payload, "payload", "p", nil, "Payload entry key=value, repeatable")
	_ = command.MarkFlagRequired("type")
	return command
}

// parsePayload turns key=value pairs into a payload. Integers and booleans
// keep their type.
func parsePayload(pairs []string) (domain.Payload, error) {
	p := domain.Payload{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid payload entry %q, want key=value", pair)
		}
		if n, err := strconv.Atoi(v); err == nil {
			p[k] = n
		} else if b, err := strconv.ParseBool(v); err == nil {
			p[k] = b
		} else {
			p[k] = v
		}
	}
	return p, nil
}
