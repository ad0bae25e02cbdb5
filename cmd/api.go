package cmd

import (
	"codedoc/internal/api"
	"codedoc/internal/app"
	"codedoc/internal/infra/redisq"
	"codedoc/internal/usecase"
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start API server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if !cmd.Flags().Changed("port") {
				port = cfg.API.Port
			}

			a, err := app.Load(cfg.Engine)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to build engine")
			}

			var enq *usecase.Enqueuer
			if cfg.Redis.Enabled {
				cli := redisq.New(cfg.Redis)
				if err := cli.Connect(context.Background()); err != nil {
					log.Fatal().Err(err).Msg("redis unavailable")
				}
				defer cli.Close()
				enq = &usecase.Enqueuer{Q: cli}
				log.Info().Msgf("API server using stream: %s, group: %s", cfg.Redis.StreamKey, cfg.Redis.Group)
			}

			server := api.NewServer(a, enq)
			server.Run(port)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8000, "Port to run the server on")
	return command
}
