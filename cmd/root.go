package cmd

import (
	"codedoc/internal/config"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	providers   string
	logLevel    string
	logPretty   bool
	showMetrics bool
}

var flags globalFlags

func Run() {
	var command = &cobra.Command{
		Use:   "codedoc",
		Short: "Task orchestration engine for code documentation providers",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
		SilenceUsage: true,
	}

	pf := command.PersistentFlags()
	pf.StringVar(&flags.providers, "providers", "", "YAML providers file (embedded defaults when empty)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level, overrides LOG_LEVEL")
	pf.BoolVar(&flags.logPretty, "log-pretty", false, "Human readable logs, overrides LOG_PRETTY")
	pf.BoolVar(&flags.showMetrics, "metrics", false, "Print the metrics snapshot after the run")

	command.AddCommand(apiCmd())
	command.AddCommand(workerCmd())
	command.AddCommand(ingestCmd())
	command.AddCommand(queryCmd())
	command.AddCommand(generateCmd())
	command.AddCommand(prCmd())
	command.AddCommand(voiceCmd())
	command.AddCommand(enqueueCmd())
	command.AddCommand(statusCmd())

	if err := command.Execute(); err != nil {
		log.Fatal().Msgf("failed to execute command, err: %v", err.Error())
	}
}

// loadConfig reads the environment, applies the persistent flags and
// configures the global logger.
func loadConfig() *config.Config {
	cfg := config.Load()
	if flags.providers != "" {
		cfg.Engine.ProvidersFile = flags.providers
	}
	setupLogger(cfg.Log)
	return cfg
}

func setupLogger(c config.Log) {
	level, pretty := c.Level, c.Pretty
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	if flags.logPretty {
		pretty = true
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}
