package cmd

import (
	"codedoc/internal/app"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var asJSON bool
	var command = &cobra.Command{
		Use:   "status",
		Short: "Show registered providers and circuit state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			a, err := app.Load(cfg.Engine)
			if err != nil {
				return err
			}

			status := a.Status()
			if asJSON {
				return printJSON(status)
			}

			fmt.Println(color.CyanString("Providers"))
			for _, name := range status.Providers {
				printStatus("✓", name, color.FgGreen)
			}
			fmt.Println()
			fmt.Println(color.CyanString("Engine"))
			fmt.Printf("  breaker:  %d failures in %s, open for %s\n", cfg.Engine.BreakerThreshold, cfg.Engine.BreakerWindow, cfg.Engine.BreakerCooldown)
			fmt.Printf("  retry:    %d attempts, base %s\n", cfg.Engine.RetryMaxAttempts, cfg.Engine.RetryBackoffBase)
			fmt.Printf("  fan-out:  %d concurrent\n", cfg.Engine.FanoutLimit)
			for _, c := range status.Circuits {
				if c.Open {
					printStatus("⚠", fmt.Sprintf("circuit open for %s until %s", c.Provider, c.OpenUntil.Format("15:04:05")), color.FgYellow)
				}
			}
			return nil
		},
	}
	command.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return command
}
