package cmd

import (
	"codedoc/internal/app"
	"codedoc/internal/domain"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// runTask submits one task to a freshly built engine and prints the
// terminal task. A FAILED task makes the command fail.
func runTask(typ domain.TaskType, payload domain.Payload, asJSON bool) (*domain.Task, error) {
	cfg := loadConfig()
	a, err := app.Load(cfg.Engine)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := a.Dispatcher
	task := d.Submit(ctx, d.NewTask("", typ, payload))

	if asJSON {
		if err := printJSON(task); err != nil {
			return task, err
		}
	} else {
		printTask(task)
	}
	if flags.showMetrics {
		printMetrics(a)
	}
	return task, domain.ErrorFromTask(task)
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func printTask(t *domain.Task) {
	header := fmt.Sprintf("%s %s %s (%dms, %d retries)", t.Type, t.ID, t.Status, t.Latency().Milliseconds(), t.RetryCount)
	if t.Status == domain.StatusCompleted {
		printStatus("✓", header, color.FgGreen)
		_ = printJSON(t.Result)
		return
	}
	printStatus("✗", header, color.FgRed)
	fmt.Printf("  %s: %s\n", color.YellowString(string(t.ErrorKind)), t.Error)
}

func printMetrics(a *app.App) {
	s := a.Metrics.Snapshot()
	fmt.Println()
	fmt.Println(color.CyanString("Metrics"))
	fmt.Printf("  total:        %d\n", s.TotalTasks)
	fmt.Printf("  successful:   %d\n", s.SuccessfulTasks)
	fmt.Printf("  failed:       %d\n", s.FailedTasks)
	fmt.Printf("  success rate: %.1f%%\n", s.SuccessRate*100)
	fmt.Printf("  avg latency:  %.1fms\n", s.AvgLatencyMs)
	fmt.Printf("  sla breaches: %d\n", s.SLABreaches)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ingestCmd() *cobra.Command {
	var repo, branch string
	var command = &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runTask(domain.TypeRepoIngest, domain.Payload{"repo_url": repo, "branch": branch}, false)
			return err
		},
	}
	command.Flags().StringVarP(&repo, "repo", "r", "", "Repository URL")
	command.Flags().StringVarP(&branch, "branch", "b", "main", "Branch to ingest")
	_ = command.MarkFlagRequired("repo")
	return command
}

func queryCmd() *cobra.Command {
	var repoID string
	var asJSON bool
	var command = &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question about a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := domain.Payload{"query": args[0]}
			if repoID != "" {
				payload["repo_id"] = repoID
			}
			_, err := runTask(domain.TypeUserQuery, payload, asJSON)
			return err
		},
	}
	command.Flags().StringVar(&repoID, "repo-id", "", "Repository id")
	command.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return command
}

func generateCmd() *cobra.Command {
	var docType, repoID, output string
	var command = &cobra.Command{
		Use:   "generate",
		Short: "Generate documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := domain.Payload{"doc_type": docType}
			if repoID != "" {
				payload["repo_id"] = repoID
			}
			task, err := runTask(domain.TypeGenerateDocs, payload, false)
			if err != nil || output == "" {
				return err
			}

			content, _ := task.Result["content"].(string)
			if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printStatus("✓", "Wrote "+output, color.FgGreen)
			return nil
		},
	}
	command.Flags().StringVarP(&docType, "type", "t", "onboarding", "Document type")
	command.Flags().StringVar(&repoID, "repo-id", "", "Repository id")
	command.Flags().StringVarP(&output, "output", "o", "", "Write the generated content to this file")
	return command
}

func prCmd() *cobra.Command {
	var number int
	var repo string
	var comment bool
	var command = &cobra.Command{
		Use:   "pr",
		Short: "Analyze a pull request",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runTask(domain.TypePRWebhook, domain.Payload{
				"pr_number":    number,
				"repo_url":     repo,
				"auto_comment": comment,
			}, false)
			return err
		},
	}
	command.Flags().IntVarP(&number, "number", "n", 0, "Pull request number")
	command.Flags().StringVarP(&repo, "repo", "r", "", "Repository URL")
	command.Flags().BoolVar(&comment, "comment", true, "Post the analysis as a PR comment")
	_ = command.MarkFlagRequired("number")
	_ = command.MarkFlagRequired("repo")
	return command
}

func voiceCmd() *cobra.Command {
	var audio string
	var command = &cobra.Command{
		Use:   "voice",
		Short: "Run a spoken command",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runTask(domain.TypeVoiceCommand, domain.Payload{"audio_path": audio}, false)
			return err
		},
	}
	command.Flags().StringVarP(&audio, "audio", "a", "", "Path to the audio file")
	_ = command.MarkFlagRequired("audio")
	return command
}
