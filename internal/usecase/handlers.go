package usecase

import (
	"codedoc/internal/capability"
	"codedoc/internal/domain"
	"codedoc/internal/ports"
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// checkpoint is the cooperative cancellation point between stages.
func checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s stage: %w", stage, err)
	}
	return nil
}

func (d *Dispatcher) require(name string) error {
	if !d.engine.Registry.Has(name) {
		return fmt.Errorf("%w: %s", domain.ErrAgentNotFound, name)
	}
	return nil
}

// handleRepoIngest runs intake -> parser fan-out -> indexer -> summarizer.
// Unregistered stages are skipped; only sequential stages can fail the task.
func (d *Dispatcher) handleRepoIngest(ctx context.Context, t *domain.Task) (domain.Result, error) {
	repoURL, err := requireString(t.Payload, "repo_url")
	if err != nil {
		return nil, err
	}
	branch := stringFieldOr(t.Payload, "branch", "main")
	reg := d.engine.Registry
	results := map[string]any{}

	var intake ports.Output
	if reg.Has(capability.Intake) {
		intake, err = reg.Invoke(ctx, capability.Intake, capability.OpFetchRepo, ports.Input{
			"repo_url": repoURL,
			"branch":   branch,
		})
		if err != nil {
			return nil, fmt.Errorf("intake stage: %w", err)
		}
		results["intake"] = intake
	}

	var parsed ports.Output
	if reg.Has(capability.Parser) && intake != nil {
		if err := checkpoint(ctx, "parser"); err != nil {
			return nil, err
		}
		files := fileInputs(intake["files"], d.engine.IngestFileLimit)
		summary := FanOut(ctx, d.engine.FanoutLimit, files, func(ctx context.Context, in ports.Input) error {
			_, err := reg.Invoke(ctx, capability.Parser, capability.OpParseFile, in)
			return err
		})
		if perr := summary.Err("parser"); perr != nil {
			log.Ctx(ctx).Warn().Err(perr).Msg("partial fan-out failure")
		}
		parsed = ports.Output{
			"parsed_files": summary.Succeeded,
			"errors":       summary.Failed,
		}
		results["parser"] = parsed
	}

	if reg.Has(capability.Indexer) {
		if err := checkpoint(ctx, "indexer"); err != nil {
			return nil, err
		}
		out, err := reg.Invoke(ctx, capability.Indexer, capability.OpIndexChunks, ports.Input{
			"parsed_data": map[string]any(parsed),
		})
		if err != nil {
			return nil, fmt.Errorf("indexer stage: %w", err)
		}
		results["indexer"] = out
	}

	if reg.Has(capability.Summarizer) {
		if err := checkpoint(ctx, "summarizer"); err != nil {
			return nil, err
		}
		out, err := reg.Invoke(ctx, capability.Summarizer, capability.OpGenerateOverview, ports.Input{
			"repo_url": repoURL,
		})
		if err != nil {
			return nil, fmt.Errorf("summarizer stage: %w", err)
		}
		results["summarizer"] = out
	}

	return domain.Result{
		"status":   "completed",
		"repo_url": repoURL,
		"branch":   branch,
		"results":  results,
	}, nil
}

func (d *Dispatcher) handleUserQuery(ctx context.Context, t *domain.Task) (domain.Result, error) {
	if err := d.require(capability.QA); err != nil {
		return nil, err
	}
	query, err := requireString(t.Payload, "query")
	if err != nil {
		return nil, err
	}

	out, err := d.engine.SLA.Observe(ctx, domain.TypeUserQuery, capability.QA, func() (ports.Output, error) {
		return d.engine.Registry.Invoke(ctx, capability.QA, capability.OpAnswerQuestion, ports.Input{
			"question": query,
			"repo_id":  t.Payload["repo_id"],
		})
	})
	if err != nil {
		return nil, err
	}
	return domain.Result(out), nil
}

func (d *Dispatcher) handlePRWebhook(ctx context.Context, t *domain.Task) (domain.Result, error) {
	if err := d.require(capability.Change); err != nil {
		return nil, err
	}
	reg := d.engine.Registry

	analysis, err := d.engine.SLA.Observe(ctx, domain.TypePRWebhook, capability.Change, func() (ports.Output, error) {
		return reg.Invoke(ctx, capability.Change, capability.OpAnalyzePR, ports.Input{
			"pr_number": t.Payload["pr_number"],
			"repo_url":  t.Payload["repo_url"],
		})
	})
	if err != nil {
		return nil, err
	}

	result := domain.Result{}
	for k, v := range analysis {
		result[k] = v
	}

	if boolFieldOr(t.Payload, "auto_comment", true) && reg.Has(capability.GitHub) {
		if err := checkpoint(ctx, "comment"); err != nil {
			return nil, err
		}
		comment, err := reg.Invoke(ctx, capability.GitHub, capability.OpPostPRComment, ports.Input{
			"pr_number": t.Payload["pr_number"],
			"repo_url":  t.Payload["repo_url"],
			"analysis":  map[string]any(analysis),
		})
		if err != nil {
			return nil, fmt.Errorf("comment stage: %w", err)
		}
		result["comment"] = comment
	}
	return result, nil
}

func (d *Dispatcher) handleGenerateDocs(ctx context.Context, t *domain.Task) (domain.Result, error) {
	if err := d.require(capability.Summarizer); err != nil {
		return nil, err
	}
	out, err := d.engine.Registry.Invoke(ctx, capability.Summarizer, capability.OpGenerateDocs, ports.Input{
		"doc_type": stringFieldOr(t.Payload, "doc_type", "onboarding"),
		"repo_id":  t.Payload["repo_id"],
	})
	if err != nil {
		return nil, err
	}
	return domain.Result(out), nil
}

// Ingest intent: any inflection of index/ingest, or add as a whole word
// with its common endings ("address" stays a query).
var (
	ingestPrefixes = []string{"index", "ingest"}
	ingestWords    = map[string]bool{"add": true, "adds": true, "added": true, "adding": true}
)

// handleVoiceCommand transcribes audio, picks an intent by keyword and
// submits the derived task through the dispatcher.
func (d *Dispatcher) handleVoiceCommand(ctx context.Context, t *domain.Task) (domain.Result, error) {
	if err := d.require(capability.Transcriber); err != nil {
		return nil, err
	}
	audioPath, err := requireString(t.Payload, "audio_path")
	if err != nil {
		return nil, err
	}

	out, err := d.engine.Registry.Invoke(ctx, capability.Transcriber, capability.OpTranscribe, ports.Input{
		"audio_path": audioPath,
	})
	if err != nil {
		return nil, err
	}
	text := stringField(out, "text")

	if err := checkpoint(ctx, "dispatch"); err != nil {
		return nil, err
	}

	var derived *domain.Task
	intent := "query"
	if hasIngestKeyword(text) {
		intent = "ingest"
		derived = d.NewTask(t.ID+"-ingest", domain.TypeRepoIngest, domain.Payload{
			"repo_url": extractRepoURL(text),
		})
	} else {
		derived = d.NewTask(t.ID+"-query", domain.TypeUserQuery, domain.Payload{
			"query":   text,
			"repo_id": t.Payload["repo_id"],
		})
	}

	log.Ctx(ctx).Info().Str("intent", intent).Str("derived_task_id", derived.ID).Msg("voice command routed")
	done := d.Submit(ctx, derived)
	if err := domain.ErrorFromTask(done); err != nil {
		return nil, err
	}

	return domain.Result{
		"transcription": text,
		"intent":        intent,
		"task_id":       done.ID,
		"result":        map[string]any(done.Result),
	}, nil
}

func hasIngestKeyword(text string) bool {
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if ingestWords[word] {
			return true
		}
		for _, prefix := range ingestPrefixes {
			if strings.HasPrefix(word, prefix) {
				return true
			}
		}
	}
	return false
}

// extractRepoURL returns the first http(s) or github.com token, or "".
func extractRepoURL(text string) string {
	for _, word := range strings.Fields(text) {
		word = strings.TrimRight(strings.TrimLeft(word, "\"'<(["), "\"'>)].,;:!?")
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
			return word
		case strings.HasPrefix(lower, "github.com/"):
			return "https://" + word
		}
	}
	return ""
}
