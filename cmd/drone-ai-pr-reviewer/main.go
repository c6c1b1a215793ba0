package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/cli"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/llm/openai"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/observability"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/scm/github"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/scm/gitlab"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/ci"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/config"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/diff"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/filter"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/redaction"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/usecase/review"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/version"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	// Local development convenience; CI injects real env vars.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(cli.Dependencies{
		Run:       runPipeline,
		Version:   version.Value(),
		OutWriter: os.Stdout,
		ErrWriter: os.Stderr,
	})

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cli.ErrVersionRequested):
		return exitOK
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitInterrupted
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFailure
	}
}

// runPipeline wires the whole plugin together and executes one review.
func runPipeline(ctx context.Context) error {
	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := observability.New(settings.LogLevel, settings.LogFormat, os.Stderr)
	logger.Info("starting review", map[string]any{
		"provider": settings.LLMProvider,
		"model":    settings.LLMModel,
		"scm":      settings.SCMProvider,
	})

	build := ci.Build(os.Getenv)
	if build.Event == domain.EventNone {
		logger.Info("nothing to review", map[string]any{"reason": build.SkipReason})
		return nil
	}
	if build.Owner == "" || build.Repo == "" {
		owner, repo, err := ci.ResolveRepo(os.Getenv, build.Workspace)
		if err != nil {
			return fmt.Errorf("resolving repository identity: %w", err)
		}
		build.Owner, build.Repo = owner, repo
	}

	scm, err := newSCMClient(settings, build)
	if err != nil {
		return err
	}

	model, err := openai.New(settings)
	if err != nil {
		return fmt.Errorf("configuring LLM client: %w", err)
	}

	prompts, err := newPromptBuilder(settings)
	if err != nil {
		return err
	}

	var redactor review.Redactor
	if settings.RedactSecrets {
		redactor = redaction.NewEngine()
	}

	orchestrator := review.NewOrchestrator(review.Deps{
		SCM:      scm,
		Model:    model,
		Prompts:  prompts,
		Chunker:  diff.NewChunker(settings.MaxChunkTokens),
		Filter:   filter.New(settings.IncludePatterns, settings.ExcludePatterns),
		Redactor: redactor,
		Logger:   logger,
	})

	result, err := orchestrator.Run(ctx, build)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	logger.Info("review finished", map[string]any{"result": result.Summary()})
	return ctx.Err()
}

func newSCMClient(settings config.Settings, build ci.BuildContext) (review.SCMClient, error) {
	switch settings.SCMProvider {
	case config.SCMGitLab:
		return gitlab.New(settings.SCMToken, settings.SCMAPIURL, build.Owner, build.Repo, build.PRNumber)
	default:
		return github.New(settings.SCMToken, settings.SCMAPIURL, build.Owner, build.Repo, build.PRNumber)
	}
}

func newPromptBuilder(settings config.Settings) (*review.PromptBuilder, error) {
	text := review.DefaultPromptTemplate()
	if settings.PromptTemplateFile != "" {
		raw, err := os.ReadFile(settings.PromptTemplateFile)
		if err != nil {
			return nil, fmt.Errorf("reading prompt template %s: %w", settings.PromptTemplateFile, err)
		}
		text = string(raw)
	}
	builder, err := review.NewPromptBuilder(text)
	if err != nil {
		return nil, err
	}
	return builder, nil
}
