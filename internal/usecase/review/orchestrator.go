package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/llm"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/ci"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/diff"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/filter"
)

// Redactor scrubs secret material from text before it leaves the plugin.
type Redactor interface {
	Redact(text string) (string, int)
}

// Result summarizes one pipeline run.
type Result struct {
	Skipped     bool
	SkipReason  string
	Files       int
	Chunks      int
	Suggestions int
	Posted      int
	Failed      int
	Duplicates  int
	Redactions  int
}

// Orchestrator runs the review pipeline: fetch the diff, chunk it, ask
// the model about each chunk, and post the surviving suggestions.
type Orchestrator struct {
	scm      SCMClient
	model    llm.Completer
	prompts  *PromptBuilder
	chunker  *diff.Chunker
	filter   *filter.Filter
	redactor Redactor
	poster   *Poster
	logger   Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	SCM      SCMClient
	Model    llm.Completer
	Prompts  *PromptBuilder
	Chunker  *diff.Chunker
	Filter   *filter.Filter
	Redactor Redactor
	Poster   *Poster
	Logger   Logger
}

func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = NopLogger()
	}
	poster := deps.Poster
	if poster == nil {
		poster = NewPoster(deps.SCM, logger)
	}
	return &Orchestrator{
		scm:      deps.SCM,
		model:    deps.Model,
		prompts:  deps.Prompts,
		chunker:  deps.Chunker,
		filter:   deps.Filter,
		redactor: deps.Redactor,
		poster:   poster,
		logger:   logger,
	}
}

// Run executes the pipeline for one CI build. Fatal errors (wrapped in
// FatalError) mean the plugin should exit nonzero; a nil error with
// Result.Skipped set means there was nothing to review.
func (o *Orchestrator) Run(ctx context.Context, build ci.BuildContext) (Result, error) {
	if build.Event == domain.EventNone {
		o.logger.Info("nothing to review", map[string]any{"reason": build.SkipReason})
		return Result{Skipped: true, SkipReason: build.SkipReason}, nil
	}

	pr, err := o.loadPullRequest(ctx, build)
	if err != nil {
		return Result{}, err
	}

	startFields := map[string]any{
		"repo":   pr.Slug(),
		"number": pr.Number,
		"event":  string(build.Event),
	}
	if build.CommitLink != "" {
		startFields["commit_link"] = build.CommitLink
	}
	o.logger.Info("reviewing pull request", startFields)

	base, err := o.resolveBase(ctx, build, pr)
	if err != nil {
		return Result{}, err
	}

	rawDiff, err := o.fetchDiff(ctx, build, base)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(rawDiff) == "" {
		o.logger.Info("diff is empty, nothing to review", nil)
		return Result{Skipped: true, SkipReason: "empty diff"}, nil
	}

	files := o.parseAndFilter(rawDiff)
	if len(files) == 0 {
		o.logger.Info("no reviewable files after filtering", nil)
		return Result{Skipped: true, SkipReason: "no reviewable files"}, nil
	}

	result := Result{Files: len(files)}
	comments := o.reviewFiles(ctx, pr, files, &result)

	post := o.poster.Post(ctx, pr.HeadSHA, comments)
	result.Posted = post.Posted
	result.Failed = post.Failed
	result.Duplicates = post.Duplicates
	return result, ctx.Err()
}

// loadPullRequest fetches PR metadata from the SCM API. On synchronize
// builds a failed fetch degrades to the CI-provided metadata since the
// diff comes from commit comparison anyway; on opened builds the API
// data is required.
func (o *Orchestrator) loadPullRequest(ctx context.Context, build ci.BuildContext) (domain.PullRequest, error) {
	pr, err := o.scm.PullRequest(ctx)
	if err != nil {
		if build.Event == domain.EventSynchronize {
			o.logger.Warn("could not fetch pull request details, using CI metadata", map[string]any{
				"error": err.Error(),
			})
			return domain.PullRequest{
				Owner:        build.Owner,
				Repo:         build.Repo,
				Number:       build.PRNumber,
				Title:        build.Title,
				HeadSHA:      build.HeadSHA,
				BaseSHA:      build.BaseSHA,
				SourceBranch: build.SourceBranch,
				TargetBranch: build.TargetBranch,
			}, nil
		}
		return domain.PullRequest{}, Fatal("fetching pull request %d: %v", build.PRNumber, err)
	}
	if pr.HeadSHA == "" {
		pr.HeadSHA = build.HeadSHA
	}
	return pr, nil
}

// resolveBase determines the base commit for the review diff. Opened
// builds that carry no base SHA resolve the target branch head; a build
// that cannot determine its base cannot compute a diff, so that is
// fatal.
func (o *Orchestrator) resolveBase(ctx context.Context, build ci.BuildContext, pr domain.PullRequest) (string, error) {
	if !build.NeedsBaseSHA() {
		return build.BaseSHA, nil
	}
	if pr.BaseSHA != "" {
		return pr.BaseSHA, nil
	}
	branch := pr.TargetBranch
	if branch == "" {
		branch = build.TargetBranch
	}
	if branch == "" {
		return "", Fatal("cannot determine base commit: no base SHA and no target branch")
	}
	sha, err := o.scm.BranchHeadSHA(ctx, branch)
	if err != nil {
		return "", Fatal("resolving head of %s: %v", branch, err)
	}
	o.logger.Debug("resolved base commit from target branch", map[string]any{
		"branch": branch,
		"sha":    sha,
	})
	return sha, nil
}

// fetchDiff pulls the raw unified diff to review. Opened builds review
// the whole PR; synchronize builds review only the pushed range.
func (o *Orchestrator) fetchDiff(ctx context.Context, build ci.BuildContext, base string) (string, error) {
	switch build.Event {
	case domain.EventSynchronize:
		text, err := o.scm.CompareDiff(ctx, base, build.HeadSHA)
		if err != nil {
			return "", Fatal("comparing %s...%s: %v", base, build.HeadSHA, err)
		}
		return text, nil
	default:
		text, err := o.scm.PullRequestDiff(ctx)
		if err != nil {
			return "", Fatal("fetching pull request diff: %v", err)
		}
		return text, nil
	}
}

// parseAndFilter turns the raw diff into the list of files worth
// reviewing.
func (o *Orchestrator) parseAndFilter(rawDiff string) []diff.File {
	parsed := diff.Parse(rawDiff)
	for _, skip := range parsed.Skipped {
		o.logger.Warn("skipping unparseable diff entry", map[string]any{
			"path":   skip.Path,
			"reason": skip.Reason,
		})
	}

	var files []diff.File
	for _, f := range parsed.Files {
		if f.Status == diff.StatusDeleted {
			o.logger.Debug("skipping deleted file", map[string]any{"path": f.Path})
			continue
		}
		if len(f.Hunks) == 0 {
			continue
		}
		if o.filter != nil && !o.filter.Keep(f.Path) {
			o.logger.Debug("excluded by path filter", map[string]any{"path": f.Path})
			continue
		}
		files = append(files, f)
	}
	return files
}

// reviewFiles runs the model over every chunk of every file and maps the
// returned suggestions to absolute lines. Per-chunk failures are logged
// and skipped; only context cancellation stops the loop.
func (o *Orchestrator) reviewFiles(ctx context.Context, pr domain.PullRequest, files []diff.File, result *Result) []domain.Comment {
	title, desc := o.promptMetadata(pr, result)

	var comments []domain.Comment
	for _, file := range files {
		for _, chunk := range o.chunker.Split(file) {
			if ctx.Err() != nil {
				return comments
			}
			result.Chunks++
			comments = append(comments, o.reviewChunk(ctx, chunk, title, desc, result)...)
		}
	}
	return comments
}

// promptMetadata prepares the PR title and description for inclusion in
// prompts, redacting both.
func (o *Orchestrator) promptMetadata(pr domain.PullRequest, result *Result) (title, description string) {
	title = pr.Title
	description = pr.Description
	if description == "" {
		description = "N/A"
	}
	if o.redactor != nil {
		var n int
		title, n = o.redactor.Redact(title)
		result.Redactions += n
		description, n = o.redactor.Redact(description)
		result.Redactions += n
	}
	return title, description
}

// reviewChunk asks the model about one chunk and converts valid
// suggestions into postable comments.
func (o *Orchestrator) reviewChunk(ctx context.Context, chunk diff.Chunk, title, description string, result *Result) []domain.Comment {
	body := chunk.Body
	if o.redactor != nil {
		var n int
		body, n = o.redactor.Redact(body)
		result.Redactions += n
	}

	prompt, err := o.prompts.Render(PromptData{
		FilePath:      chunk.Path,
		PRTitle:       title,
		PRDescription: description,
		DiffChunk:     body,
	})
	if err != nil {
		o.logger.Warn("skipping chunk, prompt render failed", map[string]any{
			"path":  chunk.Path,
			"error": err.Error(),
		})
		return nil
	}

	raw, err := o.model.Complete(ctx, llm.Request{System: prompt, User: userInstruction})
	if err != nil {
		o.logger.Warn("skipping chunk, model request failed", map[string]any{
			"path":  chunk.Path,
			"error": err.Error(),
		})
		return nil
	}

	suggestions, malformed, err := DecodeSuggestions(raw)
	if err != nil {
		o.logger.Warn("skipping chunk, unparseable model response", map[string]any{
			"path":  chunk.Path,
			"error": err.Error(),
		})
		return nil
	}
	if malformed > 0 {
		o.logger.Warn("dropped malformed suggestions", map[string]any{
			"path":  chunk.Path,
			"count": malformed,
		})
	}

	var comments []domain.Comment
	for _, s := range suggestions {
		result.Suggestions++
		line, ok := chunk.LineMap[s.Line]
		if !ok {
			o.logger.Warn("discarding suggestion on unmapped line", map[string]any{
				"path": chunk.Path,
				"line": s.Line,
			})
			continue
		}
		comments = append(comments, domain.Comment{
			Path: chunk.Path,
			Line: line,
			Body: s.Comment,
		})
	}
	o.logger.Debug("reviewed chunk", map[string]any{
		"path":        chunk.Path,
		"suggestions": len(suggestions),
		"postable":    len(comments),
	})
	return comments
}

// Summary renders a one-line human description of the run for the final
// log record.
func (r Result) Summary() string {
	if r.Skipped {
		return fmt.Sprintf("skipped: %s", r.SkipReason)
	}
	return fmt.Sprintf("%d files, %d chunks, %d suggestions, %d posted (%d duplicate, %d failed)",
		r.Files, r.Chunks, r.Suggestions, r.Posted, r.Duplicates, r.Failed)
}
