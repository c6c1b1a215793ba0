package review

import (
	"context"
	"errors"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

// PostResult summarizes one posting pass.
type PostResult struct {
	Posted     int
	Failed     int
	Duplicates int
}

// Poster submits review comments, skipping any that already exist on
// the pull request. Batched submission is attempted first; providers
// without a batch review API fall back to one request per comment, as
// do batches rejected by the provider.
type Poster struct {
	scm    SCMClient
	logger Logger
}

func NewPoster(scm SCMClient, logger Logger) *Poster {
	if logger == nil {
		logger = NopLogger()
	}
	return &Poster{scm: scm, logger: logger}
}

// Post submits comments against headSHA and reports how many landed.
func (p *Poster) Post(ctx context.Context, headSHA string, comments []domain.Comment) PostResult {
	var result PostResult
	if len(comments) == 0 {
		return result
	}

	fresh := p.dropDuplicates(ctx, comments, &result)
	if len(fresh) == 0 {
		p.logger.Info("all suggestions already posted", map[string]any{
			"duplicates": result.Duplicates,
		})
		return result
	}

	err := p.scm.CreateReview(ctx, headSHA, fresh)
	if err == nil {
		result.Posted = len(fresh)
		p.logger.Info("posted review", map[string]any{
			"comments":   result.Posted,
			"duplicates": result.Duplicates,
		})
		return result
	}

	if errors.Is(err, domain.ErrBatchUnsupported) {
		p.logger.Debug("provider has no batch review API, posting comments individually", nil)
	} else {
		p.logger.Warn("batched review failed, posting comments individually", map[string]any{
			"error": err.Error(),
		})
	}

	for _, c := range fresh {
		if err := p.scm.CreateComment(ctx, headSHA, c); err != nil {
			result.Failed++
			p.logger.Warn("failed to post comment", map[string]any{
				"path":  c.Path,
				"line":  c.Line,
				"error": err.Error(),
			})
			continue
		}
		result.Posted++
	}
	p.logger.Info("posted review comments", map[string]any{
		"comments":   result.Posted,
		"failed":     result.Failed,
		"duplicates": result.Duplicates,
	})
	return result
}

// dropDuplicates filters out comments already present on the pull
// request. If the existing comments cannot be fetched, dedup is
// skipped rather than blocking the run.
func (p *Poster) dropDuplicates(ctx context.Context, comments []domain.Comment, result *PostResult) []domain.Comment {
	existing, err := p.scm.ExistingComments(ctx)
	if err != nil {
		p.logger.Warn("could not list existing comments, skipping duplicate check", map[string]any{
			"error": err.Error(),
		})
		return comments
	}

	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c.Key()] = struct{}{}
	}

	fresh := comments[:0:0]
	for _, c := range comments {
		if _, dup := seen[c.Key()]; dup {
			result.Duplicates++
			p.logger.Debug("skipping duplicate comment", map[string]any{
				"path": c.Path,
				"line": c.Line,
			})
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}
