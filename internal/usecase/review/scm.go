package review

import (
	"context"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

// SCMClient is the source-control port the pipeline drives. GitHub and
// GitLab adapters implement it; tests use fakes.
type SCMClient interface {
	// PullRequest fetches the PR metadata (title, description, SHAs).
	PullRequest(ctx context.Context) (domain.PullRequest, error)

	// PullRequestDiff returns the whole PR as raw unified diff text.
	PullRequestDiff(ctx context.Context) (string, error)

	// CompareDiff returns the base...head range as raw unified diff text.
	CompareDiff(ctx context.Context, base, head string) (string, error)

	// BranchHeadSHA resolves a branch name to its head commit.
	BranchHeadSHA(ctx context.Context, branch string) (string, error)

	// ExistingComments lists review comments already on the PR.
	ExistingComments(ctx context.Context) ([]domain.Comment, error)

	// CreateReview submits all comments as one review. Implementations
	// without a batch API return domain.ErrBatchUnsupported.
	CreateReview(ctx context.Context, headSHA string, comments []domain.Comment) error

	// CreateComment posts a single review comment.
	CreateComment(ctx context.Context, headSHA string, comment domain.Comment) error
}
