// Package github implements the SCM port against the GitHub REST API
// using go-github. A custom API URL switches the client to a GitHub
// Enterprise instance.
package github

import (
	"context"
	"fmt"
	"net/url"
	"time"

	gogithub "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

const defaultTimeout = 30 * time.Second

// reviewSummaryBody heads the batched review submission.
const reviewSummaryBody = "AI Code Reviewer suggestions:"

// Client talks to one pull request of one repository.
type Client struct {
	api    *gogithub.Client
	owner  string
	repo   string
	number int
}

// New creates a Client authenticated with a personal access token or
// CI-provided installation token. apiURL is empty for github.com; for
// GitHub Enterprise it is the REST root, e.g. https://ghe.example.com/api/v3.
func New(token, apiURL, owner, repo string, number int) (*Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = defaultTimeout

	api := gogithub.NewClient(httpClient)
	if apiURL != "" {
		base, err := url.Parse(apiURL + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid SCM API URL %q: %w", apiURL, err)
		}
		api.BaseURL = base
	}

	return &Client{api: api, owner: owner, repo: repo, number: number}, nil
}

// PullRequest fetches the PR metadata. The API response is canonical
// for title and description; CI variables only approximate them.
func (c *Client) PullRequest(ctx context.Context) (domain.PullRequest, error) {
	pr, _, err := c.api.PullRequests.Get(ctx, c.owner, c.repo, c.number)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("fetching pull request #%d: %w", c.number, err)
	}

	return domain.PullRequest{
		Owner:        c.owner,
		Repo:         c.repo,
		Number:       c.number,
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		BaseSHA:      pr.GetBase().GetSHA(),
		HeadSHA:      pr.GetHead().GetSHA(),
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
	}, nil
}

// PullRequestDiff returns the whole PR as unified diff text via the
// .diff raw media type.
func (c *Client) PullRequestDiff(ctx context.Context) (string, error) {
	diff, _, err := c.api.PullRequests.GetRaw(ctx, c.owner, c.repo, c.number,
		gogithub.RawOptions{Type: gogithub.Diff})
	if err != nil {
		return "", fmt.Errorf("fetching diff for pull request #%d: %w", c.number, err)
	}
	return diff, nil
}

// CompareDiff returns the base...head range as unified diff text.
func (c *Client) CompareDiff(ctx context.Context, base, head string) (string, error) {
	diff, _, err := c.api.Repositories.CompareCommitsRaw(ctx, c.owner, c.repo, base, head,
		gogithub.RawOptions{Type: gogithub.Diff})
	if err != nil {
		return "", fmt.Errorf("comparing %s...%s: %w", base, head, err)
	}
	return diff, nil
}

// BranchHeadSHA resolves a branch name to its current head commit.
func (c *Client) BranchHeadSHA(ctx context.Context, branch string) (string, error) {
	ref, _, err := c.api.Git.GetRef(ctx, c.owner, c.repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("resolving head of branch %q: %w", branch, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// ExistingComments lists the review comments already on the PR, for
// duplicate suppression.
func (c *Client) ExistingComments(ctx context.Context) ([]domain.Comment, error) {
	opts := &gogithub.PullRequestListCommentsOptions{
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	var comments []domain.Comment
	for {
		page, resp, err := c.api.PullRequests.ListComments(ctx, c.owner, c.repo, c.number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments: %w", err)
		}
		for _, rc := range page {
			comments = append(comments, domain.Comment{
				Path: rc.GetPath(),
				Line: rc.GetLine(),
				Body: rc.GetBody(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

// CreateReview submits every comment of the run as one review with a
// short summary body. Lines are absolute new-file lines on the RIGHT
// side of the diff.
func (c *Client) CreateReview(ctx context.Context, headSHA string, comments []domain.Comment) error {
	drafts := make([]*gogithub.DraftReviewComment, 0, len(comments))
	for _, comment := range comments {
		drafts = append(drafts, &gogithub.DraftReviewComment{
			Path: gogithub.String(comment.Path),
			Line: gogithub.Int(comment.Line),
			Side: gogithub.String("RIGHT"),
			Body: gogithub.String(comment.Body),
		})
	}

	req := &gogithub.PullRequestReviewRequest{
		CommitID: gogithub.String(headSHA),
		Event:    gogithub.String("COMMENT"),
		Body:     gogithub.String(reviewSummaryBody),
		Comments: drafts,
	}
	if _, _, err := c.api.PullRequests.CreateReview(ctx, c.owner, c.repo, c.number, req); err != nil {
		return fmt.Errorf("creating review: %w", err)
	}
	return nil
}

// CreateComment posts one review comment, the fallback path when the
// batched review is rejected.
func (c *Client) CreateComment(ctx context.Context, headSHA string, comment domain.Comment) error {
	rc := &gogithub.PullRequestComment{
		CommitID: gogithub.String(headSHA),
		Path:     gogithub.String(comment.Path),
		Line:     gogithub.Int(comment.Line),
		Side:     gogithub.String("RIGHT"),
		Body:     gogithub.String(comment.Body),
	}
	if _, _, err := c.api.PullRequests.CreateComment(ctx, c.owner, c.repo, c.number, rc); err != nil {
		return fmt.Errorf("creating comment on %s:%d: %w", comment.Path, comment.Line, err)
	}
	return nil
}
