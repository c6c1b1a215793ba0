// Package gitlab implements the SCM port against the GitLab API using
// go-gitlab. Merge request changes come back as bare per-file patches,
// so the client synthesizes the git file headers the diff parser
// expects; comments post as individual discussions with a text
// position, which makes the per-comment path the primary one here.
package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gogitlab "github.com/xanzy/go-gitlab"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

// Client talks to one merge request of one project.
type Client struct {
	api     *gogitlab.Client
	project string
	number  int

	// Diff refs captured by PullRequest; CreateComment needs them to
	// build the text position.
	baseSHA  string
	startSHA string
}

// New creates a Client. apiURL is empty for gitlab.com; self-hosted
// instances pass their base URL (the /api/v4 suffix is added by the
// library when missing).
func New(token, apiURL, owner, repo string, number int) (*Client, error) {
	var opts []gogitlab.ClientOptionFunc
	if apiURL != "" {
		opts = append(opts, gogitlab.WithBaseURL(apiURL))
	}
	api, err := gogitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &Client{
		api:     api,
		project: url.PathEscape(owner + "/" + repo),
		number:  number,
	}, nil
}

// PullRequest fetches the merge request metadata and records its diff
// refs for later comment positioning.
func (c *Client) PullRequest(ctx context.Context) (domain.PullRequest, error) {
	mr, _, err := c.api.MergeRequests.GetMergeRequest(c.project, c.number, nil, gogitlab.WithContext(ctx))
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("fetching merge request !%d: %w", c.number, err)
	}

	pr := domain.PullRequest{
		Number:       c.number,
		Title:        mr.Title,
		Description:  mr.Description,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
	}
	if owner, repo, ok := strings.Cut(unescape(c.project), "/"); ok {
		pr.Owner, pr.Repo = owner, repo
	}
	pr.BaseSHA = mr.DiffRefs.BaseSha
	pr.HeadSHA = mr.DiffRefs.HeadSha
	pr.StartSHA = mr.DiffRefs.StartSha
	c.baseSHA, c.startSHA = mr.DiffRefs.BaseSha, mr.DiffRefs.StartSha
	return pr, nil
}

func unescape(project string) string {
	s, err := url.PathUnescape(project)
	if err != nil {
		return project
	}
	return s
}

// PullRequestDiff assembles unified diff text from the merge request
// changes.
func (c *Client) PullRequestDiff(ctx context.Context) (string, error) {
	mr, _, err := c.api.MergeRequests.GetMergeRequestChanges(c.project, c.number, nil, gogitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("fetching changes for merge request !%d: %w", c.number, err)
	}

	var b strings.Builder
	for _, change := range mr.Changes {
		writeFileDiff(&b, fileDiff{
			oldPath: change.OldPath,
			newPath: change.NewPath,
			patch:   change.Diff,
			added:   change.NewFile,
			deleted: change.DeletedFile,
			renamed: change.RenamedFile,
		})
	}
	return b.String(), nil
}

// CompareDiff assembles unified diff text for a commit range from the
// repository compare endpoint.
func (c *Client) CompareDiff(ctx context.Context, base, head string) (string, error) {
	compare, _, err := c.api.Repositories.Compare(c.project, &gogitlab.CompareOptions{
		From: gogitlab.Ptr(base),
		To:   gogitlab.Ptr(head),
	}, gogitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("comparing %s...%s: %w", base, head, err)
	}

	var b strings.Builder
	for _, d := range compare.Diffs {
		writeFileDiff(&b, fileDiff{
			oldPath: d.OldPath,
			newPath: d.NewPath,
			patch:   d.Diff,
			added:   d.NewFile,
			deleted: d.DeletedFile,
			renamed: d.RenamedFile,
		})
	}
	return b.String(), nil
}

// BranchHeadSHA resolves a branch name to its current head commit.
func (c *Client) BranchHeadSHA(ctx context.Context, branch string) (string, error) {
	b, _, err := c.api.Branches.GetBranch(c.project, branch, gogitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("resolving head of branch %q: %w", branch, err)
	}
	if b.Commit == nil {
		return "", fmt.Errorf("branch %q has no head commit", branch)
	}
	return b.Commit.ID, nil
}

// ExistingComments lists positioned notes from the merge request's
// discussions, for duplicate suppression.
func (c *Client) ExistingComments(ctx context.Context) ([]domain.Comment, error) {
	opts := &gogitlab.ListMergeRequestDiscussionsOptions{PerPage: 100}

	var comments []domain.Comment
	for {
		discussions, resp, err := c.api.Discussions.ListMergeRequestDiscussions(c.project, c.number, opts, gogitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing merge request discussions: %w", err)
		}
		for _, discussion := range discussions {
			for _, note := range discussion.Notes {
				if note.Position == nil || note.Position.NewLine == 0 {
					continue
				}
				comments = append(comments, domain.Comment{
					Path: note.Position.NewPath,
					Line: note.Position.NewLine,
					Body: note.Body,
				})
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

// CreateReview reports that GitLab has no batched review submission;
// the poster falls through to per-comment discussions.
func (c *Client) CreateReview(ctx context.Context, headSHA string, comments []domain.Comment) error {
	return domain.ErrBatchUnsupported
}

// CreateComment posts one comment as a merge request discussion with a
// text position on the new side of the diff.
func (c *Client) CreateComment(ctx context.Context, headSHA string, comment domain.Comment) error {
	if c.baseSHA == "" || c.startSHA == "" {
		return fmt.Errorf("diff refs unknown: merge request details were not fetched")
	}

	opts := &gogitlab.CreateMergeRequestDiscussionOptions{
		Body: gogitlab.Ptr(comment.Body),
		Position: &gogitlab.PositionOptions{
			PositionType: gogitlab.Ptr("text"),
			BaseSHA:      gogitlab.Ptr(c.baseSHA),
			StartSHA:     gogitlab.Ptr(c.startSHA),
			HeadSHA:      gogitlab.Ptr(headSHA),
			NewPath:      gogitlab.Ptr(comment.Path),
			NewLine:      gogitlab.Ptr(comment.Line),
		},
	}
	if _, _, err := c.api.Discussions.CreateMergeRequestDiscussion(c.project, c.number, opts, gogitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("creating discussion on %s:%d: %w", comment.Path, comment.Line, err)
	}
	return nil
}

// fileDiff is one file's patch plus the classification flags GitLab
// reports alongside it.
type fileDiff struct {
	oldPath string
	newPath string
	patch   string
	added   bool
	deleted bool
	renamed bool
}

// writeFileDiff prefixes a bare GitLab patch with the git file headers
// the unified diff parser keys on.
func writeFileDiff(b *strings.Builder, fd fileDiff) {
	if fd.patch == "" && !fd.renamed && !fd.added && !fd.deleted {
		return
	}

	fmt.Fprintf(b, "diff --git a/%s b/%s\n", fd.oldPath, fd.newPath)
	switch {
	case fd.added:
		b.WriteString("new file mode 100644\n")
		b.WriteString("--- /dev/null\n")
		fmt.Fprintf(b, "+++ b/%s\n", fd.newPath)
	case fd.deleted:
		b.WriteString("deleted file mode 100644\n")
		fmt.Fprintf(b, "--- a/%s\n", fd.oldPath)
		b.WriteString("+++ /dev/null\n")
	default:
		if fd.renamed {
			fmt.Fprintf(b, "rename from %s\n", fd.oldPath)
			fmt.Fprintf(b, "rename to %s\n", fd.newPath)
		}
		fmt.Fprintf(b, "--- a/%s\n", fd.oldPath)
		fmt.Fprintf(b, "+++ b/%s\n", fd.newPath)
	}

	b.WriteString(fd.patch)
	if fd.patch != "" && !strings.HasSuffix(fd.patch, "\n") {
		b.WriteByte('\n')
	}
}
