package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrBatchUnsupported is returned by SCM clients whose API has no
// single-submission review; the poster then posts comments one by one.
var ErrBatchUnsupported = errors.New("batched review submission not supported")

// Event classifies the pull-request activity that triggered a build.
type Event string

const (
	// EventOpened covers a freshly opened (or reopened) pull request; the
	// whole PR diff is reviewed.
	EventOpened Event = "opened"
	// EventSynchronize covers new commits pushed to an existing pull
	// request; only the base...head range is reviewed.
	EventSynchronize Event = "synchronize"
	// EventNone marks builds that carry nothing to review.
	EventNone Event = ""
)

// PullRequest is the reviewable unit as known to the SCM host.
type PullRequest struct {
	Owner       string
	Repo        string
	Number      int
	Title       string
	Description string
	BaseSHA     string
	HeadSHA     string
	// StartSHA is the merge-base recorded in the host's diff refs. Only
	// GitLab requires it for positioning comments; empty elsewhere.
	StartSHA string

	SourceBranch string
	TargetBranch string
}

// Slug returns the owner/repo form used in log output.
func (p PullRequest) Slug() string {
	return p.Owner + "/" + p.Repo
}

// Suggestion is a single review item as decoded from LLM output. Line is
// chunk relative and must be resolved against the chunk's line map before
// it can be posted.
type Suggestion struct {
	Line    int
	Comment string
}

// Comment is a review comment ready for posting: an absolute line in the
// new version of the file plus the body text.
type Comment struct {
	Path string
	Line int
	Body string
}

// Key returns a deterministic identity for duplicate suppression.
func (c Comment) Key() string {
	payload := fmt.Sprintf("%s|%d|%s", c.Path, c.Line, strings.TrimSpace(c.Body))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
