// Package ci derives the build context from DRONE_ environment
// variables: what kind of pull-request activity triggered the build,
// which commit range to review, and which repository it belongs to.
package ci

import (
	"strconv"
	"strings"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

// zeroSHA is what Drone reports as DRONE_COMMIT_BEFORE on the first
// push to a branch.
const zeroSHA = "0000000000000000000000000000000000000000"

// BuildContext is everything the pipeline needs to know about the CI
// run. Event is EventNone when the build carries nothing to review, with
// SkipReason saying why.
type BuildContext struct {
	Event      domain.Event
	SkipReason string

	PRNumber int
	HeadSHA  string
	BaseSHA  string

	SourceBranch string
	TargetBranch string

	Owner string
	Repo  string

	// Title is the CI-provided PR title. The SCM API value, when
	// fetchable, supersedes it.
	Title      string
	CommitLink string
	Workspace  string
}

// NeedsBaseSHA reports whether the base commit still has to be resolved
// from the SCM API. Drone omits DRONE_PULL_REQUEST_BASE_SHA on some
// opened-PR builds; the target branch head stands in for it.
func (b BuildContext) NeedsBaseSHA() bool {
	return b.Event == domain.EventOpened && b.BaseSHA == ""
}

// Build classifies the run from the environment. lookup is os.Getenv in
// production and a map lookup in tests.
func Build(lookup func(string) string) BuildContext {
	bc := BuildContext{
		SourceBranch: lookup("DRONE_SOURCE_BRANCH"),
		TargetBranch: lookup("DRONE_TARGET_BRANCH"),
		Title:        lookup("DRONE_PULL_REQUEST_TITLE"),
		CommitLink:   lookup("DRONE_COMMIT_LINK"),
		Workspace:    lookup("DRONE_WORKSPACE"),
	}

	bc.HeadSHA = firstNonEmpty(
		lookup("DRONE_COMMIT_SHA"),
		lookup("DRONE_COMMIT"),
		lookup("DRONE_COMMIT_AFTER"),
	)
	if bc.HeadSHA == "" {
		return bc.skip("head SHA not provided by CI")
	}

	prNumber, err := strconv.Atoi(strings.TrimSpace(lookup("DRONE_PULL_REQUEST")))
	if err != nil || prNumber <= 0 {
		return bc.skip("not a pull request build")
	}
	bc.PRNumber = prNumber

	switch lookup("DRONE_BUILD_EVENT") {
	case "pull_request":
		bc.Event = domain.EventOpened
		// May stay empty; NeedsBaseSHA covers the API fallback.
		bc.BaseSHA = lookup("DRONE_PULL_REQUEST_BASE_SHA")
	case "push":
		bc.Event = domain.EventSynchronize
		bc.BaseSHA = lookup("DRONE_COMMIT_BEFORE")
		if bc.BaseSHA == "" || bc.BaseSHA == zeroSHA {
			return bc.skip("no previous commit to diff against")
		}
		if bc.BaseSHA == bc.HeadSHA {
			return bc.skip("base and head are the same commit")
		}
	default:
		return bc.skip("build event is not a pull request update")
	}

	return bc
}

func (b BuildContext) skip(reason string) BuildContext {
	b.Event = domain.EventNone
	b.SkipReason = reason
	b.PRNumber = 0
	b.BaseSHA = ""
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
