package ci

import (
	"fmt"
	"net/url"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// ResolveRepo determines the repository owner and name for SCM calls.
// The checkout's origin remote is the most reliable source (it survives
// forks and mirror setups); DRONE_REPO_LINK and the plain
// DRONE_REPO_OWNER/DRONE_REPO_NAME variables are fallbacks.
func ResolveRepo(lookup func(string) string, workspace string) (owner, name string, err error) {
	if remote := originRemoteURL(workspace); remote != "" {
		if owner, name, err = ParseRepoSlug(remote); err == nil {
			return owner, name, nil
		}
	}

	if link := lookup("DRONE_REPO_LINK"); link != "" {
		if owner, name, err = ParseRepoSlug(link); err == nil {
			return owner, name, nil
		}
	}

	owner, name = lookup("DRONE_REPO_OWNER"), lookup("DRONE_REPO_NAME")
	if owner != "" && name != "" {
		return owner, name, nil
	}
	return "", "", fmt.Errorf("repository identity unresolvable: no usable origin remote, DRONE_REPO_LINK or DRONE_REPO_OWNER/DRONE_REPO_NAME")
}

// originRemoteURL reads the origin remote from the checkout. The .git
// directory is discovered upward from the workspace so the plugin also
// works when Drone mounts a subdirectory.
func originRemoteURL(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	repo, err := git.PlainOpenWithOptions(workspace, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return ""
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// ParseRepoSlug extracts owner and repository name from a remote URL.
// The last path segment (with a .git suffix trimmed) is the name; the
// joined preceding segments are the owner, which keeps nested GitLab
// namespaces like group/subgroup/repo intact.
func ParseRepoSlug(raw string) (owner, name string, err error) {
	path := remotePath(raw)

	segments := make([]string, 0, 4)
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", "", fmt.Errorf("cannot parse owner/repo from %q", raw)
	}

	name = strings.TrimSuffix(segments[len(segments)-1], ".git")
	owner = strings.Join(segments[:len(segments)-1], "/")
	if name == "" || owner == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from %q", raw)
	}
	return owner, name, nil
}

// remotePath returns the path portion of a remote URL, covering both
// real URLs (https://host/owner/repo.git) and the scp-like syntax
// (git@host:owner/repo.git) that has no scheme.
func remotePath(raw string) string {
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			return u.Path
		}
	}
	if at := strings.Index(raw, "@"); at >= 0 {
		if colon := strings.Index(raw[at:], ":"); colon >= 0 {
			return raw[at+colon+1:]
		}
	}
	// A bare owner/repo string.
	return raw
}
