package ci

import (
	"testing"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

func gitInit(dir string) (*git.Repository, error) {
	return git.PlainInit(dir, false)
}

func addOrigin(repo *git.Repository, url string) error {
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})
	return err
}

func envLookup(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestBuild_OpenedPullRequest(t *testing.T) {
	bc := Build(envLookup(map[string]string{
		"DRONE_BUILD_EVENT":           "pull_request",
		"DRONE_PULL_REQUEST":          "42",
		"DRONE_COMMIT_SHA":            "feedface",
		"DRONE_PULL_REQUEST_BASE_SHA": "basebase",
		"DRONE_SOURCE_BRANCH":         "feature/x",
		"DRONE_TARGET_BRANCH":         "main",
		"DRONE_PULL_REQUEST_TITLE":    "Add x",
	}))

	assert.Equal(t, domain.EventOpened, bc.Event)
	assert.Equal(t, 42, bc.PRNumber)
	assert.Equal(t, "feedface", bc.HeadSHA)
	assert.Equal(t, "basebase", bc.BaseSHA)
	assert.Equal(t, "main", bc.TargetBranch)
	assert.Equal(t, "Add x", bc.Title)
	assert.False(t, bc.NeedsBaseSHA())
}

func TestBuild_OpenedWithoutBaseSHANeedsResolution(t *testing.T) {
	bc := Build(envLookup(map[string]string{
		"DRONE_BUILD_EVENT":   "pull_request",
		"DRONE_PULL_REQUEST":  "7",
		"DRONE_COMMIT":        "feedface",
		"DRONE_TARGET_BRANCH": "main",
	}))

	assert.Equal(t, domain.EventOpened, bc.Event)
	assert.True(t, bc.NeedsBaseSHA())
}

func TestBuild_SynchronizePush(t *testing.T) {
	bc := Build(envLookup(map[string]string{
		"DRONE_BUILD_EVENT":   "push",
		"DRONE_PULL_REQUEST":  "42",
		"DRONE_COMMIT_SHA":    "feedface",
		"DRONE_COMMIT_BEFORE": "cafe0001",
	}))

	assert.Equal(t, domain.EventSynchronize, bc.Event)
	assert.Equal(t, "cafe0001", bc.BaseSHA)
	assert.Equal(t, "feedface", bc.HeadSHA)
}

func TestBuild_SkipCases(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing head SHA",
			env: map[string]string{
				"DRONE_BUILD_EVENT":  "pull_request",
				"DRONE_PULL_REQUEST": "1",
			},
		},
		{
			name: "no PR number",
			env: map[string]string{
				"DRONE_BUILD_EVENT": "push",
				"DRONE_COMMIT_SHA":  "feedface",
			},
		},
		{
			name: "PR number not numeric",
			env: map[string]string{
				"DRONE_BUILD_EVENT":  "pull_request",
				"DRONE_PULL_REQUEST": "abc",
				"DRONE_COMMIT_SHA":   "feedface",
			},
		},
		{
			name: "tag build",
			env: map[string]string{
				"DRONE_BUILD_EVENT":  "tag",
				"DRONE_PULL_REQUEST": "1",
				"DRONE_COMMIT_SHA":   "feedface",
			},
		},
		{
			name: "push with zero base",
			env: map[string]string{
				"DRONE_BUILD_EVENT":   "push",
				"DRONE_PULL_REQUEST":  "1",
				"DRONE_COMMIT_SHA":    "feedface",
				"DRONE_COMMIT_BEFORE": "0000000000000000000000000000000000000000",
			},
		},
		{
			name: "push with missing base",
			env: map[string]string{
				"DRONE_BUILD_EVENT":  "push",
				"DRONE_PULL_REQUEST": "1",
				"DRONE_COMMIT_SHA":   "feedface",
			},
		},
		{
			name: "push where base equals head",
			env: map[string]string{
				"DRONE_BUILD_EVENT":   "push",
				"DRONE_PULL_REQUEST":  "1",
				"DRONE_COMMIT_SHA":    "feedface",
				"DRONE_COMMIT_BEFORE": "feedface",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := Build(envLookup(tt.env))
			assert.Equal(t, domain.EventNone, bc.Event)
			assert.NotEmpty(t, bc.SkipReason)
		})
	}
}

func TestParseRepoSlug(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{"https with .git", "https://github.com/acme/widgets.git", "acme", "widgets", false},
		{"https without .git", "https://github.com/acme/widgets", "acme", "widgets", false},
		{"ssh scp-like", "git@github.com:acme/widgets.git", "acme", "widgets", false},
		{"nested gitlab namespace", "https://gitlab.example.com/group/subgroup/widgets.git", "group/subgroup", "widgets", false},
		{"ssh url scheme", "ssh://git@gitlab.com/acme/widgets.git", "acme", "widgets", false},
		{"trailing slash", "https://github.com/acme/widgets/", "acme", "widgets", false},
		{"too few segments", "https://github.com/acme", "", "", true},
		{"empty", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, name, err := ParseRepoSlug(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestResolveRepo_Fallbacks(t *testing.T) {
	t.Run("repo link", func(t *testing.T) {
		owner, name, err := ResolveRepo(envLookup(map[string]string{
			"DRONE_REPO_LINK": "https://github.com/acme/widgets",
		}), t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "acme", owner)
		assert.Equal(t, "widgets", name)
	})

	t.Run("owner and name variables", func(t *testing.T) {
		owner, name, err := ResolveRepo(envLookup(map[string]string{
			"DRONE_REPO_OWNER": "acme",
			"DRONE_REPO_NAME":  "widgets",
		}), t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "acme", owner)
		assert.Equal(t, "widgets", name)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		_, _, err := ResolveRepo(envLookup(nil), t.TempDir())
		assert.Error(t, err)
	})
}

func TestResolveRepo_OriginRemote(t *testing.T) {
	dir := t.TempDir()
	repo, err := gitInit(dir)
	require.NoError(t, err)
	require.NoError(t, addOrigin(repo, "git@github.com:acme/widgets.git"))

	owner, name, err := ResolveRepo(envLookup(map[string]string{
		// The remote should win over the plain variables.
		"DRONE_REPO_OWNER": "wrong",
		"DRONE_REPO_NAME":  "wrong",
	}), dir)
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)
}
