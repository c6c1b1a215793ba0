package gitlab_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/adapter/scm/gitlab"
	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *gitlab.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gitlab.New("test-token", server.URL, "octo", "app", 7)
	require.NoError(t, err)
	return client
}

func TestPullRequestRecordsDiffRefs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/merge_requests/7"), r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("PRIVATE-TOKEN"))
		fmt.Fprint(w, `{
			"title": "Add rate limiting",
			"description": "Limits requests per client.",
			"source_branch": "feature/limits",
			"target_branch": "main",
			"diff_refs": {"base_sha": "base-sha", "head_sha": "head-sha", "start_sha": "start-sha"}
		}`)
	}))

	pr, err := client.PullRequest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Add rate limiting", pr.Title)
	assert.Equal(t, "octo", pr.Owner)
	assert.Equal(t, "app", pr.Repo)
	assert.Equal(t, "base-sha", pr.BaseSHA)
	assert.Equal(t, "head-sha", pr.HeadSHA)
	assert.Equal(t, "start-sha", pr.StartSHA)
	assert.Equal(t, "main", pr.TargetBranch)
}

func TestPullRequestDiffSynthesizesGitHeaders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/merge_requests/7/changes"), r.URL.Path)
		fmt.Fprint(w, `{
			"changes": [
				{
					"old_path": "app.py", "new_path": "app.py",
					"diff": "@@ -1,2 +1,3 @@\n import os\n+import json\n def main():\n"
				},
				{
					"old_path": "new.py", "new_path": "new.py", "new_file": true,
					"diff": "@@ -0,0 +1,1 @@\n+print(1)\n"
				},
				{
					"old_path": "old_name.py", "new_path": "new_name.py", "renamed_file": true,
					"diff": ""
				}
			]
		}`)
	}))

	diff, err := client.PullRequestDiff(context.Background())
	require.NoError(t, err)

	assert.Contains(t, diff, "diff --git a/app.py b/app.py\n--- a/app.py\n+++ b/app.py\n@@ -1,2 +1,3 @@")
	assert.Contains(t, diff, "diff --git a/new.py b/new.py\nnew file mode 100644\n--- /dev/null\n+++ b/new.py")
	assert.Contains(t, diff, "rename from old_name.py\nrename to new_name.py")
}

func TestCompareDiff(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/repository/compare"), r.URL.Path)
		assert.Equal(t, "before", r.URL.Query().Get("from"))
		assert.Equal(t, "after", r.URL.Query().Get("to"))
		fmt.Fprint(w, `{
			"diffs": [
				{"old_path": "lib.py", "new_path": "lib.py", "diff": "@@ -1 +1,2 @@\n import re\n+import sys\n"}
			]
		}`)
	}))

	diff, err := client.CompareDiff(context.Background(), "before", "after")
	require.NoError(t, err)
	assert.Contains(t, diff, "diff --git a/lib.py b/lib.py")
	assert.Contains(t, diff, "+import sys")
}

func TestBranchHeadSHA(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/repository/branches/main"), r.URL.Path)
		fmt.Fprint(w, `{"name": "main", "commit": {"id": "branch-head"}}`)
	}))

	sha, err := client.BranchHeadSHA(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, "branch-head", sha)
}

func TestExistingCommentsKeepsPositionedNotesOnly(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/merge_requests/7/discussions"), r.URL.Path)
		fmt.Fprint(w, `[
			{"notes": [{"body": "positioned", "position": {"new_path": "a.py", "new_line": 4}}]},
			{"notes": [{"body": "general discussion, no position"}]}
		]`)
	}))

	comments, err := client.ExistingComments(context.Background())
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, domain.Comment{Path: "a.py", Line: 4, Body: "positioned"}, comments[0])
}

func TestCreateReviewReportsBatchUnsupported(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	err := client.CreateReview(context.Background(), "head-sha", []domain.Comment{{Path: "a.py", Line: 1, Body: "x"}})
	assert.ErrorIs(t, err, domain.ErrBatchUnsupported)
}

func TestCreateCommentPostsTextPosition(t *testing.T) {
	var body map[string]any
	mux := http.NewServeMux()
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7"):
			fmt.Fprint(w, `{"diff_refs": {"base_sha": "base-sha", "head_sha": "head-sha", "start_sha": "start-sha"}}`)
		case strings.HasSuffix(r.URL.Path, "/merge_requests/7/discussions"):
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fmt.Fprint(w, `{"id": "d1"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}
	mux.HandleFunc("/", handler)
	client := newTestClient(t, mux)

	_, err := client.PullRequest(context.Background())
	require.NoError(t, err)

	err = client.CreateComment(context.Background(), "head-sha", domain.Comment{Path: "a.py", Line: 4, Body: "x"})
	require.NoError(t, err)

	assert.Equal(t, "x", body["body"])
	position, ok := body["position"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "text", position["position_type"])
	assert.Equal(t, "base-sha", position["base_sha"])
	assert.Equal(t, "start-sha", position["start_sha"])
	assert.Equal(t, "head-sha", position["head_sha"])
	assert.Equal(t, "a.py", position["new_path"])
	assert.Equal(t, float64(4), position["new_line"])
}

func TestCreateCommentRequiresDiffRefs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	err := client.CreateComment(context.Background(), "head-sha", domain.Comment{Path: "a.py", Line: 4, Body: "x"})
	assert.Error(t, err)
}
