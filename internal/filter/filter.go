// Package filter decides which changed files are eligible for review.
//
// Patterns use gitignore wildmatch semantics: `*` and `?` within a path
// segment, `**` across segments, and a leading `!` to negate an earlier
// match in the same list.
package filter

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Filter is a precompiled include/exclude matcher. The include stage runs
// first: when include patterns exist a path must match one to survive.
// The exclude stage then removes matching paths.
type Filter struct {
	include    gitignore.Matcher
	exclude    gitignore.Matcher
	hasInclude bool
	hasExclude bool
}

// New compiles pattern lists into a Filter. Blank patterns are dropped;
// empty lists disable their stage.
func New(include, exclude []string) *Filter {
	f := &Filter{}
	if patterns := compile(include); len(patterns) > 0 {
		f.include = gitignore.NewMatcher(patterns)
		f.hasInclude = true
	}
	if patterns := compile(exclude); len(patterns) > 0 {
		f.exclude = gitignore.NewMatcher(patterns)
		f.hasExclude = true
	}
	return f
}

// Keep reports whether a path survives both stages.
func (f *Filter) Keep(path string) bool {
	parts := strings.Split(path, "/")
	if f.hasInclude && !f.include.Match(parts, false) {
		return false
	}
	if f.hasExclude && f.exclude.Match(parts, false) {
		return false
	}
	return true
}

func compile(patterns []string) []gitignore.Pattern {
	compiled := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		compiled = append(compiled, gitignore.ParsePattern(p, nil))
	}
	return compiled
}
