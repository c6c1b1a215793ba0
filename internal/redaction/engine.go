// Package redaction scrubs credential-shaped strings from diff text
// before it is sent to an external LLM endpoint.
package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Engine performs regex-based secret detection and replacement. Every
// replacement stays within its line, so line counts and the numbering a
// chunk carries are unaffected.
type Engine struct {
	patterns   []*regexp.Regexp
	assignment *regexp.Regexp
}

// NewEngine creates an engine with the default secret patterns.
func NewEngine() *Engine {
	return &Engine{
		patterns:   defaultPatterns(),
		assignment: assignmentPattern,
	}
}

// Redact replaces detected secrets with stable placeholders and returns
// the scrubbed text plus the number of distinct secrets found. The same
// secret always maps to the same placeholder so repeated occurrences
// stay correlated for the reader.
func (e *Engine) Redact(text string) (string, int) {
	seen := make(map[string]string)

	lines := strings.Split(text, "\n")
	inPEM := false
	for i, line := range lines {
		switch {
		case pemBegin.MatchString(line):
			inPEM = true
			continue
		case inPEM && pemEnd.MatchString(line):
			inPEM = false
			continue
		case inPEM:
			// Body lines of a private key block are secrets wholesale.
			if strings.TrimSpace(line) != "" {
				lines[i] = e.replace(line, strings.TrimSpace(line), seen)
			}
			continue
		}

		for _, re := range e.patterns {
			for _, match := range re.FindAllString(lines[i], -1) {
				lines[i] = e.replace(lines[i], match, seen)
			}
		}
		lines[i] = e.assignment.ReplaceAllStringFunc(lines[i], func(m string) string {
			sub := e.assignment.FindStringSubmatch(m)
			if strings.Contains(sub[2], "<REDACTED:") {
				return m
			}
			return sub[1] + placeholderFor(sub[2], seen) + sub[3]
		})
	}

	return strings.Join(lines, "\n"), len(seen)
}

// IsRedacted reports whether the content already carries placeholders.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "<REDACTED:")
}

func (e *Engine) replace(line, secret string, seen map[string]string) string {
	return strings.ReplaceAll(line, secret, placeholderFor(secret, seen))
}

// placeholderFor returns the stable placeholder for a secret, recording
// first sightings in seen.
func placeholderFor(secret string, seen map[string]string) string {
	if ph, ok := seen[secret]; ok {
		return ph
	}
	sum := sha256.Sum256([]byte(secret))
	ph := fmt.Sprintf("<REDACTED:%s>", hex.EncodeToString(sum[:])[:8])
	seen[secret] = ph
	return ph
}

var (
	pemBegin = regexp.MustCompile(`-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)?\s*PRIVATE\s+KEY-----`)
	pemEnd   = regexp.MustCompile(`-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)?\s*PRIVATE\s+KEY-----`)

	// Quoted values assigned to credential-named keys. Only the value is
	// replaced so the reviewer still sees what the variable is.
	assignmentPattern = regexp.MustCompile(
		`(?i)((?:password|passwd|secret|api[_-]?key|access[_-]?token|auth[_-]?token)\s*[:=]\s*["'])([^"'\n]{8,})(["'])`)
)

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// OpenAI / Anthropic style keys
		`sk-[a-zA-Z0-9_\-]{20,}`,
		// AWS Access Key ID
		`AKIA[0-9A-Z]{16}`,
		// GitHub tokens (classic and fine-grained prefixes)
		`gh[pousr]_[a-zA-Z0-9]{20,}`,
		// GitLab personal access tokens
		`glpat-[a-zA-Z0-9_\-]{20,}`,
		// Google API keys
		`AIza[0-9A-Za-z\-_]{35}`,
		// Slack tokens
		`xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		// JWT tokens
		`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		// Bearer headers with token-shaped payloads
		`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{16,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}
