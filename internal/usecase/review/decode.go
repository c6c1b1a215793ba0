package review

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ompragash/drone-ai-pr-reviewer/internal/domain"
)

// flexInt decodes a JSON number or a numeric string. Some models quote
// line numbers despite the prompt's schema.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return fmt.Errorf("line number %q is not an integer", str)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type rawSuggestion struct {
	LineNumber    flexInt `json:"lineNumber"`
	ReviewComment string  `json:"reviewComment"`
}

type responseEnvelope struct {
	Reviews              *[]json.RawMessage `json:"reviews"`
	AdditionalProperties *struct {
		Reviews *[]json.RawMessage `json:"reviews"`
	} `json:"additionalProperties"`
}

// DecodeSuggestions parses a model response into suggestions. Markdown
// code fences around the JSON are tolerated, as is a schema-echo
// wrapping where the reviews array sits under "additionalProperties".
// Entries that fail to decode are dropped and counted in malformed.
func DecodeSuggestions(raw string) (suggestions []domain.Suggestion, malformed int, err error) {
	cleaned := stripFences(raw)

	var env responseEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, 0, fmt.Errorf("decoding review response: %w", err)
	}

	entries := env.Reviews
	if entries == nil && env.AdditionalProperties != nil {
		entries = env.AdditionalProperties.Reviews
	}
	if entries == nil {
		return nil, 0, fmt.Errorf("review response has no \"reviews\" array")
	}

	for _, entry := range *entries {
		var s rawSuggestion
		if err := json.Unmarshal(entry, &s); err != nil {
			malformed++
			continue
		}
		if s.LineNumber <= 0 || strings.TrimSpace(s.ReviewComment) == "" {
			malformed++
			continue
		}
		suggestions = append(suggestions, domain.Suggestion{
			Line:    int(s.LineNumber),
			Comment: s.ReviewComment,
		})
	}
	return suggestions, malformed, nil
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag, returning the inner text.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop a language tag such as "json" on the fence line.
		first := strings.TrimSpace(s[:nl])
		if first == "" || isFenceTag(first) {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
