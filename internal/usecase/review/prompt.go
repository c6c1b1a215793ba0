package review

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// userInstruction is the fixed user-role message sent after the
// rendered review prompt.
const userInstruction = "Please review the code changes above and provide specific, actionable feedback in JSON format."

// PromptData holds the fields a prompt template can reference.
type PromptData struct {
	FilePath      string
	PRTitle       string
	PRDescription string
	DiffChunk     string
}

// PromptBuilder renders the review prompt for one chunk. The template
// is parsed and checked once at startup so an operator-supplied file
// with a missing placeholder fails the run before any network call.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses templateText and verifies it references every
// prompt field.
func NewPromptBuilder(templateText string) (*PromptBuilder, error) {
	tmpl, err := template.New("review-prompt").Option("missingkey=error").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	b := &PromptBuilder{tmpl: tmpl}

	if err := b.checkPlaceholders(); err != nil {
		return nil, err
	}
	return b, nil
}

// checkPlaceholders renders the template with sentinel values and
// verifies each one lands in the output.
func (b *PromptBuilder) checkPlaceholders() error {
	probe := PromptData{
		FilePath:      "\x00file\x00",
		PRTitle:       "\x00title\x00",
		PRDescription: "\x00description\x00",
		DiffChunk:     "\x00diff\x00",
	}
	rendered, err := b.Render(probe)
	if err != nil {
		return fmt.Errorf("prompt template does not render: %w", err)
	}

	for name, sentinel := range map[string]string{
		"FilePath":      probe.FilePath,
		"PRTitle":       probe.PRTitle,
		"PRDescription": probe.PRDescription,
		"DiffChunk":     probe.DiffChunk,
	} {
		if !strings.Contains(rendered, sentinel) {
			return fmt.Errorf("prompt template does not reference .%s", name)
		}
	}
	return nil
}

// Render produces the system message for one chunk.
func (b *PromptBuilder) Render(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt template: %w", err)
	}
	return buf.String(), nil
}

// DefaultPromptTemplate is the built-in review prompt used when no
// template file is configured.
func DefaultPromptTemplate() string {
	return `Your task is to review pull requests. Instructions:
- Provide the response in the following JSON format: {"reviews": [{"lineNumber": <line_number>, "reviewComment": "<review comment>"}]}
- "lineNumber" is the number printed at the start of the diff line the comment refers to.
- Do not give positive comments or compliments.
- Provide comments and suggestions ONLY if there is something to improve; otherwise "reviews" should be an empty array.
- Write the comment in Markdown format.
- Use the given description only for the overall context and only comment the code.
- IMPORTANT: NEVER suggest adding comments to the code.

Review the following code diff in the file "{{.FilePath}}" and take the pull request title and description into account when writing the response.

Pull request title: {{.PRTitle}}
Pull request description:

---
{{.PRDescription}}
---

Git diff to review:

` + "```diff\n{{.DiffChunk}}\n```\n"
}
