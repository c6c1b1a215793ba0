package diff

import (
	"fmt"
	"strconv"
	"strings"
)

// Status classifies the change a diff records for one file.
type Status string

const (
	StatusAdded       Status = "added"
	StatusModified    Status = "modified"
	StatusDeleted     Status = "deleted"
	StatusRenamed     Status = "renamed"
	StatusModeChanged Status = "mode-changed"
)

// LineType represents the type of a line in a diff.
type LineType int

const (
	// LineContext represents an unchanged context line (starts with ' ').
	LineContext LineType = iota
	// LineAddition represents an added line (starts with '+').
	LineAddition
	// LineDeletion represents a deleted line (starts with '-').
	LineDeletion
)

// Line represents a single line in a diff hunk.
type Line struct {
	Type    LineType // The type of change
	Content string   // The line content (without the prefix)
	NewLine *int     // Line number in new file (nil for deletions)
}

// Hunk represents a single @@ hunk in a unified diff.
type Hunk struct {
	Header   string // The raw @@ header line
	OldStart int    // Starting line in old file
	OldLines int    // Number of lines from old file
	NewStart int    // Starting line in new file
	NewLines int    // Number of lines in new file
	Lines    []Line // The lines in this hunk
}

// File represents a single file entry in a unified diff.
type File struct {
	OldPath string // Path before the change (empty for added files)
	Path    string // Path after the change (old path for deleted files)
	Status  Status
	Hunks   []Hunk
}

// Skip records a file entry that was dropped from the parse result.
type Skip struct {
	Path   string
	Reason string
}

// Diff is the parsed form of one unified diff blob.
type Diff struct {
	Files   []File
	Skipped []Skip
}

// parser carries the scan state for one Parse call.
type parser struct {
	result Diff

	current *fileState
	hunk    *Hunk
	// Remaining line counts declared by the open hunk's header. The hunk
	// body ends when both reach zero, which keeps blank context lines
	// (emitted without their leading space by some producers) apart from
	// stray blank lines between file sections.
	oldLeft, newLeft int
	newLine          int
}

// fileState accumulates one file section while scanning.
type fileState struct {
	gitOldPath  string // from the diff --git line
	gitNewPath  string
	oldPath     string // from ---/+++ headers
	newPath     string
	sawOldHdr   bool
	sawNewHdr   bool
	newFile     bool
	deletedFile bool
	modeChange  bool
	renamed     bool
	binary      bool
	badHeader   string // non-empty marks the entry malformed
	hunks       []Hunk
}

// Parse converts raw unified diff text into per-file structures. It fails
// open: malformed or binary file entries land in Skipped and never abort
// the parse. Empty input yields an empty Diff.
func Parse(text string) Diff {
	lines := strings.Split(text, "\n")
	// A terminal newline leaves one empty artifact after the split; real
	// blank context lines inside hunks are preserved.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	p := &parser{}
	for _, line := range lines {
		p.scan(line)
	}
	p.flushFile()
	return p.result
}

func (p *parser) scan(line string) {
	if p.hunkOpen() && p.consumeHunkLine(line) {
		return
	}

	if strings.HasPrefix(line, "diff --git ") {
		p.flushFile()
		p.current = &fileState{}
		p.current.gitOldPath, p.current.gitNewPath = parseGitHeaderPaths(line)
		return
	}
	if p.current == nil {
		// Diffs from some hosts omit the git header line; open an entry
		// at the first --- header instead.
		if !strings.HasPrefix(line, "--- ") {
			return
		}
		p.current = &fileState{}
	}
	if p.current.badHeader != "" {
		// Drain the rest of a malformed entry until the next file starts.
		return
	}

	switch {
	case strings.HasPrefix(line, "--- "):
		p.current.oldPath = strings.TrimSpace(strings.TrimPrefix(line, "--- "))
		p.current.sawOldHdr = true
	case strings.HasPrefix(line, "+++ "):
		p.current.newPath = strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
		p.current.sawNewHdr = true
	case strings.HasPrefix(line, "new file mode"):
		p.current.newFile = true
	case strings.HasPrefix(line, "deleted file mode"):
		p.current.deletedFile = true
	case strings.HasPrefix(line, "old mode"), strings.HasPrefix(line, "new mode"):
		p.current.modeChange = true
	case strings.HasPrefix(line, "rename from"), strings.HasPrefix(line, "rename to"):
		p.current.renamed = true
	case strings.HasPrefix(line, "Binary files "), strings.HasPrefix(line, "GIT binary patch"):
		p.current.binary = true
	case strings.HasPrefix(line, "@@"):
		p.flushHunk()
		hunk, err := parseHunkHeader(line)
		if err != nil {
			p.current.badHeader = err.Error()
			return
		}
		p.hunk = &hunk
		p.oldLeft, p.newLeft = hunk.OldLines, hunk.NewLines
		p.newLine = hunk.NewStart
	}
	// Everything else (index lines, similarity scores, stray blank lines)
	// carries nothing the review needs.
}

// consumeHunkLine interprets one line as hunk body content. It reports
// false when the line does not belong to the open hunk, in which case the
// caller re-interprets it as a header.
func (p *parser) consumeHunkLine(line string) bool {
	if strings.HasPrefix(line, "\\ ") {
		// "\ No newline at end of file" annotates the previous line and
		// counts against neither side.
		return true
	}

	var diffLine Line
	switch {
	case strings.HasPrefix(line, "+"):
		diffLine = Line{Type: LineAddition, Content: line[1:], NewLine: IntPtr(p.newLine)}
		p.newLine++
		p.newLeft--
	case strings.HasPrefix(line, "-"):
		diffLine = Line{Type: LineDeletion, Content: line[1:]}
		p.oldLeft--
	case strings.HasPrefix(line, " "), line == "":
		diffLine = Line{Type: LineContext, Content: strings.TrimPrefix(line, " "), NewLine: IntPtr(p.newLine)}
		p.newLine++
		p.newLeft--
		p.oldLeft--
	default:
		// The body ended before the header's counts were satisfied.
		p.flushHunk()
		return false
	}
	p.hunk.Lines = append(p.hunk.Lines, diffLine)
	if !p.hunkOpen() {
		p.flushHunk()
	}
	return true
}

func (p *parser) hunkOpen() bool {
	return p.hunk != nil && (p.oldLeft > 0 || p.newLeft > 0)
}

func (p *parser) flushHunk() {
	if p.hunk != nil && p.current != nil {
		p.current.hunks = append(p.current.hunks, *p.hunk)
	}
	p.hunk = nil
	p.oldLeft, p.newLeft = 0, 0
}

func (p *parser) flushFile() {
	p.flushHunk()
	if p.current != nil {
		p.result.add(p.current)
	}
	p.current = nil
}

// add classifies a completed file section and records it as parsed or
// skipped.
func (d *Diff) add(fs *fileState) {
	oldPath := normalizePath(firstNonEmpty(fs.oldPath, fs.gitOldPath))
	newPath := normalizePath(firstNonEmpty(fs.newPath, fs.gitNewPath))

	display := newPath
	if display == "" {
		display = oldPath
	}

	switch {
	case fs.badHeader != "":
		d.Skipped = append(d.Skipped, Skip{Path: display, Reason: fs.badHeader})
		return
	case fs.binary:
		d.Skipped = append(d.Skipped, Skip{Path: display, Reason: "binary file"})
		return
	case display == "":
		d.Skipped = append(d.Skipped, Skip{Reason: "file entry without a path"})
		return
	}

	file := File{OldPath: oldPath, Path: newPath, Hunks: fs.hunks}
	switch {
	case fs.deletedFile || (fs.sawNewHdr && newPath == ""):
		file.Status = StatusDeleted
		file.Path = oldPath
	case fs.newFile || (fs.sawOldHdr && oldPath == ""):
		file.Status = StatusAdded
		file.OldPath = ""
	case fs.renamed || (oldPath != "" && newPath != "" && oldPath != newPath):
		file.Status = StatusRenamed
	case fs.modeChange && len(fs.hunks) == 0:
		file.Status = StatusModeChanged
	default:
		file.Status = StatusModified
	}
	d.Files = append(d.Files, file)
}

// normalizePath strips the a/ and b/ prefixes git places on header paths
// and maps /dev/null to the empty string.
func normalizePath(p string) string {
	if p == "" || p == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// parseGitHeaderPaths extracts the two paths from a "diff --git a/x b/y"
// line. Splitting on the last " b/" occurrence matches git's own output
// for unquoted paths, including paths containing spaces.
func parseGitHeaderPaths(line string) (oldPath, newPath string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		fields := strings.Fields(rest)
		if len(fields) >= 2 {
			return fields[0], fields[1]
		}
		return "", ""
	}
	return rest[:idx], rest[idx+1:]
}

// parseHunkHeader parses a hunk header line like "@@ -10,7 +10,8 @@ context".
func parseHunkHeader(line string) (Hunk, error) {
	hunk := Hunk{Header: line}

	parts := strings.Split(line, "@@")
	if len(parts) < 3 {
		return hunk, fmt.Errorf("malformed hunk header %q", line)
	}

	var sawOld, sawNew bool
	for _, part := range strings.Fields(strings.TrimSpace(parts[1])) {
		switch {
		case strings.HasPrefix(part, "-"):
			start, count, err := parseRange(strings.TrimPrefix(part, "-"))
			if err != nil {
				return hunk, fmt.Errorf("malformed hunk header %q: %v", line, err)
			}
			hunk.OldStart, hunk.OldLines = start, count
			sawOld = true
		case strings.HasPrefix(part, "+"):
			start, count, err := parseRange(strings.TrimPrefix(part, "+"))
			if err != nil {
				return hunk, fmt.Errorf("malformed hunk header %q: %v", line, err)
			}
			hunk.NewStart, hunk.NewLines = start, count
			sawNew = true
		}
	}
	if !sawOld || !sawNew {
		return hunk, fmt.Errorf("malformed hunk header %q", line)
	}
	return hunk, nil
}

// parseRange parses "start,count" or "start" format. A missing count
// means a single line.
func parseRange(s string) (start, count int, err error) {
	count = 1
	numStr := s
	if idx := strings.Index(s, ","); idx >= 0 {
		numStr = s[:idx]
		count, err = strconv.Atoi(s[idx+1:])
		if err != nil {
			return 0, 0, err
		}
	}
	start, err = strconv.Atoi(numStr)
	if err != nil {
		return 0, 0, err
	}
	return start, count, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IntPtr returns a pointer to the given int value.
// Exported for use in tests across packages.
func IntPtr(n int) *int {
	return &n
}
