package diff

import (
	"strconv"
	"strings"
)

// Chunk is one prompt unit: a run of one file's hunks rendered with
// chunk-relative line numbers, plus the map from those numbers back to
// absolute lines in the new version of the file.
type Chunk struct {
	Path  string
	Hunks []Hunk
	// Body is the rendered diff text. New-side lines are prefixed with a
	// chunk-relative number that continues across hunk boundaries within
	// the chunk; removed lines keep their '-' marker and no number.
	Body string
	// LineMap translates a chunk-relative number to the absolute new-file
	// line. Only added lines are present; a suggestion pointing anywhere
	// else is not postable.
	LineMap map[int]int
}

// Chunker packs file hunks into chunks whose rendered text stays under a
// token budget. Boundaries always fall between hunks.
type Chunker struct {
	maxTokens int
	estimate  func(string) int
}

// NewChunker returns a Chunker with the given token budget per chunk.
func NewChunker(maxTokens int) *Chunker {
	return &Chunker{maxTokens: maxTokens, estimate: EstimateTokens}
}

// SetEstimator overrides the token estimator (primarily for testing).
func (c *Chunker) SetEstimator(fn func(string) int) {
	c.estimate = fn
}

// Split packs a file's hunks into chunks. Deleted and mode-only entries
// produce no chunks, and chunks without any addressable added line are
// dropped since nothing the LLM says about them could be posted.
func (c *Chunker) Split(file File) []Chunk {
	if file.Status == StatusDeleted || file.Status == StatusModeChanged {
		return nil
	}

	var chunks []Chunk
	for _, group := range c.pack(file.Path, file.Hunks) {
		chunk := renderChunk(file.Path, group)
		if len(chunk.LineMap) == 0 {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// pack groups hunks greedily in order, charging each candidate group at
// its rendered size so the relative-number prefixes count against the
// budget. A group is cut when adding the next hunk would push the
// rendered form over the budget; a single hunk over budget still forms
// its own group because hunks are never split.
func (c *Chunker) pack(path string, hunks []Hunk) [][]Hunk {
	var (
		groups [][]Hunk
		group  []Hunk
	)
	for _, hunk := range hunks {
		if len(group) > 0 {
			candidate := append(group[:len(group):len(group)], hunk)
			if c.estimate(renderChunk(path, candidate).Body) > c.maxTokens {
				groups = append(groups, group)
				group = nil
			}
		}
		group = append(group, hunk)
	}
	if len(group) > 0 {
		groups = append(groups, group)
	}
	return groups
}

// renderChunk produces the numbered body and the relative-to-absolute
// line map for one group of hunks. Numbering covers new-side lines
// (context and additions) starting at 1 and running across hunks; the
// map records added lines only.
func renderChunk(path string, hunks []Hunk) Chunk {
	var b strings.Builder
	lineMap := make(map[int]int)

	rel := 0
	for _, hunk := range hunks {
		b.WriteString(hunk.Header)
		b.WriteByte('\n')
		for _, line := range hunk.Lines {
			if line.Type == LineDeletion {
				b.WriteByte('-')
				b.WriteString(line.Content)
				b.WriteByte('\n')
				continue
			}
			rel++
			b.WriteString(strconv.Itoa(rel))
			b.WriteByte(' ')
			b.WriteByte(markerFor(line.Type))
			b.WriteString(line.Content)
			b.WriteByte('\n')
			if line.Type == LineAddition && line.NewLine != nil {
				lineMap[rel] = *line.NewLine
			}
		}
	}

	return Chunk{
		Path:    path,
		Hunks:   hunks,
		Body:    strings.TrimSuffix(b.String(), "\n"),
		LineMap: lineMap,
	}
}

func markerFor(t LineType) byte {
	switch t {
	case LineAddition:
		return '+'
	case LineDeletion:
		return '-'
	default:
		return ' '
	}
}
