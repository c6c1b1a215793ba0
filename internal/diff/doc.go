// Package diff parses unified diff text into per-file hunks and packs
// them into token-budgeted review chunks.
//
// Chunks render new-side lines with a chunk-relative number so an LLM can
// reference them, and carry a map from those numbers back to absolute
// line numbers in the new version of the file. Only added lines appear in
// the map; context and removed lines are kept for reading context but are
// not valid comment targets.
package diff
