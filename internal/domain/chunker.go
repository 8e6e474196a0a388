package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// MinChunkLength is the minimum chunk length in characters. Shorter
	// paragraphs are merged into a neighbour.
	MinChunkLength = 80
	// MaxChunkLength is the maximum chunk length in characters. Longer
	// paragraphs are split at sentence boundaries.
	MaxChunkLength = 1000
)

// ChunkerVersion identifies the chunking algorithm that produced a document
// version, so re-ingestion can detect algorithm upgrades.
type ChunkerVersion string

// ChunkerVersionV1 is the paragraph chunker with min/max length constraints.
const ChunkerVersionV1 ChunkerVersion = "v1"

// Chunk is a single piece of an ingested document.
type Chunk struct {
	Ordinal int
	Content string
	Hash    string
}

// Chunker splits document text into persistable chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type paragraphChunker struct{}

// NewChunker returns the default paragraph-based chunker.
func NewChunker() Chunker {
	return &paragraphChunker{}
}

func (c *paragraphChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk splits the body at blank lines, merges paragraphs shorter than
// MinChunkLength into their successor, and splits paragraphs longer than
// MaxChunkLength at sentence boundaries.
func (c *paragraphChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var paragraphs []string
	for _, part := range strings.Split(normalized, "\n\n") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	pieces := splitLong(mergeShort(paragraphs))

	chunks := make([]Chunk, 0, len(pieces))
	for i, content := range pieces {
		chunks = append(chunks, Chunk{
			Ordinal: i,
			Content: content,
			Hash:    ContentHash(content),
		})
	}
	return chunks, nil
}

// mergeShort folds paragraphs below MinChunkLength into the following one so
// no undersized chunk survives except a trailing remainder.
func mergeShort(paragraphs []string) []string {
	var merged []string
	var pending string

	for _, p := range paragraphs {
		if pending != "" {
			p = pending + "\n\n" + p
			pending = ""
		}
		if len(p) < MinChunkLength {
			pending = p
			continue
		}
		merged = append(merged, p)
	}

	if pending != "" {
		if len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n\n" + pending
		} else {
			merged = append(merged, pending)
		}
	}
	return merged
}

// splitLong breaks paragraphs above MaxChunkLength at sentence terminators,
// falling back to a hard cut when a single sentence exceeds the limit.
func splitLong(paragraphs []string) []string {
	var out []string
	for _, p := range paragraphs {
		for len(p) > MaxChunkLength {
			cut := lastSentenceEnd(p[:MaxChunkLength])
			if cut <= 0 {
				cut = MaxChunkLength
			}
			head := strings.TrimSpace(p[:cut])
			if head != "" {
				out = append(out, head)
			}
			p = strings.TrimSpace(p[cut:])
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return -1
}

// ContentHash returns the stable SHA-256 hex digest used for chunk and source
// change detection.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
