package rag

import (
	"strings"

	"noteflow/internal/services/notes"
)

const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 100
)

// Chunk is a window of note text with the note's metadata attached.
type Chunk struct {
	Index    int
	Text     string
	Metadata Metadata
}

// Chunker splits text into fixed windows of Size runes, each starting
// Size-Overlap runes after the previous one.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker falls back to the defaults for out-of-range values.
func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(DefaultChunkOverlap, size-1)
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split returns the windows of text. Blank text yields nothing.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	step := c.Size - c.Overlap

	var out []string
	for start := 0; ; start += step {
		end := min(start+c.Size, len(runes))
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// ChunkNote splits the note text and tags every piece with its metadata.
func (c Chunker) ChunkNote(n *notes.Note) []Chunk {
	parts := c.Split(n.Text())
	out := make([]Chunk, len(parts))
	for i, p := range parts {
		out[i] = Chunk{
			Index: i,
			Text:  p,
			Metadata: Metadata{
				Title:       n.Title,
				Description: n.Description,
				Owner:       n.Owner,
				Chunk:       i,
			},
		}
	}
	return out
}
