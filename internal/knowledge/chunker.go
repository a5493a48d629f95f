package knowledge

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 200
)

// DefaultSeparators lists break points from highest to lowest priority:
// paragraph, line, then sentence endings. A hard cut is used when none fits.
var DefaultSeparators = []string{"\n\n", "\n", "。", "！", "？", ". ", "! ", "? "}

// Chunker splits documents into overlapping character windows that prefer
// to end on a separator.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(separators ...string) ChunkerOption {
	return func(c *Chunker) {
		c.separators = c.separators[:0]
		for _, s := range separators {
			if s != "" {
				c.separators = append(c.separators, []rune(s))
			}
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, s := range DefaultSeparators {
		c.separators = append(c.separators, []rune(s))
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts the document text into chunks tagged with the document metadata.
// Chunks are exact substrings of the text: chunk i+1 begins with the last
// Overlap() characters of chunk i.
func (c *Chunker) Split(doc Document) []Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	runes := []rune(doc.Text)
	var texts []string
	start := 0
	for {
		end := start + c.chunkSize
		if end >= len(runes) {
			texts = append(texts, string(runes[start:]))
			break
		}
		cut := c.breakPoint(runes, start, end)
		texts = append(texts, string(runes[start:cut]))
		start = cut - c.overlap
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Position:   i,
			Text:       text,
			Title:      doc.Title,
			Source:     doc.Source,
			Topic:      doc.Category,
		}
	}
	return chunks
}

// breakPoint returns the exclusive end of the chunk starting at start. The cut
// must land past start+overlap so the next chunk advances.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	floor := start + c.overlap
	for _, sep := range c.separators {
		if cut := lastSeparatorEnd(runes, sep, floor, end); cut > 0 {
			return cut
		}
	}
	return end
}

// lastSeparatorEnd finds the last occurrence of sep whose end lies in (floor, end].
func lastSeparatorEnd(runes, sep []rune, floor, end int) int {
	for cut := end; cut > floor; cut-- {
		from := cut - len(sep)
		if from < 0 {
			break
		}
		if hasRunesAt(runes, sep, from) {
			return cut
		}
	}
	return 0
}

func hasRunesAt(runes, sep []rune, at int) bool {
	for i, r := range sep {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}
