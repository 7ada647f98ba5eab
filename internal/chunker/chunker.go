package chunker

import (
	"strings"

	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

const (
	// DefaultMaxTokens is the target maximum token count per chunk
	DefaultMaxTokens = 512

	// DefaultMinTokens is the preferred lower bound; short trailing
	// fragments below it are still retained
	DefaultMinTokens = 50

	// DefaultOverlapTokens is the backward overlap injected between
	// adjacent chunks
	DefaultOverlapTokens = 50
)

// DocumentMeta carries the provenance fields for a document being chunked.
// ID is required; the rest default sensibly when absent.
type DocumentMeta struct {
	ID     string
	Title  string
	Source string
	URL    string
}

// ChunkOptions holds the token budgets for one chunking run
type ChunkOptions struct {
	MaxTokens     int
	MinTokens     int
	OverlapTokens int
}

// DefaultOptions returns the standard token budgets
func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		MaxTokens:     DefaultMaxTokens,
		MinTokens:     DefaultMinTokens,
		OverlapTokens: DefaultOverlapTokens,
	}
}

func (o *ChunkOptions) normalize() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.MinTokens <= 0 {
		o.MinTokens = DefaultMinTokens
	}
	if o.OverlapTokens < 0 {
		o.OverlapTokens = 0
	}
}

// Chunker converts long-form vulnerability documents into ordered,
// hash-able chunk records ready for embedding
type Chunker struct {
	estimator *TokenEstimator
}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{estimator: NewTokenEstimator()}
}

// ChunkDocument splits text under the given budgets and zips the segments
// with provenance metadata into ordered Chunk records. Blank text yields an
// empty result. The call performs no I/O; persistence belongs to the caller.
func (c *Chunker) ChunkDocument(text string, meta DocumentMeta, opts ChunkOptions) []*types.Chunk {
	opts.normalize()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	source := meta.Source
	if source == "" {
		source = string(types.InferSource(meta.ID))
	}

	splitter := NewSplitter(opts.MaxTokens, opts.MinTokens, opts.OverlapTokens)
	segments := splitter.SplitText(text)
	if len(segments) == 0 {
		return nil
	}

	overlapped := opts.OverlapTokens > 0 && len(segments) > 1
	if overlapped {
		segments = splitter.CreateOverlappingChunks(segments)
	}

	chunks := make([]*types.Chunk, 0, len(segments))
	for i, segment := range segments {
		chunk := &types.Chunk{
			Content:         segment,
			VulnerabilityID: meta.ID,
			Title:           meta.Title,
			Source:          source,
			URL:             meta.URL,
			OrderIndex:      i,
			OverlapPre:      overlapped && i > 0,
			OverlapPost:     overlapped && i < len(segments)-1,
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}

	return chunks
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return NewTokenEstimator().EstimateTokens(text)
}
