package storage

import (
	"context"

	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

// Store defines the interface for persisting and querying the vulnerability
// knowledge base. Two implementations exist: SQLite (embedded, dual driver)
// and PostgreSQL with pgvector.
type Store interface {
	// Chunk operations
	UpsertChunks(ctx context.Context, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error
	ListChunksByVulnerability(ctx context.Context, vulnerabilityID string) ([]*types.Chunk, error)
	Truncate(ctx context.Context) error

	// Metadata operations
	GetVulnerabilityInfo(ctx context.Context, vulnerabilityID string) (*VulnerabilityInfo, error)

	// Search operations
	SimilaritySearch(ctx context.Context, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error)

	// Status operations
	GetStats(ctx context.Context) (*Stats, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}

// VulnerabilityInfo is the catalog metadata stored alongside a
// vulnerability's chunks. All fields may be partial; lookups are
// best-effort.
type VulnerabilityInfo struct {
	Title  string
	URL    string
	Source string
}

// SearchResult represents one row from a similarity search
type SearchResult struct {
	Content         string
	Title           string
	URL             string
	Source          string
	VulnerabilityID string
	OrderIndex      int
	Similarity      float64
	ExactMatch      bool
}

// Stats contains statistics about the stored knowledge base
type Stats struct {
	TotalChunks      int
	Sources          int
	Vulnerabilities  int
	AvgContentLength float64
	StoreSizeMB      float64
}
