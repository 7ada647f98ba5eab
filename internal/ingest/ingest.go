package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vulncontext/vulncontext-mcp/internal/chunker"
	"github.com/vulncontext/vulncontext-mcp/internal/embedder"
	"github.com/vulncontext/vulncontext-mcp/internal/storage"
	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

const (
	// DefaultBatchSize is the number of chunks embedded and upserted per
	// round trip
	DefaultBatchSize = 64

	// maxEmbedBatch caps a single embedding call regardless of configured
	// batch size; providers reject larger inputs
	maxEmbedBatch = 100

	// maxLineBytes bounds a single JSONL record
	maxLineBytes = 4 << 20
)

// ErrMissingID is returned for records without a vulnerability identifier
var ErrMissingID = errors.New("record is missing a vulnerability id")

// ErrMissingDescription is returned for records with no text to chunk
var ErrMissingDescription = errors.New("record has no description text")

// Record is one knowledge-base document in the JSONL input
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description"`
}

// Validate checks required fields and fills in an inferred source when the
// record carries none.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrMissingDescription
	}
	if r.Source == "" {
		r.Source = string(types.InferSource(r.ID))
	}
	if !types.ValidSource(r.Source) {
		return fmt.Errorf("%w: %q", types.ErrInvalidSource, r.Source)
	}
	return nil
}

// Config contains configuration for an ingestion run
type Config struct {
	BatchSize int                  // chunks per embed+upsert batch (default: DefaultBatchSize, capped at 100)
	Limit     int                  // maximum records to process, 0 = all
	Rebuild   bool                 // truncate the store before ingesting
	Chunking  chunker.ChunkOptions // token budgets forwarded to the chunker
	Progress  func(processed, total int)
}

// Stats summarizes an ingestion run
type Stats struct {
	RecordsRead    int
	RecordsSkipped int
	ChunksCreated  int
	ChunksUpserted int
	Duration       time.Duration
	Errors         []string
}

// Pipeline runs JSONL records through chunking, embedding, and storage
type Pipeline struct {
	store    storage.Store
	embedder embedder.Embedder
	chunker  *chunker.Chunker
	logger   *slog.Logger
}

// New creates a Pipeline. logger may be nil.
func New(store storage.Store, emb embedder.Embedder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		embedder: emb,
		chunker:  chunker.New(),
		logger:   logger,
	}
}

// IngestFile ingests a JSONL file from disk.
func (p *Pipeline) IngestFile(ctx context.Context, path string, config *Config) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return p.IngestJSONL(ctx, f, config)
}

// IngestJSONL reads JSONL records, chunks each record's description, embeds
// the chunks in batches, and upserts them. Malformed or invalid records are
// skipped and recorded in Stats.Errors; provider and store errors abort the
// run. Replaying the same input is idempotent: upserts are keyed on content
// hash.
func (p *Pipeline) IngestJSONL(ctx context.Context, r io.Reader, config *Config) (*Stats, error) {
	cfg := normalizeConfig(config)
	start := time.Now()
	stats := &Stats{}

	chunks, err := p.collectChunks(r, cfg, stats)
	if err != nil {
		return nil, err
	}
	stats.ChunksCreated = len(chunks)

	if cfg.Rebuild {
		if err := p.store.Truncate(ctx); err != nil {
			return nil, fmt.Errorf("failed to truncate store: %w", err)
		}
		p.logger.Info("store truncated for rebuild")
	}

	if len(chunks) == 0 {
		p.logger.Warn("no chunks produced from input", "records", stats.RecordsRead)
		stats.Duration = time.Since(start)
		return stats, nil
	}

	for i := 0; i < len(chunks); i += cfg.BatchSize {
		end := i + cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		if err := p.processBatch(ctx, batch); err != nil {
			return nil, err
		}

		stats.ChunksUpserted += len(batch)
		if cfg.Progress != nil {
			cfg.Progress(stats.ChunksUpserted, len(chunks))
		}
	}

	stats.Duration = time.Since(start)
	p.logger.Info("ingestion completed",
		"records", stats.RecordsRead,
		"skipped", stats.RecordsSkipped,
		"chunks", stats.ChunksUpserted,
		"duration", stats.Duration)

	return stats, nil
}

// Status reports store statistics.
func (p *Pipeline) Status(ctx context.Context) (*storage.Stats, error) {
	return p.store.GetStats(ctx)
}

func (p *Pipeline) collectChunks(r io.Reader, cfg Config, stats *Stats) ([]*types.Chunk, error) {
	var chunks []*types.Chunk

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if cfg.Limit > 0 && stats.RecordsRead >= cfg.Limit {
			break
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			stats.RecordsSkipped++
			stats.Errors = append(stats.Errors, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}
		if err := rec.Validate(); err != nil {
			stats.RecordsSkipped++
			stats.Errors = append(stats.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}
		stats.RecordsRead++

		meta := chunker.DocumentMeta{
			ID:     rec.ID,
			Title:  rec.Title,
			Source: rec.Source,
			URL:    rec.URL,
		}
		chunks = append(chunks, p.chunker.ChunkDocument(rec.Description, meta, cfg.Chunking)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	return chunks, nil
}

func (p *Pipeline) processBatch(ctx context.Context, batch []*types.Chunk) error {
	embeddings := make([][]float32, 0, len(batch))

	// Provider limit is stricter than the storage batch size
	for i := 0; i < len(batch); i += maxEmbedBatch {
		end := i + maxEmbedBatch
		if end > len(batch) {
			end = len(batch)
		}

		texts := make([]string, 0, end-i)
		for _, c := range batch[i:end] {
			texts = append(texts, c.Content)
		}

		resp, err := p.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Embeddings) != len(texts) {
			return fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Embeddings), len(texts))
		}
		for _, e := range resp.Embeddings {
			embeddings = append(embeddings, e.Vector)
		}
	}

	if err := p.store.UpsertChunks(ctx, batch, embeddings, p.embedder.Provider(), p.embedder.Model()); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

func normalizeConfig(config *Config) Config {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > maxEmbedBatch {
		cfg.BatchSize = maxEmbedBatch
	}
	return cfg
}
