package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

// DefaultVectorDimension matches text-embedding-3-small, the model the
// knowledge base was originally populated with
const DefaultVectorDimension = 1536

// PostgresStore implements the Store interface using PostgreSQL with the
// pgvector extension. Distance computation happens entirely in SQL.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgresStore opens a connection, verifies it, and creates the schema
// if it does not exist. The dimension fixes the width of the vector column;
// pass 0 for the default.
func NewPostgresStore(databaseURL string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db, dimension: dimension}
	if err := store.createSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// createSchema creates the vulnerability_knowledge table if it doesn't exist
func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS vulnerability_knowledge (
			id SERIAL PRIMARY KEY,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			source VARCHAR(10) NOT NULL,
			vulnerability_id VARCHAR(20) NOT NULL,
			title TEXT NOT NULL,
			url TEXT,
			order_index INT NOT NULL DEFAULT 0,
			content_hash TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS ix_vuln_knowledge_source
			ON vulnerability_knowledge(source);
		CREATE INDEX IF NOT EXISTS ix_vuln_knowledge_vuln
			ON vulnerability_knowledge(vulnerability_id);
		CREATE INDEX IF NOT EXISTS ix_vuln_knowledge_hash
			ON vulnerability_knowledge(content_hash);
	`, s.dimension)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *PostgresStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx, store: s}, nil
}

// postgresTx wraps a SQL transaction
type postgresTx struct {
	tx    *sql.Tx
	store *PostgresStore
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *postgresTx) querier() querier {
	return t.tx
}

func (s *PostgresStore) querier() querier {
	return s.db
}

// Chunk operations

// upsertChunksWithQuerier is the internal implementation that uses a querier
func (s *PostgresStore) upsertChunksWithQuerier(ctx context.Context, q querier, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	query := `
		INSERT INTO vulnerability_knowledge (
			content, embedding, provider, model,
			source, vulnerability_id, title, url, order_index, content_hash
		) VALUES ($1, $2::vector, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (content_hash) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			source = EXCLUDED.source,
			vulnerability_id = EXCLUDED.vulnerability_id,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			order_index = EXCLUDED.order_index,
			updated_at = NOW()
		RETURNING id
	`
	for i, chunk := range chunks {
		err := q.QueryRowContext(ctx, query,
			chunk.Content, vectorToString(embeddings[i]), provider, model,
			chunk.Source, chunk.VulnerabilityID, chunk.Title, chunk.URL,
			chunk.OrderIndex, chunk.ContentHashHex(),
		).Scan(&chunk.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ContentHashHex(), err)
		}
	}
	return nil
}

// UpsertChunks inserts or updates chunks with their embeddings in a single
// transaction
func (s *PostgresStore) UpsertChunks(ctx context.Context, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.upsertChunksWithQuerier(ctx, tx, chunks, embeddings, provider, model); err != nil {
		return err
	}
	return tx.Commit()
}

// listChunksByVulnerabilityWithQuerier is the internal implementation that uses a querier
func (s *PostgresStore) listChunksByVulnerabilityWithQuerier(ctx context.Context, q querier, vulnerabilityID string) ([]*types.Chunk, error) {
	query := `
		SELECT id, content, source, vulnerability_id, title, COALESCE(url, ''), order_index
		FROM vulnerability_knowledge
		WHERE vulnerability_id = $1
		ORDER BY order_index
	`
	rows, err := q.QueryContext(ctx, query, vulnerabilityID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*types.Chunk, 0)
	for rows.Next() {
		var chunk types.Chunk
		if err := rows.Scan(
			&chunk.ID, &chunk.Content, &chunk.Source, &chunk.VulnerabilityID,
			&chunk.Title, &chunk.URL, &chunk.OrderIndex,
		); err != nil {
			return nil, err
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) ListChunksByVulnerability(ctx context.Context, vulnerabilityID string) ([]*types.Chunk, error) {
	return s.listChunksByVulnerabilityWithQuerier(ctx, s.querier(), vulnerabilityID)
}

// truncateWithQuerier is the internal implementation that uses a querier
func (s *PostgresStore) truncateWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `TRUNCATE TABLE vulnerability_knowledge`); err != nil {
		return fmt.Errorf("failed to truncate knowledge base: %w", err)
	}
	return nil
}

// Truncate removes all rows, used by rebuild ingestion
func (s *PostgresStore) Truncate(ctx context.Context) error {
	return s.truncateWithQuerier(ctx, s.querier())
}

// Metadata operations

// getVulnerabilityInfoWithQuerier is the internal implementation that uses a querier
func (s *PostgresStore) getVulnerabilityInfoWithQuerier(ctx context.Context, q querier, vulnerabilityID string) (*VulnerabilityInfo, error) {
	query := `
		SELECT DISTINCT title, COALESCE(url, ''), source
		FROM vulnerability_knowledge
		WHERE vulnerability_id = $1
		LIMIT 1
	`
	var info VulnerabilityInfo
	err := q.QueryRowContext(ctx, query, vulnerabilityID).Scan(&info.Title, &info.URL, &info.Source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *PostgresStore) GetVulnerabilityInfo(ctx context.Context, vulnerabilityID string) (*VulnerabilityInfo, error) {
	return s.getVulnerabilityInfoWithQuerier(ctx, s.querier(), vulnerabilityID)
}

// Search operations

// similaritySearchWithQuerier is the internal implementation that uses a querier
func (s *PostgresStore) similaritySearchWithQuerier(ctx context.Context, q querier, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	if topK <= 0 {
		return []SearchResult{}, nil
	}

	// pgvector's <=> operator is cosine distance; exact-id rows always lead,
	// ordered by document position, with semantic neighbors after them
	query := `
		SELECT
			content, title, COALESCE(url, ''), source, vulnerability_id, order_index,
			1 - (embedding <=> $1::vector) as similarity
		FROM vulnerability_knowledge
		WHERE vulnerability_id = $2 OR 1 - (embedding <=> $1::vector) >= $3
		ORDER BY
			CASE WHEN vulnerability_id = $2 THEN 0 ELSE 1 END,
			CASE WHEN vulnerability_id = $2 THEN order_index ELSE 0 END,
			embedding <=> $1::vector
		LIMIT $4
	`
	rows, err := q.QueryContext(ctx, query, vectorToString(queryVector), vulnerabilityID, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, topK)
	for rows.Next() {
		var result SearchResult
		if err := rows.Scan(
			&result.Content, &result.Title, &result.URL, &result.Source,
			&result.VulnerabilityID, &result.OrderIndex, &result.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.ExactMatch = result.VulnerabilityID == vulnerabilityID
		results = append(results, result)
	}

	return results, rows.Err()
}

func (s *PostgresStore) SimilaritySearch(ctx context.Context, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	return s.similaritySearchWithQuerier(ctx, s.querier(), queryVector, vulnerabilityID, topK, threshold)
}

// Status operations

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT source),
			COUNT(DISTINCT vulnerability_id),
			COALESCE(AVG(LENGTH(content)), 0)
		FROM vulnerability_knowledge
	`
	var stats Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalChunks, &stats.Sources, &stats.Vulnerabilities, &stats.AvgContentLength,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	var sizeBytes int64
	err = s.db.QueryRowContext(ctx,
		`SELECT pg_total_relation_size('vulnerability_knowledge')`).Scan(&sizeBytes)
	if err == nil {
		stats.StoreSizeMB = float64(sizeBytes) / (1024 * 1024)
	}

	return &stats, nil
}

// Transaction implementations

func (t *postgresTx) UpsertChunks(ctx context.Context, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	return t.store.upsertChunksWithQuerier(ctx, t.querier(), chunks, embeddings, provider, model)
}

func (t *postgresTx) ListChunksByVulnerability(ctx context.Context, vulnerabilityID string) ([]*types.Chunk, error) {
	return t.store.listChunksByVulnerabilityWithQuerier(ctx, t.querier(), vulnerabilityID)
}

func (t *postgresTx) Truncate(ctx context.Context) error {
	return t.store.truncateWithQuerier(ctx, t.querier())
}

func (t *postgresTx) GetVulnerabilityInfo(ctx context.Context, vulnerabilityID string) (*VulnerabilityInfo, error) {
	return t.store.getVulnerabilityInfoWithQuerier(ctx, t.querier(), vulnerabilityID)
}

func (t *postgresTx) SimilaritySearch(ctx context.Context, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	return t.store.similaritySearchWithQuerier(ctx, t.querier(), queryVector, vulnerabilityID, topK, threshold)
}

func (t *postgresTx) GetStats(ctx context.Context) (*Stats, error) {
	return t.store.GetStats(ctx)
}

func (t *postgresTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *postgresTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3]
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
