package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingMismatch is returned when chunk and embedding counts differ
	ErrEmbeddingMismatch = errors.New("chunk and embedding counts do not match")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStore) querier() querier {
	return s.db
}

// Chunk operations

// upsertChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) upsertChunksWithQuerier(ctx context.Context, q querier, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}

	// Keyed on content_hash, so replaying the same input rewrites rows in place
	query := `
		INSERT INTO vulnerability_knowledge (
			content, embedding, dimension, provider, model,
			source, vulnerability_id, title, url, order_index, content_hash,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			source = excluded.source,
			vulnerability_id = excluded.vulnerability_id,
			title = excluded.title,
			url = excluded.url,
			order_index = excluded.order_index,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	for i, chunk := range chunks {
		err := q.QueryRowContext(ctx, query,
			chunk.Content, serializeVector(embeddings[i]), len(embeddings[i]),
			provider, model, chunk.Source, chunk.VulnerabilityID,
			chunk.Title, chunk.URL, chunk.OrderIndex, chunk.ContentHashHex(),
			now, now,
		).Scan(&chunk.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ContentHashHex(), err)
		}
	}
	return nil
}

// UpsertChunks inserts or updates chunks with their embeddings in a single
// transaction. The embedding at index i belongs to the chunk at index i.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.upsertChunksWithQuerier(ctx, tx, chunks, embeddings, provider, model); err != nil {
		return err
	}
	return tx.Commit()
}

// listChunksByVulnerabilityWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) listChunksByVulnerabilityWithQuerier(ctx context.Context, q querier, vulnerabilityID string) ([]*types.Chunk, error) {
	query := `
		SELECT id, content, source, vulnerability_id, title, url, order_index
		FROM vulnerability_knowledge
		WHERE vulnerability_id = ?
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
		var url sql.NullString
		err := rows.Scan(
			&chunk.ID, &chunk.Content, &chunk.Source, &chunk.VulnerabilityID,
			&chunk.Title, &url, &chunk.OrderIndex,
		)
		if err != nil {
			return nil, err
		}
		if url.Valid {
			chunk.URL = url.String
		}
		chunk.ComputeTokenCount()
		chunk.ComputeContentHash()
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) ListChunksByVulnerability(ctx context.Context, vulnerabilityID string) ([]*types.Chunk, error) {
	return s.listChunksByVulnerabilityWithQuerier(ctx, s.querier(), vulnerabilityID)
}

// truncateWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) truncateWithQuerier(ctx context.Context, q querier) error {
	_, err := q.ExecContext(ctx, `DELETE FROM vulnerability_knowledge`)
	if err != nil {
		return fmt.Errorf("failed to truncate knowledge base: %w", err)
	}
	return nil
}

// Truncate removes all rows, used by rebuild ingestion
func (s *SQLiteStore) Truncate(ctx context.Context) error {
	return s.truncateWithQuerier(ctx, s.querier())
}

// Metadata operations

// getVulnerabilityInfoWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) getVulnerabilityInfoWithQuerier(ctx context.Context, q querier, vulnerabilityID string) (*VulnerabilityInfo, error) {
	query := `
		SELECT DISTINCT title, url, source
		FROM vulnerability_knowledge
		WHERE vulnerability_id = ?
		LIMIT 1
	`
	var info VulnerabilityInfo
	var url sql.NullString
	err := q.QueryRowContext(ctx, query, vulnerabilityID).Scan(&info.Title, &url, &info.Source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if url.Valid {
		info.URL = url.String
	}
	return &info, nil
}

func (s *SQLiteStore) GetVulnerabilityInfo(ctx context.Context, vulnerabilityID string) (*VulnerabilityInfo, error) {
	return s.getVulnerabilityInfoWithQuerier(ctx, s.querier(), vulnerabilityID)
}

// Search operations

func (s *SQLiteStore) SimilaritySearch(ctx context.Context, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	// Implementation moved to separate file for clarity
	return similaritySearch(ctx, s.db, queryVector, vulnerabilityID, topK, threshold)
}

// Status operations

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
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

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.StoreSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return &stats, nil
}

// Transaction implementations

func (t *sqliteTx) UpsertChunks(ctx context.Context, chunks []*types.Chunk, embeddings [][]float32, provider, model string) error {
	return t.store.upsertChunksWithQuerier(ctx, t.querier(), chunks, embeddings, provider, model)
}

func (t *sqliteTx) ListChunksByVulnerability(ctx context.Context, vulnerabilityID string) ([]*types.Chunk, error) {
	return t.store.listChunksByVulnerabilityWithQuerier(ctx, t.querier(), vulnerabilityID)
}

func (t *sqliteTx) Truncate(ctx context.Context) error {
	return t.store.truncateWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetVulnerabilityInfo(ctx context.Context, vulnerabilityID string) (*VulnerabilityInfo, error) {
	return t.store.getVulnerabilityInfoWithQuerier(ctx, t.querier(), vulnerabilityID)
}

func (t *sqliteTx) SimilaritySearch(ctx context.Context, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	return t.store.SimilaritySearch(ctx, queryVector, vulnerabilityID, topK, threshold)
}

func (t *sqliteTx) GetStats(ctx context.Context) (*Stats, error) {
	return t.store.GetStats(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	// We return an error to prevent accidental misuse
	// If savepoints are needed in the future, implement here
	return nil, errors.New("nested transactions not supported")
}
