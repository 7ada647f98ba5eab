// Package storage provides persistence for the vulnerability knowledge base.
//
// Two backends implement the Store interface:
//   - SQLite: embedded, zero-setup, with a dual-driver build
//   - PostgreSQL: pgvector-backed, distance computed in SQL
//
// # Database Schema
//
// A single vulnerability_knowledge table holds chunk content, its embedding,
// and provenance metadata (source taxonomy, vulnerability ID, title, URL,
// document position). Rows are keyed by a deterministic content hash, so
// re-ingesting the same corpus rewrites rows in place instead of duplicating
// them.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.vulncontext/knowledge.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.UpsertChunks(ctx, chunks, embeddings, "openai", "text-embedding-3-small")
//
// # Hybrid Search
//
// SimilaritySearch ranks rows whose vulnerability_id matches the query
// exactly ahead of all semantic neighbors, regardless of vector distance.
// Exact rows order by document position; the rest by ascending cosine
// distance. Non-exact rows must clear the similarity threshold:
//
//	results, err := store.SimilaritySearch(ctx, queryVector, "A01:2021", 5, 0.7)
//	for _, r := range results {
//	    fmt.Printf("[%s] %s: %.3f\n", r.Source, r.VulnerabilityID, r.Similarity)
//	}
//
// # Transactions
//
// Use transactions for atomic multi-step operations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	tx.Truncate(ctx)
//	tx.UpsertChunks(ctx, chunks, embeddings, provider, model)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Build Tags
//
// The SQLite backend supports two build configurations:
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Includes sqlite-vec extension for fast vector operations
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Pure Go vector operations (slower)
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// The Postgres backend needs no tags; it requires the pgvector extension on
// the server and creates it on first connect.
package storage
