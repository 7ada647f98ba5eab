package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// similaritySearch performs hybrid search over the knowledge base: rows whose
// vulnerability_id matches exactly always rank ahead of semantic neighbors,
// regardless of their distance to the query vector. Non-exact rows must clear
// the similarity threshold to be included at all.
func similaritySearch(ctx context.Context, db *sql.DB, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	if topK <= 0 {
		return []SearchResult{}, nil
	}

	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return similaritySearchOptimized(ctx, db, queryVector, vulnerabilityID, topK, threshold)
	}
	// Fall back to Go-based computation for purego builds
	return similaritySearchFallback(ctx, db, queryVector, vulnerabilityID, topK, threshold)
}

// similaritySearchOptimized uses the sqlite-vec extension to compute distance
// at the database layer
func similaritySearchOptimized(ctx context.Context, db *sql.DB, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	queryVectorBlob := serializeVector(queryVector)

	// Note: sqlite-vec's vec_distance_cosine returns distance (lower is better)
	// We convert to similarity (1 - distance) to maintain API compatibility.
	// Exact-id rows sort among themselves by document position, everything
	// else by ascending distance.
	query := `
		SELECT
			content, title, url, source, vulnerability_id, order_index,
			1.0 - vec_distance_cosine(embedding, ?) as similarity
		FROM vulnerability_knowledge
		WHERE vulnerability_id = ? OR (1.0 - vec_distance_cosine(embedding, ?)) >= ?
		ORDER BY
			CASE WHEN vulnerability_id = ? THEN 0 ELSE 1 END,
			CASE WHEN vulnerability_id = ? THEN order_index ELSE 0 END,
			similarity DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query,
		queryVectorBlob, vulnerabilityID, queryVectorBlob, threshold,
		vulnerabilityID, vulnerabilityID, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0, topK)
	for rows.Next() {
		var result SearchResult
		var url sql.NullString
		if err := rows.Scan(
			&result.Content, &result.Title, &url, &result.Source,
			&result.VulnerabilityID, &result.OrderIndex, &result.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if url.Valid {
			result.URL = url.String
		}
		result.ExactMatch = result.VulnerabilityID == vulnerabilityID
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// similaritySearchFallback loads candidate embeddings and computes cosine
// similarity in Go. This is used when the sqlite-vec extension is not
// available (purego builds).
func similaritySearchFallback(ctx context.Context, db *sql.DB, queryVector []float32, vulnerabilityID string, topK int, threshold float64) ([]SearchResult, error) {
	query := `
		SELECT content, title, url, source, vulnerability_id, order_index, embedding
		FROM vulnerability_knowledge
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := collectSearchCandidates(rows, queryVector, vulnerabilityID, threshold)
	if err != nil {
		return nil, err
	}

	sortSearchCandidates(candidates)

	if topK > len(candidates) {
		topK = len(candidates)
	}
	return candidates[:topK], nil
}

// collectSearchCandidates scans rows, computes similarity, and keeps rows
// that either match the vulnerability ID exactly or clear the threshold
func collectSearchCandidates(rows *sql.Rows, queryVector []float32, vulnerabilityID string, threshold float64) ([]SearchResult, error) {
	candidates := make([]SearchResult, 0, 1000)

	for rows.Next() {
		var result SearchResult
		var url sql.NullString
		var vectorBlob []byte
		if err := rows.Scan(
			&result.Content, &result.Title, &url, &result.Source,
			&result.VulnerabilityID, &result.OrderIndex, &vectorBlob,
		); err != nil {
			return nil, err
		}
		if url.Valid {
			result.URL = url.String
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		result.Similarity = cosineSimilarity(queryVector, vector)
		result.ExactMatch = result.VulnerabilityID == vulnerabilityID

		if !result.ExactMatch && result.Similarity < threshold {
			continue
		}

		candidates = append(candidates, result)
	}

	return candidates, rows.Err()
}

// sortSearchCandidates orders exact matches first by document position,
// then the rest by descending similarity
func sortSearchCandidates(candidates []SearchResult) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ExactMatch != b.ExactMatch {
			return a.ExactMatch
		}
		if a.ExactMatch {
			return a.OrderIndex < b.OrderIndex
		}
		return a.Similarity > b.Similarity
	})
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
