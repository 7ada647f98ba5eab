package retriever

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vulncontext/vulncontext-mcp/internal/embedder"
	"github.com/vulncontext/vulncontext-mcp/internal/storage"
	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

const (
	// DefaultTopK is the number of chunks retrieved per finding
	DefaultTopK = 5
	// DefaultSimilarityThreshold is the minimum similarity for semantic
	// neighbors; exact-id matches bypass it
	DefaultSimilarityThreshold = 0.7
	// DefaultCacheTTL bounds how long retrieval results are reused
	DefaultCacheTTL = 1 * time.Hour

	owaspQueryHint = "web application security vulnerability"
	mitreQueryHint = "attack technique threat"
)

// SearchOptions tune one retrieval call. Zero values select defaults.
// SimilarityThreshold is a pointer so an explicit 0.0, which disables the
// similarity filter, stays distinguishable from unset.
type SearchOptions struct {
	TopK                int
	SimilarityThreshold *float64
	UseCache            bool
	CacheTTL            time.Duration
}

// normalize fills defaults in place
func (o *SearchOptions) normalize() {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.SimilarityThreshold == nil {
		threshold := float64(DefaultSimilarityThreshold)
		o.SimilarityThreshold = &threshold
	}
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
}

// DefaultOptions returns the standard retrieval options
func DefaultOptions() SearchOptions {
	opts := SearchOptions{}
	opts.normalize()
	return opts
}

// cacheEntry represents a cached retrieval result with expiration time
type cacheEntry struct {
	context   *types.RetrievedContext
	expiresAt time.Time
}

// RetrievalService retrieves relevant knowledge-base chunks for a
// vulnerability identifier via hybrid search: exact-id rows always rank
// first, semantic neighbors fill the remainder.
type RetrievalService struct {
	store    storage.Store
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(store storage.Store, emb embedder.Embedder) *RetrievalService {
	// Create LRU cache with 1000 entry limit
	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &RetrievalService{
		store:    store,
		embedder: emb,
		cache:    cache,
	}
}

// SearchVulnerabilityKnowledge retrieves the most relevant knowledge chunks
// for a vulnerability identifier. Catalog metadata lookup is best-effort:
// an unknown identifier still produces a finding with an inferred source
// and a semantic query built from the bare ID.
func (s *RetrievalService) SearchVulnerabilityKnowledge(ctx context.Context, vulnerabilityID string, opts SearchOptions) (*types.RetrievedContext, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if strings.TrimSpace(vulnerabilityID) == "" {
		return nil, types.ErrEmptyVulnerabilityID
	}
	opts.normalize()

	if opts.UseCache {
		if cached := s.checkCache(vulnerabilityID, opts); cached != nil {
			return cached, nil
		}
	}

	// Catalog metadata, when the knowledge base has this exact ID
	var title string
	info, err := s.store.GetVulnerabilityInfo(ctx, vulnerabilityID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up vulnerability info: %w", err)
	}
	if info != nil {
		title = info.Title
	}

	finding := types.VulnerabilityFinding{
		ID:     vulnerabilityID,
		Source: types.InferSource(vulnerabilityID),
		Title:  title,
	}

	query := enhanceQuery(vulnerabilityID, title)

	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := s.store.SimilaritySearch(ctx, embedding.Vector, vulnerabilityID, opts.TopK, *opts.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	retrieved := buildRetrievedContext(finding, query, results)

	if opts.UseCache && !retrieved.IsEmpty() {
		s.storeInCache(vulnerabilityID, opts, retrieved)
	}

	return retrieved, nil
}

// enhanceQuery builds the semantic search query: the identifier, its known
// title, and a taxonomy-specific hint that pulls the embedding toward the
// right neighborhood
func enhanceQuery(vulnerabilityID, title string) string {
	parts := []string{vulnerabilityID}

	if title != "" {
		parts = append(parts, title)
	}

	switch types.InferSource(vulnerabilityID) {
	case types.SourceOWASP:
		parts = append(parts, owaspQueryHint)
	case types.SourceMITRE:
		parts = append(parts, mitreQueryHint)
	}

	query := strings.Join(parts, " ")
	if len(query) > types.MaxRetrievalQueryLn {
		query = query[:types.MaxRetrievalQueryLn]
	}
	return query
}

// buildRetrievedContext assembles the context value within its structural
// limits: chunk/score lists stay parallel, URLs are de-duplicated in
// first-appearance order
func buildRetrievedContext(finding types.VulnerabilityFinding, query string, results []storage.SearchResult) *types.RetrievedContext {
	if len(results) > types.MaxRetrievedChunks {
		results = results[:types.MaxRetrievedChunks]
	}

	chunks := make([]string, 0, len(results))
	scores := make([]float64, 0, len(results))
	urls := make([]string, 0, len(results))
	seen := make(map[string]struct{})

	for _, r := range results {
		chunks = append(chunks, r.Content)
		scores = append(scores, clampScore(r.Similarity))

		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		if len(urls) >= types.MaxSourceURLs {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
	}

	return &types.RetrievedContext{
		Finding:          finding,
		RetrievedChunks:  chunks,
		SourceURLs:       urls,
		SimilarityScores: scores,
		RetrievalQuery:   query,
	}
}

// clampScore bounds a similarity into [0, 1]. Cosine similarity can go
// slightly negative for dissimilar vectors; exact-id rows are included
// regardless of their distance.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// checkCache looks up a cached retrieval, removing it when expired
func (s *RetrievalService) checkCache(vulnerabilityID string, opts SearchOptions) *types.RetrievedContext {
	hash := computeCacheKey(vulnerabilityID, opts)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Return a deep copy while still holding the read lock so the entry
	// isn't modified during the copy
	result := copyRetrievedContext(entry.context)
	s.cacheMu.RUnlock()

	return result
}

// storeInCache saves a retrieval result
func (s *RetrievalService) storeInCache(vulnerabilityID string, opts SearchOptions, rc *types.RetrievedContext) {
	entry := &cacheEntry{
		context:   copyRetrievedContext(rc),
		expiresAt: time.Now().Add(opts.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeCacheKey(vulnerabilityID, opts), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops all cached retrievals, used after re-ingestion
func (s *RetrievalService) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copyRetrievedContext creates a deep copy of a RetrievedContext
func copyRetrievedContext(src *types.RetrievedContext) *types.RetrievedContext {
	if src == nil {
		return nil
	}

	dst := &types.RetrievedContext{
		Finding:          src.Finding,
		RetrievalQuery:   src.RetrievalQuery,
		RetrievedChunks:  make([]string, len(src.RetrievedChunks)),
		SourceURLs:       make([]string, len(src.SourceURLs)),
		SimilarityScores: make([]float64, len(src.SimilarityScores)),
	}
	copy(dst.RetrievedChunks, src.RetrievedChunks)
	copy(dst.SourceURLs, src.SourceURLs)
	copy(dst.SimilarityScores, src.SimilarityScores)
	return dst
}

// computeCacheKey computes a unique hash for a retrieval request
func computeCacheKey(vulnerabilityID string, opts SearchOptions) [32]byte {
	key := fmt.Sprintf("%s|%d|%.2f", vulnerabilityID, opts.TopK, *opts.SimilarityThreshold)
	return sha256.Sum256([]byte(key))
}
