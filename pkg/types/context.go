package types

// Limits on query-time context assembly. Retrieval truncates to these
// rather than erroring; Validate enforces them on already-built values.
const (
	MaxRetrievedChunks  = 20
	MaxSourceURLs       = 10
	MaxRetrievalQueryLn = 500
)

// RetrievedContext is the result of a knowledge-base retrieval for one
// vulnerability finding. Chunks and scores are parallel lists in
// descending relevance order.
type RetrievedContext struct {
	Finding          VulnerabilityFinding
	RetrievedChunks  []string
	SourceURLs       []string // de-duplicated, non-null URLs
	SimilarityScores []float64
	RetrievalQuery   string
}

// Validate checks the structural invariants of the retrieved context
func (rc *RetrievedContext) Validate() error {
	if err := rc.Finding.Validate(); err != nil {
		return err
	}

	if len(rc.RetrievedChunks) != len(rc.SimilarityScores) {
		return ErrScoreChunkMismatch
	}

	if len(rc.RetrievedChunks) > MaxRetrievedChunks {
		return ErrTooManyChunks
	}

	if len(rc.SourceURLs) > MaxSourceURLs {
		return ErrTooManyURLs
	}

	if len(rc.RetrievalQuery) > MaxRetrievalQueryLn {
		return ErrQueryTooLong
	}

	for _, s := range rc.SimilarityScores {
		if s < 0 || s > 1 {
			return ErrInvalidRelevanceScore
		}
	}

	return nil
}

// IsEmpty reports whether retrieval found nothing
func (rc *RetrievedContext) IsEmpty() bool {
	return len(rc.RetrievedChunks) == 0
}
