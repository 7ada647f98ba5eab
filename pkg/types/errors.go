package types

import "errors"

// Domain errors for type validation
var (
	// Finding errors
	ErrEmptyVulnerabilityID = errors.New("vulnerability ID cannot be empty")
	ErrInvalidSource        = errors.New("source must be one of: owasp, mitre, cve, custom")
	ErrDescriptionTooLong   = errors.New("description exceeds maximum length")

	// Retrieved context errors
	ErrScoreChunkMismatch    = errors.New("similarity scores must align one-to-one with chunks")
	ErrTooManyChunks         = errors.New("too many retrieved chunks")
	ErrTooManyURLs           = errors.New("too many source URLs")
	ErrQueryTooLong          = errors.New("retrieval query exceeds maximum length")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
)
