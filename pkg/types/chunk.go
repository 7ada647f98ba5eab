package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Chunk represents a token-budgeted slice of a knowledge-base document,
// paired with its provenance metadata, ready for embedding and search
type Chunk struct {
	// Identification
	ID int64

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 over source|vulnerability_id|order_index|content
	TokenCount  int

	// Provenance
	VulnerabilityID string
	Title           string
	Source          string // taxonomy tag: owasp, mitre, cve, custom
	URL             string // optional

	// Position within the document's chunk sequence
	OrderIndex int

	// Overlap flags: whether content was extended with trailing text from
	// the predecessor (pre) or contributes trailing text to the successor (post)
	OverlapPre  bool
	OverlapPost bool
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.OrderIndex < 0 {
		return errors.New("order index must be non-negative")
	}

	if c.TokenCount < 1 {
		return errors.New("token count must be at least 1")
	}

	return nil
}

// ComputeTokenCount estimates the number of tokens in the chunk
// Uses a simple heuristic: characters / 4, minimum 1
func (c *Chunk) ComputeTokenCount() int {
	// Average English word is ~4 chars; good enough for budget math.
	// Counted in characters so multibyte content is not over-counted.
	count := utf8.RuneCountInString(c.Content) / 4
	if count < 1 {
		count = 1
	}
	c.TokenCount = count
	return c.TokenCount
}

// HashInput returns the canonical serialization the content hash covers.
// Changing any one field produces a different hash.
func (c *Chunk) HashInput() string {
	return fmt.Sprintf("%s|%s|%d|%s", c.Source, c.VulnerabilityID, c.OrderIndex, c.Content)
}

// ComputeContentHash computes the deterministic SHA-256 hash used for
// idempotent upserts: identical input always maps to the same stored row
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.HashInput()))
}

// ContentHashHex returns the content hash as a lowercase hex string,
// the form the store keys rows by
func (c *Chunk) ContentHashHex() string {
	return hex.EncodeToString(c.ContentHash[:])
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if c.VulnerabilityID == "" {
		return errors.New("vulnerability ID is required")
	}

	if !ValidSource(c.Source) {
		return ErrInvalidSource
	}

	// Verify content hash is computed
	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}
