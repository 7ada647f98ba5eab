// Package chunker divides long-form vulnerability documents into
// token-budgeted, overlapping passages for embedding and search.
//
// # Basic Usage
//
//	c := chunker.New()
//	chunks := c.ChunkDocument(description, chunker.DocumentMeta{
//	    ID:     "A01:2021",
//	    Title:  "Broken Access Control",
//	    Source: "owasp",
//	    URL:    "https://owasp.org/Top10/A01_2021",
//	}, chunker.DefaultOptions())
//
//	for _, chunk := range chunks {
//	    fmt.Printf("chunk %d: %d tokens\n", chunk.OrderIndex, chunk.TokenCount)
//	}
//
// # Splitting Strategy
//
// Text is split by a prioritized separator cascade, most structural first:
// paragraph breaks, line breaks, sentence punctuation, clause punctuation,
// single spaces, and finally fixed-width character slicing. Consecutive
// parts are greedily recombined into the largest run still under the max
// token budget. Parts that alone exceed the budget drop to the next
// separator level. Short trailing fragments are retained rather than
// discarded, and blank fragments never appear in output.
//
// # Overlap
//
// With a non-zero overlap budget, each chunk after the first is prefixed
// with the trailing words of its predecessor, trimmed at a word boundary.
// Overlap is backward-looking only and is not re-checked against the max
// budget, so a rendered chunk can exceed it by up to the overlap budget.
//
// # Token Estimation
//
// Token counts use a simple heuristic (chars/4) with a floor of 1. This is
// a model-agnostic approximation, not a real tokenizer.
//
// # Content Hashing
//
// Each chunk carries a SHA-256 hash over (source, vulnerability_id,
// order_index, content). Identical input always produces the same hash,
// which the store uses to upsert instead of duplicating on re-ingestion.
package chunker
