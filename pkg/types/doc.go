// Package types provides shared type definitions for the VulnContext MCP server.
//
// This package defines domain types used across multiple components of
// VulnContext, including chunks, vulnerability findings, and retrieved
// context.
//
// # Core Types
//
// Chunk represents a token-budgeted slice of a knowledge-base document with
// its provenance metadata:
//
//	chunk := &types.Chunk{
//	    Content:         passage,
//	    VulnerabilityID: "A01:2021",
//	    Source:          string(types.SourceOWASP),
//	    OrderIndex:      0,
//	}
//	chunk.ComputeTokenCount()
//	chunk.ComputeContentHash()
//
// The content hash is deterministic over (source, vulnerability_id,
// order_index, content), so re-ingesting identical input upserts rather than
// duplicates.
//
// VulnerabilityFinding identifies a vulnerability under analysis. Its source
// taxonomy can be inferred syntactically from the identifier:
//
//	types.InferSource("A01:2021")   // SourceOWASP
//	types.InferSource("T1059.001")  // SourceMITRE
//	types.InferSource("CVE-2021-44228") // SourceCVE
//
// RetrievedContext is the query-time result: retrieved chunk texts paired
// position-for-position with similarity scores, plus de-duplicated source
// URLs and the enhanced query actually issued.
//
// # Validation
//
// All domain types implement validation methods to ensure data integrity:
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := ctx.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Similarity scores are normalized to [0, 1], with higher values indicating
// better matches.
package types
