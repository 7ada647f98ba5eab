// Package retriever implements hybrid knowledge retrieval for vulnerability findings.
//
// Given a vulnerability identifier (OWASP, MITRE ATT&CK, CVE, or a custom ID),
// the retriever builds an enhanced semantic query, embeds it, and runs a hybrid
// search that always surfaces the finding's own chunks first, followed by
// semantically similar chunks from related vulnerabilities.
//
// # Basic Usage
//
//	svc := retriever.NewRetrievalService(store, embedder)
//
//	rc, err := svc.SearchVulnerabilityKnowledge(ctx, "A01:2021", retriever.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for i, chunk := range rc.RetrievedChunks {
//	    fmt.Printf("[%.2f] %s\n", rc.SimilarityScores[i], chunk)
//	}
//
// # Query Enhancement
//
// The retrieval query is built from the identifier, the finding's title when
// the store knows it, and a source-specific hint:
//
//   - OWASP:  "A01:2021 Broken Access Control web application security vulnerability"
//   - MITRE:  "T1059 Command and Scripting Interpreter attack technique threat"
//   - CVE and custom IDs get no hint
//
// Queries are truncated to a fixed byte limit before embedding.
//
// # Hybrid Search Semantics
//
// Chunks belonging to the requested vulnerability bypass the similarity
// threshold and appear first, in document order. Remaining slots are filled
// with chunks from other vulnerabilities whose cosine similarity meets the
// threshold, ranked by similarity.
//
// # Caching
//
// Results are cached per (id, topK, threshold) in an LRU with a one hour
// default TTL. Caching is opt-in via SearchOptions.UseCache; empty results
// are never cached.
package retriever
