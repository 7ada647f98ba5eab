// Package embedder generates vector embeddings for knowledge-base passages
// using various providers.
//
// The embedder supports multiple providers (OpenAI, Ollama, local) and
// provides batching, caching, and retry handling for production use.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	// Generate single embedding
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "A01:2021 Broken Access Control web application security vulnerability",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Batch Processing
//
// For ingestion, use batch processing:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: chunkContents,
//	})
//
//	for i, embedding := range resp.Embeddings {
//	    // Store embedding for chunk i
//	}
//
// Embeddings come back in input order, one per text. Batch failure is
// whole-batch: a failed call returns no partial results.
//
// # Provider Selection
//
// The embedder selects a provider based on environment variables:
//
//  1. If VULNCONTEXT_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else if OLLAMA_HOST is set → use Ollama
//  4. Else → fallback to local provider (offline mode)
//
// Provider dimensions: OpenAI 1536, Ollama 768 (nomic-embed-text),
// local 384 (deterministic hash vectors for tests and development).
//
// # Caching
//
// The embedder includes an in-memory LRU cache keyed by a SHA-256 hash of
// the input text:
//
//	cache := embedder.NewCache(10000) // cache 10k embeddings
//
// Cache hits return deep copies, so callers can mutate results safely.
//
// # Error Handling
//
// Transient API failures are retried with exponential backoff:
//
//	emb, err := provider.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unavailable after retries
//	}
package embedder
