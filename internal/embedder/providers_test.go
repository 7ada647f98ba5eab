package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider(t *testing.T) {
	t.Run("provider metadata", func(t *testing.T) {
		cache := NewCache(10)
		provider, err := NewOpenAIProvider("test-key", cache)
		if err != nil {
			t.Fatalf("NewOpenAIProvider() error = %v", err)
		}
		defer provider.Close()

		if provider.Provider() != ProviderOpenAI {
			t.Errorf("Provider() = %s, want %s", provider.Provider(), ProviderOpenAI)
		}
		if provider.Dimension() != OpenAIDimension {
			t.Errorf("Dimension() = %d, want %d", provider.Dimension(), OpenAIDimension)
		}
		if provider.Model() != DefaultOpenAIModel {
			t.Errorf("Model() = %s, want %s", provider.Model(), DefaultOpenAIModel)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		orig := os.Getenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOpenAIAPIKey)
		defer func() {
			if orig != "" {
				os.Setenv(EnvOpenAIAPIKey, orig)
			}
		}()

		_, err := NewOpenAIProvider("", nil)
		if err == nil {
			t.Error("Expected error for missing API key")
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		cache := NewCache(10)
		provider, _ := NewOpenAIProvider("test-key", cache)
		defer provider.Close()

		ctx := context.Background()

		// Empty text
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		if err == nil {
			t.Error("Expected error for empty text")
		}

		// Empty batch
		_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{}})
		if err == nil {
			t.Error("Expected error for empty batch")
		}

		// Batch too large
		largeTexts := make([]string, MaxBatchSize+1)
		for i := range largeTexts {
			largeTexts[i] = "text"
		}
		_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: largeTexts})
		if err == nil {
			t.Error("Expected error for batch size exceeding max")
		}
	})
}

func TestOllamaProvider(t *testing.T) {
	t.Run("successful embedding via mock server", func(t *testing.T) {
		callCount := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callCount++

			if r.Method != "POST" {
				t.Errorf("Expected POST request, got %s", r.Method)
			}
			if r.URL.Path != "/api/embeddings" {
				t.Errorf("Expected /api/embeddings path, got %s", r.URL.Path)
			}

			var body struct {
				Model  string `json:"model"`
				Prompt string `json:"prompt"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("Failed to decode request body: %v", err)
			}
			if body.Prompt == "" {
				t.Error("Expected non-empty prompt")
			}

			resp := map[string]interface{}{
				"embedding": make([]float32, OllamaDimension),
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		cache := NewCache(10)
		provider, err := NewOllamaProvider(server.URL, cache)
		require.NoError(t, err)
		defer provider.Close()

		ctx := context.Background()
		emb, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "broken access control"})
		require.NoError(t, err)
		assert.Equal(t, OllamaDimension, len(emb.Vector))
		assert.Equal(t, ProviderOllama, emb.Provider)
		assert.Equal(t, 1, callCount)

		// Second call hits cache, not the server
		_, err = provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "broken access control"})
		require.NoError(t, err)
		assert.Equal(t, 1, callCount, "cached request should not reach server")
	})

	t.Run("batch preserves input order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Prompt string `json:"prompt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)

			// Encode prompt length into the first component so order is checkable
			vec := make([]float32, OllamaDimension)
			vec[0] = float32(len(body.Prompt))
			resp := map[string]interface{}{"embedding": vec}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		provider, err := NewOllamaProvider(server.URL, nil)
		require.NoError(t, err)
		defer provider.Close()

		texts := []string{"a", "bb", "ccc"}
		resp, err := provider.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		for i, text := range texts {
			assert.Equal(t, float32(len(text)), resp.Embeddings[i].Vector[0], "embedding %d out of order", i)
		}
	})

	t.Run("server error propagates as provider failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		provider, err := NewOllamaProvider(server.URL, nil)
		require.NoError(t, err)
		defer provider.Close()

		_, err = provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrProviderFailed)
	})

	t.Run("provider metadata", func(t *testing.T) {
		provider, err := NewOllamaProvider("http://localhost:11434", nil)
		require.NoError(t, err)
		defer provider.Close()

		assert.Equal(t, ProviderOllama, provider.Provider())
		assert.Equal(t, OllamaDimension, provider.Dimension())
		assert.Equal(t, DefaultOllamaModel, provider.Model())
	})

	t.Run("validation errors", func(t *testing.T) {
		provider, _ := NewOllamaProvider("http://localhost:11434", nil)
		defer provider.Close()

		ctx := context.Background()

		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		if err == nil {
			t.Error("Expected error for empty text")
		}

		_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{}})
		if err == nil {
			t.Error("Expected error for empty batch")
		}

		largeTexts := make([]string, MaxBatchSize+1)
		for i := range largeTexts {
			largeTexts[i] = "text"
		}
		_, err = provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: largeTexts})
		if err == nil {
			t.Error("Expected error for batch size exceeding max")
		}
	})
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after transient failure", func(t *testing.T) {
		ctx := context.Background()
		config := DefaultRetryConfig()

		callCount := 0
		successFn := func() (string, error) {
			callCount++
			if callCount < 2 {
				return "", fmt.Errorf("transient error")
			}
			return "success", nil
		}

		result, err := retryWithBackoff(ctx, config, successFn)
		assert.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 2, callCount, "Should retry once and succeed on second attempt")
	})

	t.Run("exponential backoff timing", func(t *testing.T) {
		ctx := context.Background()
		config := RetryConfig{
			MaxRetries: 3,
			BaseDelay:  10 * time.Millisecond,
			MaxDelay:   100 * time.Millisecond,
			Multiplier: 2.0,
		}

		callCount := 0
		startTime := time.Now()
		failFn := func() (int, error) {
			callCount++
			return 0, fmt.Errorf("always fails")
		}

		_, err := retryWithBackoff(ctx, config, failFn)
		elapsed := time.Since(startTime)

		assert.Error(t, err)
		assert.Equal(t, 3, callCount, "Should retry MaxRetries times")
		// Should wait: 10ms + 20ms = 30ms minimum
		assert.GreaterOrEqual(t, elapsed.Milliseconds(), int64(30))
	})

	t.Run("max retries limit", func(t *testing.T) {
		ctx := context.Background()
		config := RetryConfig{
			MaxRetries: 5,
			BaseDelay:  1 * time.Millisecond,
			MaxDelay:   10 * time.Millisecond,
			Multiplier: 2.0,
		}

		callCount := 0
		alwaysFailFn := func() (bool, error) {
			callCount++
			return false, fmt.Errorf("error %d", callCount)
		}

		_, err := retryWithBackoff(ctx, config, alwaysFailFn)
		assert.Error(t, err)
		assert.Equal(t, 5, callCount, "Should stop after MaxRetries attempts")
		assert.Contains(t, err.Error(), "error 5", "Should return last error")
	})

	t.Run("context cancellation during retry", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		config := RetryConfig{
			MaxRetries: 10,
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   100 * time.Millisecond,
			Multiplier: 2.0,
		}

		callCount := 0
		fnWithCancel := func() (string, error) {
			callCount++
			if callCount == 2 {
				cancel() // Cancel after first retry
			}
			return "", fmt.Errorf("error")
		}

		_, err := retryWithBackoff(ctx, config, fnWithCancel)
		assert.Error(t, err)
		assert.Equal(t, context.Canceled, err, "Should return context.Canceled")
		assert.LessOrEqual(t, callCount, 3, "Should stop retrying after context cancellation")
	})

	t.Run("immediate success no retry", func(t *testing.T) {
		ctx := context.Background()
		config := DefaultRetryConfig()

		callCount := 0
		immediateFn := func() (int, error) {
			callCount++
			return 42, nil
		}

		result, err := retryWithBackoff(ctx, config, immediateFn)
		assert.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 1, callCount, "Should succeed on first try without retries")
	})

	t.Run("max delay cap is enforced", func(t *testing.T) {
		ctx := context.Background()
		config := RetryConfig{
			MaxRetries: 5,
			BaseDelay:  10 * time.Millisecond,
			MaxDelay:   20 * time.Millisecond,
			Multiplier: 4.0, // Would grow: 10, 40, 160, 640...
		}

		delays := []time.Duration{}
		callCount := 0
		lastTime := time.Now()

		failFn := func() (int, error) {
			callCount++
			if callCount > 1 {
				elapsed := time.Since(lastTime)
				delays = append(delays, elapsed)
			}
			lastTime = time.Now()
			return 0, fmt.Errorf("error")
		}

		_, err := retryWithBackoff(ctx, config, failFn)
		assert.Error(t, err)

		for i, delay := range delays {
			// Allow some tolerance for timing
			assert.LessOrEqual(t, delay.Milliseconds(), int64(30), "Delay %d should be capped at MaxDelay", i)
		}
	})
}

func TestOllamaRetriesTransientErrors(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		if callCount < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{
			"embedding": make([]float32, OllamaDimension),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(server.URL, nil)
	require.NoError(t, err)
	defer provider.Close()

	emb, err := provider.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "retryable"})
	require.NoError(t, err)
	assert.Equal(t, OllamaDimension, len(emb.Vector))
	assert.Equal(t, 3, callCount, "should succeed on the third attempt")
}

func TestProviderCaching(t *testing.T) {
	t.Run("cache hit avoids API call", func(t *testing.T) {
		cache := NewCache(100)
		provider, err := NewLocalProvider(cache)
		if err != nil {
			t.Fatalf("NewLocalProvider() error = %v", err)
		}
		defer provider.Close()

		ctx := context.Background()
		text := "cached vulnerability passage"

		emb1, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			t.Fatalf("First call error = %v", err)
		}

		hash := ComputeHash(text)
		if cache.Size() == 0 {
			t.Error("Expected cache to have entry")
		}

		cached, ok := cache.Get(hash)
		if !ok {
			t.Error("Expected cache hit")
		}

		emb2, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			t.Fatalf("Second call error = %v", err)
		}

		if len(emb1.Vector) != len(emb2.Vector) {
			t.Error("Cached embedding has different dimension")
		}

		if cached.Hash != emb2.Hash {
			t.Error("Cache returned different embedding")
		}
	})

	t.Run("different text gets different embedding", func(t *testing.T) {
		cache := NewCache(100)
		provider, err := NewLocalProvider(cache)
		if err != nil {
			t.Fatalf("NewLocalProvider() error = %v", err)
		}
		defer provider.Close()

		ctx := context.Background()

		emb1, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "text one"})
		if err != nil {
			t.Fatalf("Error = %v", err)
		}

		emb2, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "text two"})
		if err != nil {
			t.Fatalf("Error = %v", err)
		}

		if emb1.Hash == emb2.Hash {
			t.Error("Expected different hashes for different texts")
		}

		if cache.Size() != 2 {
			t.Errorf("Cache size = %d, want 2", cache.Size())
		}
	})

	t.Run("batch caching", func(t *testing.T) {
		cache := NewCache(100)
		provider, err := NewLocalProvider(cache)
		if err != nil {
			t.Fatalf("NewLocalProvider() error = %v", err)
		}
		defer provider.Close()

		ctx := context.Background()
		texts := []string{"passage1", "passage2", "passage3"}

		resp, err := provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			t.Fatalf("GenerateBatch() error = %v", err)
		}

		if len(resp.Embeddings) != 3 {
			t.Errorf("Got %d embeddings, want 3", len(resp.Embeddings))
		}

		if cache.Size() != 3 {
			t.Errorf("Cache size = %d, want 3", cache.Size())
		}

		for _, text := range texts {
			hash := ComputeHash(text)
			if _, ok := cache.Get(hash); !ok {
				t.Errorf("Expected cache hit for text: %s", text)
			}
		}
	})
}

func TestContextCancellation(t *testing.T) {
	t.Run("cancelled context", func(t *testing.T) {
		provider, err := NewLocalProvider(nil)
		if err != nil {
			t.Fatalf("NewLocalProvider() error = %v", err)
		}
		defer provider.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		// Local provider doesn't check context; must not panic
		_, _ = provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "test"})
	})
}

func TestProviderClose(t *testing.T) {
	providers := []struct {
		name     string
		provider Embedder
	}{
		{
			name:     "local",
			provider: mustNewLocalProvider(t),
		},
	}

	for _, tc := range providers {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.provider.Close()
			if err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func mustNewLocalProvider(t *testing.T) *LocalProvider {
	t.Helper()
	p, err := NewLocalProvider(NewCache(10))
	if err != nil {
		t.Fatalf("NewLocalProvider() error = %v", err)
	}
	return p
}
