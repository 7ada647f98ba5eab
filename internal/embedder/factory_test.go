package embedder

import (
	"os"
	"testing"
)

func TestDetectProvider(t *testing.T) {
	// Save original env vars
	origProvider := os.Getenv(EnvProvider)
	origOpenAI := os.Getenv(EnvOpenAIAPIKey)
	origOllama := os.Getenv(EnvOllamaHost)

	// Restore after test
	defer func() {
		os.Setenv(EnvProvider, origProvider)
		os.Setenv(EnvOpenAIAPIKey, origOpenAI)
		os.Setenv(EnvOllamaHost, origOllama)
	}()

	tests := []struct {
		name           string
		provider       string
		openaiKey      string
		ollamaHost     string
		expectedResult string
	}{
		{
			name:           "explicit openai provider",
			provider:       "openai",
			expectedResult: ProviderOpenAI,
		},
		{
			name:           "explicit ollama provider",
			provider:       "ollama",
			expectedResult: ProviderOllama,
		},
		{
			name:           "explicit local provider",
			provider:       "local",
			expectedResult: ProviderLocal,
		},
		{
			name:           "openai key present",
			openaiKey:      "test-key",
			expectedResult: ProviderOpenAI,
		},
		{
			name:           "ollama host present",
			ollamaHost:     "http://localhost:11434",
			expectedResult: ProviderOllama,
		},
		{
			name:           "both configured, openai takes precedence",
			openaiKey:      "test-key",
			ollamaHost:     "http://localhost:11434",
			expectedResult: ProviderOpenAI,
		},
		{
			name:           "no provider, no config - fallback to local",
			expectedResult: ProviderLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setOrUnset(EnvProvider, tt.provider)
			setOrUnset(EnvOpenAIAPIKey, tt.openaiKey)
			setOrUnset(EnvOllamaHost, tt.ollamaHost)

			got := DetectProvider()
			if got != tt.expectedResult {
				t.Errorf("DetectProvider() = %v, want %v", got, tt.expectedResult)
			}
		})
	}
}

func setOrUnset(key, val string) {
	if val != "" {
		os.Setenv(key, val)
	} else {
		os.Unsetenv(key)
	}
}

func TestNewFromEnv(t *testing.T) {
	// Save original env vars
	origProvider := os.Getenv(EnvProvider)
	origOpenAI := os.Getenv(EnvOpenAIAPIKey)
	origOllama := os.Getenv(EnvOllamaHost)

	// Restore after test
	defer func() {
		os.Setenv(EnvProvider, origProvider)
		os.Setenv(EnvOpenAIAPIKey, origOpenAI)
		os.Setenv(EnvOllamaHost, origOllama)
	}()

	t.Run("local provider (no config)", func(t *testing.T) {
		os.Unsetenv(EnvProvider)
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOllamaHost)

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderLocal {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderLocal)
		}
	})

	t.Run("explicit local provider", func(t *testing.T) {
		os.Setenv(EnvProvider, "local")
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOllamaHost)

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderLocal {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderLocal)
		}
	})

	t.Run("openai with api key", func(t *testing.T) {
		os.Setenv(EnvProvider, "openai")
		os.Setenv(EnvOpenAIAPIKey, "test-openai-key")
		os.Unsetenv(EnvOllamaHost)

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOpenAI {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderOpenAI)
		}
	})

	t.Run("openai without api key", func(t *testing.T) {
		os.Setenv(EnvProvider, "openai")
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOllamaHost)

		_, err := NewFromEnv()
		if err == nil {
			t.Error("Expected error when OPENAI_API_KEY not set")
		}
	})

	t.Run("ollama defaults host when unset", func(t *testing.T) {
		os.Setenv(EnvProvider, "ollama")
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOllamaHost)

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOllama {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderOllama)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		os.Setenv(EnvProvider, "unknown")
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Unsetenv(EnvOllamaHost)

		_, err := NewFromEnv()
		if err == nil {
			t.Error("Expected error for unknown provider")
		}
	})

	t.Run("auto-detect openai", func(t *testing.T) {
		os.Unsetenv(EnvProvider)
		os.Setenv(EnvOpenAIAPIKey, "test-key")
		os.Unsetenv(EnvOllamaHost)

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOpenAI {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderOpenAI)
		}
	})

	t.Run("auto-detect ollama", func(t *testing.T) {
		os.Unsetenv(EnvProvider)
		os.Unsetenv(EnvOpenAIAPIKey)
		os.Setenv(EnvOllamaHost, "http://localhost:11434")

		emb, err := NewFromEnv()
		if err != nil {
			t.Fatalf("NewFromEnv() error = %v", err)
		}
		defer emb.Close()

		if emb.Provider() != ProviderOllama {
			t.Errorf("Provider = %s, want %s", emb.Provider(), ProviderOllama)
		}
	})
}

func TestNewWithConfig(t *testing.T) {
	origOpenAI := os.Getenv(EnvOpenAIAPIKey)
	defer func() {
		if origOpenAI != "" {
			os.Setenv(EnvOpenAIAPIKey, origOpenAI)
		}
	}()

	tests := []struct {
		name     string
		cfg      Config
		wantErr  bool
		wantProv string
	}{
		{
			name: "openai with key",
			cfg: Config{
				Provider:  ProviderOpenAI,
				APIKey:    "test-key",
				CacheSize: 100,
			},
			wantProv: ProviderOpenAI,
		},
		{
			name: "ollama with host",
			cfg: Config{
				Provider:  ProviderOllama,
				Host:      "http://ollama.internal:11434",
				CacheSize: 100,
			},
			wantProv: ProviderOllama,
		},
		{
			name: "local provider",
			cfg: Config{
				Provider:  ProviderLocal,
				CacheSize: 50,
			},
			wantProv: ProviderLocal,
		},
		{
			name: "openai without key",
			cfg: Config{
				Provider: ProviderOpenAI,
			},
			wantErr: true,
		},
		{
			name: "unknown provider",
			cfg: Config{
				Provider: "unknown",
			},
			wantErr: true,
		},
		{
			name: "case insensitive provider",
			cfg: Config{
				Provider: "OPENAI",
				APIKey:   "test-key",
			},
			wantProv: ProviderOpenAI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv(EnvOpenAIAPIKey)

			emb, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				defer emb.Close()
				if emb.Provider() != tt.wantProv {
					t.Errorf("Provider = %s, want %s", emb.Provider(), tt.wantProv)
				}
			}
		})
	}
}
