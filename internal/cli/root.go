package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/config"
	"github.com/vulncontext/vulncontext-mcp/internal/embedder"
	"github.com/vulncontext/vulncontext-mcp/internal/storage"
)

var (
	cfgFile string
	dbPath  string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vulncontext",
	Short: "Vulnerability knowledge base with hybrid retrieval",
	Long: `vulncontext maintains a vulnerability knowledge base (OWASP, MITRE ATT&CK,
CVE) with embedding-backed hybrid retrieval, and serves it to AI assistants
over the Model Context Protocol.

Example usage:
  vulncontext ingest --input chunks.jsonl   # Populate the knowledge base
  vulncontext parse --in scan.txt           # Extract vulnerability IDs
  vulncontext status                        # Knowledge base statistics
  vulncontext serve                         # Start the MCP stdio server`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vulncontext.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (default is ~/.vulncontext/vulncontext.db)")
}

// openStore opens the configured store backend. The --db flag and a
// DATABASE_URL environment variable (for the postgres backend) take
// precedence over the config file.
func openStore() (storage.Store, error) {
	if cfg.Store.Backend == "postgres" {
		url := cfg.DatabaseURL()
		if url == "" {
			return nil, fmt.Errorf("postgres backend selected but %s is not set", cfg.Store.DatabaseURLEnv)
		}
		return storage.NewPostgresStore(url, cfg.Store.Dimension)
	}

	path := dbPath
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir := filepath.Join(home, ".vulncontext")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = filepath.Join(dir, "vulncontext.db")
	}

	return storage.NewSQLiteStore(path)
}

// newEmbedder builds the embedding provider from config, falling back to
// environment detection when the config names no provider.
func newEmbedder() (embedder.Embedder, error) {
	if cfg.Embedding.Provider == "" {
		return embedder.NewFromEnv()
	}
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    cfg.APIKey(),
		Host:      os.Getenv(cfg.Embedding.HostEnv),
		CacheSize: cfg.Embedding.CacheSize,
	})
}
