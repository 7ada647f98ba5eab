package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.GetStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get store stats: %w", err)
	}

	fmt.Printf("Backend:          %s (driver: %s, vector extension: %v)\n",
		cfg.Store.Backend, storage.DriverName, storage.VectorExtensionAvailable)
	fmt.Printf("Chunks:           %d\n", stats.TotalChunks)
	fmt.Printf("Sources:          %d\n", stats.Sources)
	fmt.Printf("Vulnerabilities:  %d\n", stats.Vulnerabilities)
	fmt.Printf("Avg chunk length: %.1f chars\n", stats.AvgContentLength)
	fmt.Printf("Store size:       %.2f MB\n", stats.StoreSizeMB)
	return nil
}
