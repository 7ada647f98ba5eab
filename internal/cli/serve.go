package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/mcp"
	"github.com/vulncontext/vulncontext-mcp/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Starts the Model Context Protocol server. The server reads JSON-RPC
messages from stdin and writes responses to stdout; all logging goes to
stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting...", mcp.ServerName, mcp.ServerVersion)
	log.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		storage.BuildMode, storage.DriverName, storage.VectorExtensionAvailable)

	// The serve command keeps the knowledge base in a directory; --db names
	// the file, so pass its parent
	serveDir := ""
	if dbPath != "" {
		serveDir = filepath.Dir(dbPath)
	}

	server, err := mcp.NewServer(serveDir)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received, stopping...")
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
