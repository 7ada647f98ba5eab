package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/vulncontext/vulncontext-mcp/internal/embedder"
	"github.com/vulncontext/vulncontext-mcp/internal/orchestrator"
	"github.com/vulncontext/vulncontext-mcp/internal/retriever"
	"github.com/vulncontext/vulncontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "vulncontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the knowledge base
	DefaultDBPath = "~/.vulncontext"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp          *server.MCPServer
	storage      storage.Store
	retriever    *retriever.RetrievalService
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

// NewServer creates a new MCP server instance backed by a SQLite knowledge
// base at dbPath. Embedding provider selection comes from the environment.
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".vulncontext")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "vulncontext.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return newServer(store, emb)
}

// newServer wires the retrieval service and orchestrator around the given
// dependencies. The embedder instance is shared so query embeddings cached
// during one retrieval serve subsequent ones.
func newServer(store storage.Store, emb embedder.Embedder) (*Server, error) {
	// stdout carries the MCP protocol; logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	retr := retriever.NewRetrievalService(store, emb)
	orch := orchestrator.New(retr, logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:          mcpServer,
		storage:      store,
		retriever:    retr,
		orchestrator: orch,
		logger:       logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(searchKnowledgeTool(), s.handleSearchKnowledge)
	s.mcp.AddTool(analyzeScanReportTool(), s.handleAnalyzeScanReport)
	s.mcp.AddTool(kbStatusTool(), s.handleKBStatus)
	return nil
}
