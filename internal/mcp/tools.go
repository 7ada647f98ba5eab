package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vulncontext/vulncontext-mcp/internal/orchestrator"
	"github.com/vulncontext/vulncontext-mcp/internal/retriever"
	"github.com/vulncontext/vulncontext-mcp/internal/scan"
	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyID        = -32001 // Vulnerability identifier missing or blank
	ErrorCodeEmptyScanInput = -32002 // Scan content is empty or whitespace-only
)

// handleSearchKnowledge handles the search_vulnerability_knowledge tool invocation
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	vulnID, ok := args["vulnerability_id"].(string)
	if !ok || strings.TrimSpace(vulnID) == "" {
		return nil, newMCPError(ErrorCodeEmptyID, "vulnerability_id parameter is required and cannot be empty", map[string]interface{}{
			"param":  "vulnerability_id",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", retriever.DefaultTopK)
	if topK < 1 || topK > types.MaxRetrievedChunks {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", types.MaxRetrievedChunks), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	threshold := getFloatDefault(args, "similarity_threshold", retriever.DefaultSimilarityThreshold)
	if threshold < 0 || threshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "similarity_threshold must be between 0.0 and 1.0", map[string]interface{}{
			"param": "similarity_threshold",
			"value": threshold,
		})
	}

	opts := retriever.SearchOptions{
		TopK:                topK,
		SimilarityThreshold: &threshold,
		UseCache:            getBoolDefault(args, "use_cache", true),
	}

	rc, err := s.retriever.SearchVulnerabilityKnowledge(ctx, vulnID, opts)
	if err != nil {
		if errors.Is(err, types.ErrEmptyVulnerabilityID) {
			return nil, newMCPError(ErrorCodeEmptyID, "vulnerability_id cannot be empty", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(retrievedContextResponse(rc))), nil
}

// handleAnalyzeScanReport handles the analyze_scan_report tool invocation
func (s *Server) handleAnalyzeScanReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeEmptyScanInput, "content parameter is required and cannot be empty", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	maxConcurrent := getIntDefault(args, "max_concurrent", orchestrator.DefaultMaxConcurrent)
	if maxConcurrent < 1 || maxConcurrent > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_concurrent must be between 1 and 10", map[string]interface{}{
			"param": "max_concurrent",
			"value": maxConcurrent,
		})
	}

	timeoutSeconds := getIntDefault(args, "timeout_seconds", int(orchestrator.DefaultUnitTimeout/time.Second))
	if timeoutSeconds < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "timeout_seconds must be positive", map[string]interface{}{
			"param": "timeout_seconds",
			"value": timeoutSeconds,
		})
	}

	config := &orchestrator.Config{
		MaxConcurrent: maxConcurrent,
		UnitTimeout:   time.Duration(timeoutSeconds) * time.Second,
		Search: retriever.SearchOptions{
			TopK: getIntDefault(args, "top_k", retriever.DefaultTopK),
		},
	}

	batch, err := s.orchestrator.AnalyzeScanReport(ctx, content, config)
	if err != nil {
		if errors.Is(err, scan.ErrEmptyInput) {
			return nil, newMCPError(ErrorCodeEmptyScanInput, "scan content is empty or contains only whitespace", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "scan analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(batch.Results))
	for _, rc := range batch.Results {
		results = append(results, retrievedContextResponse(rc))
	}

	failures := make([]map[string]interface{}, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		failures = append(failures, map[string]interface{}{
			"vulnerability_id": f.VulnerabilityID,
			"error":            f.Err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":     results,
		"failures":    failures,
		"succeeded":   len(results),
		"failed":      len(failures),
		"duration_ms": batch.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleKBStatus handles the kb_status tool invocation
func (s *Server) handleKBStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.storage.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get knowledge base stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total_chunks":       stats.TotalChunks,
		"sources":            stats.Sources,
		"vulnerabilities":    stats.Vulnerabilities,
		"avg_content_length": fmt.Sprintf("%.1f", stats.AvgContentLength),
		"store_size_mb":      fmt.Sprintf("%.2f", stats.StoreSizeMB),
		"server":             ServerName,
		"version":            ServerVersion,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// retrievedContextResponse flattens a RetrievedContext into a response map
func retrievedContextResponse(rc *types.RetrievedContext) map[string]interface{} {
	chunks := make([]map[string]interface{}, 0, len(rc.RetrievedChunks))
	for i, content := range rc.RetrievedChunks {
		chunks = append(chunks, map[string]interface{}{
			"content": content,
			"score":   rc.SimilarityScores[i],
		})
	}

	finding := map[string]interface{}{
		"id":     rc.Finding.ID,
		"source": string(rc.Finding.Source),
	}
	if rc.Finding.Title != "" {
		finding["title"] = rc.Finding.Title
	}

	return map[string]interface{}{
		"finding":         finding,
		"chunks":          chunks,
		"source_urls":     rc.SourceURLs,
		"retrieval_query": rc.RetrievalQuery,
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	return defaultValue
}
