package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchKnowledgeTool returns the tool definition for search_vulnerability_knowledge
func searchKnowledgeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_vulnerability_knowledge",
		Description: "Retrieve knowledge base context for a vulnerability identifier (OWASP, MITRE ATT&CK, CVE, or custom)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"vulnerability_id": map[string]interface{}{
					"type":        "string",
					"description": "Vulnerability identifier, e.g. A01:2021, T1059.001, CVE-2023-12345",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to retrieve (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
				"similarity_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity for non-exact matches (0.0-1.0)",
					"default":     0.7,
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, serve repeated lookups from the result cache",
					"default":     true,
				},
			},
			Required: []string{"vulnerability_id"},
		},
	}
}

// analyzeScanReportTool returns the tool definition for analyze_scan_report
func analyzeScanReportTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_scan_report",
		Description: "Extract vulnerability identifiers from raw scan output (text or JSON) and retrieve knowledge for each",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Raw scan output; JSON payloads have secret-bearing keys redacted before processing",
				},
				"max_concurrent": map[string]interface{}{
					"type":        "integer",
					"description": "Concurrent retrieval ceiling (1-10)",
					"default":     5,
					"minimum":     1,
					"maximum":     10,
				},
				"timeout_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Per-identifier retrieval timeout in seconds",
					"default":     30,
					"minimum":     1,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum chunks retrieved per identifier (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"content"},
		},
	}
}

// kbStatusTool returns the tool definition for kb_status
func kbStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_status",
		Description: "Report knowledge base statistics: chunk counts, sources, vulnerabilities, and store size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
