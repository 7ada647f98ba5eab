// Package mcp implements the Model Context Protocol (MCP) server for the
// vulnerability knowledge base.
//
// The server exposes three tools to AI assistants over a JSON-RPC 2.0 stdio
// transport:
//   - search_vulnerability_knowledge: Retrieve knowledge for one identifier
//   - analyze_scan_report: Extract identifiers from scan output and retrieve
//     knowledge for each
//   - kb_status: Report knowledge base statistics
//
// Standard output carries the protocol, so all logging goes to stderr.
//
// # Basic Usage
//
// The server is typically started via the serve command:
//
//	vulncontext serve
//
// It then listens on stdin for MCP protocol messages and writes responses to
// stdout.
//
// # Tool: search_vulnerability_knowledge
//
//	Request:
//	{
//	  "name": "search_vulnerability_knowledge",
//	  "arguments": {
//	    "vulnerability_id": "A01:2021",
//	    "top_k": 5,
//	    "similarity_threshold": 0.7,
//	    "use_cache": true
//	  }
//	}
//
//	Response:
//	{
//	  "finding": {"id": "A01:2021", "source": "owasp", "title": "Broken Access Control"},
//	  "chunks": [
//	    {"content": "Access control enforces policy...", "score": 1.0}
//	  ],
//	  "source_urls": ["https://owasp.org/Top10/A01_2021/"],
//	  "retrieval_query": "A01:2021 Broken Access Control web application security vulnerability"
//	}
//
// The finding's own chunks always come back first, in document order;
// remaining slots hold similar chunks from related vulnerabilities.
//
// # Tool: analyze_scan_report
//
//	Request:
//	{
//	  "name": "analyze_scan_report",
//	  "arguments": {
//	    "content": "Scanner flagged A01:2021 on /admin and T1059 activity.",
//	    "max_concurrent": 5,
//	    "timeout_seconds": 30
//	  }
//	}
//
//	Response:
//	{
//	  "results": [ ...one retrieval result per identifier, in first-appearance order... ],
//	  "failures": [ {"vulnerability_id": "T1059", "error": "..."} ],
//	  "succeeded": 1,
//	  "failed": 1,
//	  "duration_ms": 412
//	}
//
// JSON scan payloads have secret-bearing keys (API keys, tokens, passwords)
// redacted before any identifier extraction. A unit failure or timeout never
// discards sibling results.
//
// # Tool: kb_status
//
//	Response:
//	{
//	  "total_chunks": 1834,
//	  "sources": 3,
//	  "vulnerabilities": 212,
//	  "avg_content_length": "1290.4",
//	  "store_size_mb": "18.52",
//	  "server": "vulncontext-mcp",
//	  "version": "1.0.0"
//	}
//
// # Error Codes
//
// Handlers return MCPError values with JSON-RPC codes:
//   - -32602 invalid parameters
//   - -32603 internal error (provider or store failure)
//   - -32001 vulnerability identifier missing or blank
//   - -32002 scan content empty or whitespace-only
package mcp
