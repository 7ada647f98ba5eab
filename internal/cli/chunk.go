package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/chunker"
	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

var (
	chunkInput  string
	chunkID     string
	chunkTitle  string
	chunkSource string
	chunkURL    string
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Chunk a document and print the chunks as JSONL",
	Long: `Splits a text document with the recursive token-budget splitter and
prints one JSON object per chunk. Useful for inspecting how a document will
land in the knowledge base before ingesting it.`,
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().StringVar(&chunkInput, "input", "", "input text file (required)")
	chunkCmd.Flags().StringVar(&chunkID, "id", "", "vulnerability identifier for the document (required)")
	chunkCmd.Flags().StringVar(&chunkTitle, "title", "", "document title")
	chunkCmd.Flags().StringVar(&chunkSource, "source", "", "taxonomy tag (owasp, mitre, cve, custom); inferred from the id when empty")
	chunkCmd.Flags().StringVar(&chunkURL, "url", "", "source URL")
	_ = chunkCmd.MarkFlagRequired("input")
	_ = chunkCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(chunkCmd)
}

type chunkOutput struct {
	VulnerabilityID string `json:"vulnerability_id"`
	Title           string `json:"title,omitempty"`
	Source          string `json:"source"`
	URL             string `json:"url,omitempty"`
	OrderIndex      int    `json:"order_index"`
	TokenCount      int    `json:"token_count"`
	ContentHash     string `json:"content_hash"`
	Content         string `json:"content"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(chunkInput)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	source := chunkSource
	if source == "" {
		source = string(types.InferSource(chunkID))
	}

	c := chunker.New()
	chunks := c.ChunkDocument(string(data), chunker.DocumentMeta{
		ID:     chunkID,
		Title:  chunkTitle,
		Source: source,
		URL:    chunkURL,
	}, chunker.ChunkOptions{
		MaxTokens:     cfg.Chunking.MaxTokens,
		MinTokens:     cfg.Chunking.MinTokens,
		OverlapTokens: cfg.Chunking.OverlapTokens,
	})

	enc := json.NewEncoder(os.Stdout)
	for _, chunk := range chunks {
		out := chunkOutput{
			VulnerabilityID: chunk.VulnerabilityID,
			Title:           chunk.Title,
			Source:          chunk.Source,
			URL:             chunk.URL,
			OrderIndex:      chunk.OrderIndex,
			TokenCount:      chunk.TokenCount,
			ContentHash:     chunk.ContentHashHex(),
			Content:         chunk.Content,
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "%d chunks\n", len(chunks))
	return nil
}
