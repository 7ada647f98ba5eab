package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/vulncontext/vulncontext-mcp/internal/chunker"
	"github.com/vulncontext/vulncontext-mcp/internal/ingest"
)

var (
	ingestInput     string
	ingestRebuild   bool
	ingestLimit     int
	ingestBatchSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Populate the knowledge base from a JSONL file",
	Long: `Reads JSONL records {id, title, source, url, description}, chunks each
description, generates embeddings, and upserts the chunks into the vector
store. Replaying the same input is idempotent.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "input JSONL file (required)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "truncate the store before ingesting")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "maximum records to process (0 = all)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", ingest.DefaultBatchSize, "chunks per embedding batch")
	_ = ingestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	emb, err := newEmbedder()
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	fmt.Fprintf(os.Stderr, "Ingesting %s (provider: %s, model: %s)\n", ingestInput, emb.Provider(), emb.Model())

	var bar *progressbar.ProgressBar
	progress := func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Embedding"),
				progressbar.OptionThrottle(100*time.Millisecond),
			)
		}
		_ = bar.Set(processed)
	}

	pipeline := ingest.New(store, emb, nil)
	stats, err := pipeline.IngestFile(cmd.Context(), ingestInput, &ingest.Config{
		BatchSize: ingestBatchSize,
		Limit:     ingestLimit,
		Rebuild:   ingestRebuild,
		Chunking: chunker.ChunkOptions{
			MaxTokens:     cfg.Chunking.MaxTokens,
			MinTokens:     cfg.Chunking.MinTokens,
			OverlapTokens: cfg.Chunking.OverlapTokens,
		},
		Progress: progress,
	})
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	fmt.Fprintf(os.Stderr, "Records: %d ingested, %d skipped\n", stats.RecordsRead, stats.RecordsSkipped)
	fmt.Fprintf(os.Stderr, "Chunks:  %d created, %d upserted\n", stats.ChunksCreated, stats.ChunksUpserted)
	fmt.Fprintf(os.Stderr, "Took %s\n", stats.Duration.Round(time.Millisecond))

	if len(stats.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "%d records had errors:\n", len(stats.Errors))
		for i, msg := range stats.Errors {
			if i >= 5 {
				fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(stats.Errors)-5)
				break
			}
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
	}

	return nil
}
