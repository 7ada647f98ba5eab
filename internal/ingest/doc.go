// Package ingest populates the vulnerability knowledge store from JSONL
// input.
//
// Each input line is a Record {id, title, source, url, description}. The
// pipeline chunks each description with the recursive splitter, embeds
// chunk contents in provider-sized batches, and upserts chunk+vector rows
// keyed on content hash, so replaying the same input rewrites rows in place
// instead of duplicating them.
//
// Malformed lines and invalid records are skipped and reported in
// Stats.Errors; embedding-provider and store failures abort the run.
// Rebuild mode truncates the store before ingesting.
package ingest
