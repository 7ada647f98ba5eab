// Package orchestrator coordinates batch vulnerability analysis.
//
// It runs the pipeline end to end: raw scan output is normalized, unique
// vulnerability identifiers are extracted in first-appearance order, and
// each identifier's knowledge retrieval runs concurrently under a bounded
// fan-out ceiling with a per-identifier timeout.
//
// Failure handling follows a partial-results model: a unit that errors or
// times out is recorded in BatchResult.Failures against its identifier, and
// its siblings complete normally. Results are re-sorted by original input
// position, never by completion order. Only cancellation of the caller's
// context aborts the whole batch.
//
//	orch := orchestrator.New(retrievalService, logger)
//
//	batch, err := orch.AnalyzeScanReport(ctx, rawReport, &orchestrator.Config{
//	    MaxConcurrent: 5,
//	    UnitTimeout:   30 * time.Second,
//	})
package orchestrator
