package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vulncontext/vulncontext-mcp/internal/retriever"
	"github.com/vulncontext/vulncontext-mcp/internal/scan"
	"github.com/vulncontext/vulncontext-mcp/pkg/types"
)

const (
	// DefaultMaxConcurrent bounds in-flight retrievals; kept in single
	// digits as backpressure against the embedding provider and the store's
	// connection pool
	DefaultMaxConcurrent = 5

	// DefaultUnitTimeout cancels a single identifier's retrieval without
	// affecting its siblings
	DefaultUnitTimeout = 30 * time.Second
)

// KnowledgeRetriever is the retrieval surface the orchestrator drives
type KnowledgeRetriever interface {
	SearchVulnerabilityKnowledge(ctx context.Context, vulnerabilityID string, opts retriever.SearchOptions) (*types.RetrievedContext, error)
}

// Config contains configuration for batch analysis
type Config struct {
	MaxConcurrent int                     // concurrent retrievals (default: DefaultMaxConcurrent)
	UnitTimeout   time.Duration           // per-identifier timeout (default: DefaultUnitTimeout)
	Search        retriever.SearchOptions // options forwarded to each retrieval
}

// Failure records one identifier's retrieval error within a batch
type Failure struct {
	VulnerabilityID string
	Err             error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.VulnerabilityID, f.Err)
}

// BatchResult is the aggregate outcome of a multi-identifier batch.
// Successes and failures are parallel collections; a failed identifier never
// discards its siblings' results.
type BatchResult struct {
	Results  []*types.RetrievedContext
	Failures []Failure
	Duration time.Duration
}

// Orchestrator coordinates the analysis pipeline: normalize -> extract ->
// bounded concurrent retrieval
type Orchestrator struct {
	retriever KnowledgeRetriever
	logger    *slog.Logger
}

// New creates an Orchestrator. logger may be nil, in which case slog.Default
// is used.
func New(r KnowledgeRetriever, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{retriever: r, logger: logger}
}

// AnalyzeScanReport runs the full pipeline over raw scan output: the input
// is normalized, identifiers are extracted in first-appearance order, and
// each unique identifier is retrieved concurrently under the configured
// ceiling. An input with no identifiers yields an empty BatchResult, not an
// error.
func (o *Orchestrator) AnalyzeScanReport(ctx context.Context, raw string, config *Config) (*BatchResult, error) {
	normalized, err := scan.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize scan input: %w", err)
	}
	if scan.IsLargeInput(normalized) {
		o.logger.Warn("processing large scan input", "bytes", len(normalized))
	}

	findings := scan.Extract(normalized)
	if len(findings) == 0 {
		o.logger.Info("no vulnerability identifiers found in scan input")
		return &BatchResult{}, nil
	}

	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}

	return o.RetrieveAll(ctx, ids, config)
}

// RetrieveAll retrieves knowledge for each identifier with bounded fan-out.
// Results come back in input order regardless of completion order. A unit
// failure or timeout is recorded against its identifier; only cancellation
// of the parent context aborts the batch.
func (o *Orchestrator) RetrieveAll(ctx context.Context, ids []string, config *Config) (*BatchResult, error) {
	cfg := normalizeConfig(config)
	start := time.Now()

	type slot struct {
		result  *types.RetrievedContext
		failure *Failure
	}
	slots := make([]slot, len(ids))

	semaphore := make(chan struct{}, cfg.MaxConcurrent)
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			unitCtx, cancel := context.WithTimeout(gctx, cfg.UnitTimeout)
			defer cancel()

			rc, err := o.retriever.SearchVulnerabilityKnowledge(unitCtx, id, cfg.Search)

			switch {
			case err == nil:
				slots[i].result = rc
			case errors.Is(err, context.DeadlineExceeded) && gctx.Err() == nil:
				// The unit timed out, not the batch
				o.logger.Warn("retrieval timeout", "id", id, "timeout", cfg.UnitTimeout)
				slots[i].failure = &Failure{
					VulnerabilityID: id,
					Err:             fmt.Errorf("retrieval timed out after %s: %w", cfg.UnitTimeout, err),
				}
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				o.logger.Error("retrieval failed", "id", id, "error", err)
				slots[i].failure = &Failure{VulnerabilityID: id, Err: err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Slots are indexed by input position, so a linear pass restores
	// first-appearance order
	batch := &BatchResult{Duration: time.Since(start)}
	for _, s := range slots {
		if s.result != nil {
			batch.Results = append(batch.Results, s.result)
		}
		if s.failure != nil {
			batch.Failures = append(batch.Failures, *s.failure)
		}
	}

	o.logger.Info("batch retrieval completed",
		"total", len(ids),
		"succeeded", len(batch.Results),
		"failed", len(batch.Failures),
		"duration", batch.Duration)

	return batch, nil
}

func normalizeConfig(config *Config) Config {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.UnitTimeout <= 0 {
		cfg.UnitTimeout = DefaultUnitTimeout
	}
	return cfg
}
