package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/store"
	"github.com/Aman-CERP/vaultsearch/internal/telemetry"
	"github.com/Aman-CERP/vaultsearch/internal/vector"
)

// Engine runs hybrid searches against a store.Reader.
type Engine struct {
	index    store.Reader
	embedder embed.Embedder
	config   Config
	metrics  *telemetry.QueryMetrics
	breaker  *verrors.CircuitBreaker
	logger   *slog.Logger
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics records every completed search into m.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCircuitBreaker skips the vector leg while cb is open. Embedding
// failures count against it.
func WithCircuitBreaker(cb *verrors.CircuitBreaker) EngineOption {
	return func(e *Engine) {
		e.breaker = cb
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine over index, embedding queries with embedder.
func NewEngine(index store.Reader, embedder embed.Embedder, cfg Config, opts ...EngineOption) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		index:    index,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Search returns ranked results for query. A blank query returns an empty
// list without touching the index. The lexical leg is mandatory: its failure
// fails the search. The vector leg is best-effort: its failure is logged and
// the search continues with keyword results only.
func (e *Engine) Search(ctx context.Context, query string) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*Result{}, nil
	}
	start := time.Now()

	lexical, vec, vecErr, err := e.parallelSearch(ctx, query)
	if err != nil {
		e.logger.Error("search_failed",
			append([]any{slog.Int("query_len", len(query))}, verrors.LogAttrs(err)...)...)
		return nil, verrors.New(verrors.ErrCodeSearchFailed, "lexical search failed", err)
	}

	lexicalOnly := vecErr != nil
	if lexicalOnly {
		level := slog.LevelWarn
		if errors.Is(vecErr, verrors.ErrCircuitOpen) {
			level = slog.LevelDebug
		}
		e.logger.Log(ctx, level, "search_vector_leg_failed", verrors.LogAttrs(vecErr)...)
	}

	results := Fuse(lexical, vec, e.config)
	latency := time.Since(start)

	if e.metrics != nil {
		e.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			MatchTypes:  countMatchTypes(results),
			ResultCount: len(results),
			LexicalOnly: lexicalOnly,
			Latency:     latency,
		})
	}

	e.logger.Debug("search_completed",
		slog.Int("lexical_hits", len(lexical)),
		slog.Int("vector_hits", len(vec)),
		slog.Int("results", len(results)),
		slog.Bool("lexical_only", lexicalOnly),
		slog.Duration("latency", latency))

	return results, nil
}

// parallelSearch runs both legs concurrently. Only a lexical failure is
// returned as err; the vector leg reports through vecErr.
func (e *Engine) parallelSearch(ctx context.Context, query string) (
	lexical []store.LexicalHit,
	vec []VectorHit,
	vecErr error,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, searchErr := e.index.FTSSearch(gctx, query, e.config.LexicalLimit)
		if searchErr != nil {
			return searchErr
		}
		lexical = hits
		return nil
	})

	g.Go(func() error {
		vec, vecErr = e.vectorSearch(gctx, query)
		return nil // never fails the group
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return lexical, vec, vecErr, nil
}

// vectorSearch embeds the query and scans every stored vector.
func (e *Engine) vectorSearch(ctx context.Context, query string) ([]VectorHit, error) {
	qvec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	stored, err := e.index.LoadAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]vector.Scored, 0, len(stored))
	for _, s := range stored {
		if len(s.Vector) != len(qvec) {
			return nil, verrors.New(verrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("query vector has %d dimensions, index has %d", len(qvec), len(s.Vector)), nil).
				WithSuggestion("Re-index with the configured embedding model or run 'vaultsearch reset'")
		}
		sim := vector.Dot(qvec, s.Vector)
		if float64(sim) < e.config.MinSimilarity {
			continue
		}
		candidates = append(candidates, vector.Scored{ID: s.ChunkID, Score: sim})
	}

	top := vector.TopK(candidates, e.config.VectorLimit)
	hits := make([]VectorHit, 0, len(top))
	for _, sc := range top {
		detail, err := e.index.ChunkDetail(ctx, sc.ID)
		if err != nil {
			e.logger.Debug("search_hydrate_skipped",
				slog.Int64("chunk_id", sc.ID),
				slog.String("error", err.Error()))
			continue
		}
		hits = append(hits, VectorHit{
			ChunkID:    detail.ChunkID,
			ItemID:     detail.ItemID,
			Text:       detail.Text,
			PageNumber: detail.PageNumber,
			Similarity: sc.Score,
		})
	}
	return hits, nil
}

// embedQuery loads the model if needed and embeds the query, reporting the
// outcome to the circuit breaker when one is set.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embedFn := func() ([]float32, error) {
		if err := e.embedder.Load(ctx); err != nil {
			return nil, err
		}
		return e.embedder.Embed(ctx, query)
	}
	if e.breaker == nil {
		return embedFn()
	}
	return verrors.CircuitExecuteWithResult(e.breaker, embedFn)
}

func countMatchTypes(results []*Result) map[string]int {
	counts := make(map[string]int, 3)
	for _, r := range results {
		counts[string(r.MatchType)]++
	}
	return counts
}
