package preflight

import (
	"context"
	"fmt"
	"os"

	"github.com/Aman-CERP/vaultsearch/internal/embed"
	"github.com/Aman-CERP/vaultsearch/internal/store"
	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status as its lowercase name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	switch s {
	case StatusPass:
		return []byte("pass"), nil
	case StatusWarn:
		return []byte("warn"), nil
	case StatusFail:
		return []byte("fail"), nil
	}
	return nil, fmt.Errorf("unknown check status %d", int(s))
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	dataDir      string
	minDiskBytes uint64

	indexPath   string
	storeConfig store.Config
	vocabPath   string
	stripAccent bool
	embedder    embed.Embedder
}

// Option configures a Checker.
type Option func(*Checker)

// WithIndex enables the index check.
func WithIndex(path string, cfg store.Config) Option {
	return func(c *Checker) {
		c.indexPath = path
		c.storeConfig = cfg
	}
}

// WithVocabulary enables the vocabulary check.
func WithVocabulary(path string, stripAccents bool) Option {
	return func(c *Checker) {
		c.vocabPath = path
		c.stripAccent = stripAccents
	}
}

// WithEmbedder enables the embedding model check.
func WithEmbedder(e embed.Embedder) Option {
	return func(c *Checker) {
		c.embedder = e
	}
}

// WithMinDiskSpace overrides MinDiskSpaceBytes.
func WithMinDiskSpace(bytes uint64) Option {
	return func(c *Checker) {
		c.minDiskBytes = bytes
	}
}

// New creates a Checker for dataDir.
func New(dataDir string, opts ...Option) *Checker {
	c := &Checker{
		dataDir:      dataDir,
		minDiskBytes: MinDiskSpaceBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs the data directory checks plus every check enabled by an
// option. The directory checks run first since the others depend on it.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	results := []CheckResult{
		c.CheckWritePermissions(),
		c.CheckDiskSpace(),
	}
	if c.indexPath != "" {
		results = append(results, c.CheckIndex(ctx))
	}
	if c.vocabPath != "" {
		results = append(results, c.CheckVocabulary())
	}
	if c.embedder != nil {
		results = append(results, c.CheckEmbedder(ctx))
	}
	return results
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "failed", "ready_with_warnings" or "ready".
func SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// CheckWritePermissions checks the data directory can be created and
// written to.
func (c *Checker) CheckWritePermissions() CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create data directory: %v", err)
		return result
	}

	f, err := os.CreateTemp(c.dataDir, ".preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckIndex runs the integrity check and reads the index counts through a
// read-only handle, so it neither repairs the file nor waits on a running
// ingestion.
func (c *Checker) CheckIndex(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "index",
		Required: true,
		Details:  c.indexPath,
	}

	if err := store.CheckIntegrity(c.indexPath); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	cfg := c.storeConfig
	cfg.ReadOnly = true
	idx, err := store.Open(c.indexPath, cfg)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = idx.Close() }()

	stats, err := idx.Stats(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d items, %d chunks, %d embeddings", stats.Items, stats.Chunks, stats.Embeddings)
	if missing := stats.Chunks - stats.Embeddings; missing > 0 {
		result.Status = StatusWarn
		result.Message += fmt.Sprintf(" (%d missing, run 'vaultsearch backfill')", missing)
	}
	return result
}

// CheckVocabulary loads the WordPiece vocabulary.
func (c *Checker) CheckVocabulary() CheckResult {
	result := CheckResult{
		Name:    "vocabulary",
		Details: c.vocabPath,
	}

	tok, err := tokenizer.Load(c.vocabPath, tokenizer.WithStripAccents(c.stripAccent))
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("not usable, search is keyword-only: %v", err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d tokens", tok.VocabSize())
	return result
}

// CheckEmbedder loads and unloads the embedding model.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:    "embedding_model",
		Details: c.embedder.ModelName(),
	}

	if err := c.embedder.Load(ctx); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unavailable, search is keyword-only: %v", err)
		return result
	}
	_ = c.embedder.Unload()

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s, %d dimensions", c.embedder.ModelName(), c.embedder.Dimensions())
	return result
}
