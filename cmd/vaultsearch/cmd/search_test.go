package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/vaultsearch/internal/config"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/store"
)

func searchJSON(t *testing.T, dataDir string, args ...string) searchDoc {
	t.Helper()
	out, err := execute(t, dataDir, append([]string{"search", "--format", "json"}, args...)...)
	require.NoError(t, err, out)

	var doc searchDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	return doc
}

func TestSearchCmd_FindsIndexedItem(t *testing.T) {
	// Given: two indexed items and a vocabulary
	dataDir := testEnv(t)
	writeVocab(t, dataDir)
	indexJSON(t, dataDir, "lease", writeDoc(t, "lease.txt", leaseText))
	indexJSON(t, dataDir, "trip", writeDoc(t, "trip.txt", "Beach trip planned for the summer holidays."))

	// When: searching for a lease term
	doc := searchJSON(t, dataDir, "security", "deposit")

	// Then: the lease ranks first
	assert.Equal(t, "security deposit", doc.Query)
	require.NotEmpty(t, doc.Results)
	assert.Equal(t, "lease", doc.Results[0].ItemID)
	assert.Contains(t, doc.Results[0].Excerpt, "security deposit")
	assert.Greater(t, doc.Results[0].Score, 0.0)
}

func TestSearchCmd_LexicalOnlyWithoutVocab(t *testing.T) {
	// Given: an index built without a model
	dataDir := testEnv(t)
	indexJSON(t, dataDir, "lease", writeDoc(t, "lease.txt", leaseText))

	// When: searching
	doc := searchJSON(t, dataDir, "rent")

	// Then: keyword results are still returned
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "lease", doc.Results[0].ItemID)
	assert.Equal(t, "keyword", doc.Results[0].MatchType)
}

func TestSearchCmd_KeywordOnly(t *testing.T) {
	dataDir := testEnv(t)
	writeVocab(t, dataDir)
	indexJSON(t, dataDir, "lease", writeDoc(t, "lease.txt", leaseText))

	doc := searchJSON(t, dataDir, "--keyword-only", "rent")

	require.Len(t, doc.Results, 1)
	assert.Equal(t, "keyword", doc.Results[0].MatchType)
}

func TestSearchCmd_Limit(t *testing.T) {
	// Given: three items sharing a term
	dataDir := testEnv(t)
	for _, id := range []string{"a", "b", "c"} {
		indexJSON(t, dataDir, id, writeDoc(t, id+".txt", "Rent is due on the first."))
	}

	// When: limiting to two results
	doc := searchJSON(t, dataDir, "-n", "2", "rent")

	// Then: at most two come back
	assert.Equal(t, 2, doc.Count)
	assert.Len(t, doc.Results, 2)
}

func TestSearchCmd_NoResults(t *testing.T) {
	dataDir := testEnv(t)
	indexJSON(t, dataDir, "lease", writeDoc(t, "lease.txt", leaseText))

	out, err := execute(t, dataDir, "search", "unicorn")

	require.NoError(t, err)
	assert.Equal(t, "No results for \"unicorn\"\n", out)
}

func TestSearchCmd_EmptyIndexJSON(t *testing.T) {
	dataDir := testEnv(t)

	doc := searchJSON(t, dataDir, "anything")

	assert.Equal(t, 0, doc.Count)
	assert.NotNil(t, doc.Results)
}

func TestSearchCmd_InvalidFormat(t *testing.T) {
	dataDir := testEnv(t)

	_, err := execute(t, dataDir, "search", "rent", "--format", "xml")

	assert.Error(t, err)
}

func TestSearchCmd_RunsWhileIndexIsLocked(t *testing.T) {
	// Given: an indexed item and another process holding the writer lock
	dataDir := testEnv(t)
	indexJSON(t, dataDir, "lease", writeDoc(t, "lease.txt", leaseText))
	cfg, err := config.Load(dataDir)
	require.NoError(t, err)
	writer, err := store.Open(cfg.Index.Path, cfg.Index.StoreConfig())
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	// When: searching and reading stats
	doc := searchJSON(t, dataDir, "rent")
	stats := statsJSON(t, dataDir)

	// Then: both read the index; only a second writer is refused
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "lease", doc.Results[0].ItemID)
	assert.Equal(t, 1, stats.Items)

	_, err = execute(t, dataDir, "index", "trip", writeDoc(t, "trip.txt", "Beach trip."))
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeStoreLocked, errCode(err))
}
