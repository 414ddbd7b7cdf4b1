package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/vaultsearch/internal/config"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

func TestConfigShow_YAML(t *testing.T) {
	// Given: a data directory overriding one search setting
	dataDir := testEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.ProjectFile),
		[]byte("search:\n  max_results: 7\n"), 0o644))

	// When: showing the effective config
	out, err := execute(t, dataDir, "config", "show")
	require.NoError(t, err)

	// Then: it decodes back with the override and resolved paths
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, 0.4, cfg.Search.LexicalWeight)
	assert.Equal(t, filepath.Join(dataDir, config.IndexFile), cfg.Index.Path)
}

func TestConfigShow_JSON(t *testing.T) {
	dataDir := testEnv(t)
	t.Setenv("VAULTSEARCH_VECTOR_WEIGHT", "0.5")

	out, err := execute(t, dataDir, "config", "show", "--format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 0.5, cfg.Search.VectorWeight)
}

func TestConfigInit(t *testing.T) {
	dataDir := testEnv(t)

	t.Run("writes defaults", func(t *testing.T) {
		out, err := execute(t, dataDir, "config", "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Wrote "+config.GetUserConfigPath())
		assert.True(t, config.UserConfigExists())
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := execute(t, dataDir, "config", "init")

		require.Error(t, err)
		assert.Equal(t, verrors.ErrCodeConfigInvalid, errCode(err))
	})

	t.Run("force backs up", func(t *testing.T) {
		out, err := execute(t, dataDir, "config", "init", "--force")

		require.NoError(t, err)
		assert.Contains(t, out, "Backed up previous config to")
		backups, err := config.ListUserConfigBackups()
		require.NoError(t, err)
		assert.Len(t, backups, 1)
	})
}

func TestConfigInit_IgnoresBrokenUserConfig(t *testing.T) {
	// Given: an unreadable user config
	dataDir := testEnv(t)
	path := config.GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("search: ["), 0o644))

	// When: re-initializing with force
	_, err := execute(t, dataDir, "config", "init", "--force")

	// Then: the broken file is replaced and config loads again
	require.NoError(t, err)
	_, err = execute(t, dataDir, "stats")
	assert.NoError(t, err)
}

func TestConfigPath(t *testing.T) {
	dataDir := testEnv(t)

	out, err := execute(t, dataDir, "config", "path")

	require.NoError(t, err)
	assert.Contains(t, out, "user:    "+config.GetUserConfigPath())
	assert.Contains(t, out, "project: "+filepath.Join(dataDir, config.ProjectFile))
}
