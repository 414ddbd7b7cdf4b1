package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

const (
	// MaxBackups is the number of config backups kept next to the user config.
	MaxBackups = 3

	// BackupSuffix is inserted between the config name and the timestamp.
	BackupSuffix = ".bak"
)

// backupClock is swapped in tests so successive backups get distinct names.
var backupClock = time.Now

// BackupUserConfig copies the user config to a timestamped sibling and
// prunes backups beyond MaxBackups. It returns "" when there is no user
// config.
func BackupUserConfig() (string, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return "", nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", configPath, BackupSuffix, backupClock().Format("20060102-150405.000"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Pruning is best-effort; the backup itself succeeded.
	_ = cleanupOldBackups()

	return backupPath, nil
}

// ListUserConfigBackups returns backup files for the user config, newest
// first. The timestamp suffix sorts lexically.
func ListUserConfigBackups() ([]string, error) {
	configPath := GetUserConfigPath()
	configDir := filepath.Dir(configPath)
	prefix := filepath.Base(configPath) + BackupSuffix + "."

	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(configDir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func cleanupOldBackups() error {
	backups, err := ListUserConfigBackups()
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// InitUserConfig writes the default config to the user config path. An
// existing file is kept unless force is set, in which case it is backed up
// first. It returns the backup path, if one was made.
func InitUserConfig(force bool) (string, error) {
	configPath := GetUserConfigPath()

	var backup string
	if fileExists(configPath) {
		if !force {
			return "", verrors.ConfigError("user config already exists", nil).
				WithDetail("path", configPath).
				WithSuggestion("pass --force to back it up and overwrite it")
		}
		var err error
		if backup, err = BackupUserConfig(); err != nil {
			return "", err
		}
	}

	if err := NewConfig().WriteYAML(configPath); err != nil {
		return backup, err
	}
	return backup, nil
}
