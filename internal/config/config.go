package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// AutoAcceptSeconds is the countdown before a HIGH-confidence
	// classification is implicitly confirmed. 0 means use the default (3).
	AutoAcceptSeconds int `json:"auto_accept_seconds,omitempty"`

	// DeleteGraceSeconds is the window during which a soft delete can be
	// undone before the hard delete cascades. 0 means use the default (3).
	DeleteGraceSeconds int `json:"delete_grace_seconds,omitempty"`

	// TrashRetentionDays is how long trashed captures are kept before
	// purge-trash removes them permanently. 0 means use the default (30).
	TrashRetentionDays int `json:"trash_retention_days,omitempty"`

	// QueueMaxRetries is the retry budget for offline queue actions.
	// 0 means use the default (3).
	QueueMaxRetries int `json:"queue_max_retries,omitempty"`

	// DispatchTimeoutSeconds is how long a queue item may sit in
	// PROCESSING before a restart treats it as a failed attempt.
	// 0 means use the default (60).
	DispatchTimeoutSeconds int `json:"dispatch_timeout_seconds,omitempty"`

	// ClassifierModel is the chat model used for classification.
	ClassifierModel string `json:"classifier_model,omitempty"`

	// SyncEndpoint is the base URL of the remote sync peer. Empty
	// disables push/pull.
	SyncEndpoint string `json:"sync_endpoint,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database
	// connections. 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database
	// connections. 0 means use sql.DB default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools lists MCP tool names that must not be registered.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AutoAcceptSeconds:      3,
		DeleteGraceSeconds:     3,
		TrashRetentionDays:     30,
		QueueMaxRetries:        3,
		DispatchTimeoutSeconds: 60,
		ClassifierModel:        "gpt-4o-mini",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.jot.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs. Overlay values take
// precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.AutoAcceptSeconds = pickInt(base.AutoAcceptSeconds, overlay.AutoAcceptSeconds)
	result.DeleteGraceSeconds = pickInt(base.DeleteGraceSeconds, overlay.DeleteGraceSeconds)
	result.TrashRetentionDays = pickInt(base.TrashRetentionDays, overlay.TrashRetentionDays)
	result.QueueMaxRetries = pickInt(base.QueueMaxRetries, overlay.QueueMaxRetries)
	result.DispatchTimeoutSeconds = pickInt(base.DispatchTimeoutSeconds, overlay.DispatchTimeoutSeconds)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	result.ClassifierModel = overlay.ClassifierModel
	if result.ClassifierModel == "" {
		result.ClassifierModel = base.ClassifierModel
	}
	result.SyncEndpoint = overlay.SyncEndpoint
	if result.SyncEndpoint == "" {
		result.SyncEndpoint = base.SyncEndpoint
	}
	result.DisabledTools = overlay.DisabledTools
	if result.DisabledTools == nil {
		result.DisabledTools = base.DisabledTools
	}

	return result
}

func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}
