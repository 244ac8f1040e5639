package app

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/tagscope/tagscope/internal/capture"
	"github.com/tagscope/tagscope/internal/model"
)

// Config contains the runtime configuration shared by the CLI and the API
// server.
type Config struct {
	// StorageRoot is where the scan-history database and default JSON output
	// live.
	StorageRoot string

	// CaptureCfg selects and tunes the capture backend.
	CaptureCfg capture.Config

	// ScanOpts are the default per-scan options (timeout, grace, headless).
	ScanOpts model.Options

	// Concurrency caps concurrent browser instances in batch mode. This is a
	// resource-pool policy of the batch caller: memory and CPU grow with each
	// live browser.
	Concurrency int
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		StorageRoot: filepath.Join(xdg.DataHome, "tagscope"),
		CaptureCfg:  capture.DefaultConfig(),
		ScanOpts:    model.DefaultOptions(),
		Concurrency: 2,
	}
}

// HistoryDBPath is the location of the scan-history SQLite database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.StorageRoot, "history.db")
}

// OutputDir is where timestamped JSON reports land unless overridden.
func (c *Config) OutputDir() string {
	return filepath.Join(c.StorageRoot, "output")
}
