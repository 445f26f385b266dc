package cli

import (
	"fmt"
	"time"
)

// Store backends accepted by Config.Store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// AnalyzerTool is the tools.yaml entry that, when present, is also plugged
// into detect_basic_issues as an external analyzer.
const AnalyzerTool = "review_analyzer"

// Config holds the settings shared by every command, bound to persistent flags.
type Config struct {
	LogLevel      string
	LogJSON       bool
	MaxIterations int

	// ToolsFile is the tools.yaml declaring external process tools.
	ToolsFile string
	// GraphsDir holds graph documents loaded at startup.
	GraphsDir string

	Store       string
	RedisAddr   string
	RedisPrefix string
	RunTTL      time.Duration
	SessionTTL  time.Duration

	// RunsDir, when set, keeps run records as JSON files there instead of in
	// the selected store.
	RunsDir string

	// Redact lists regular expressions; state keys matching one are masked
	// in stored run records.
	Redact []string
}

// DefaultConfig returns the settings used when no flag is given.
func DefaultConfig() Config {
	return Config{
		LogLevel:   "info",
		ToolsFile:  "tools.yaml",
		Store:      StoreMemory,
		RedisAddr:  "localhost:6379",
		SessionTTL: 24 * time.Hour,
	}
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreRedis)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.RunTTL < 0 || c.SessionTTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}
	return nil
}
