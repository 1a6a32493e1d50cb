// Package config provides configuration loading for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/openfiscal/cclastrib/internal/common"
)

// Config holds the runtime settings of the classification service.
type Config struct {
	// DataDir is the directory holding the reference tables.
	DataDir string

	// CacheTTL bounds how long a memoized response stays valid.
	CacheTTL time.Duration

	// ListenAddr is the HTTP bind address for the serve command.
	ListenAddr string

	// AllowedOrigins restricts CORS; empty allows all.
	AllowedOrigins []string

	// AuditDB is the SQLite path for the audit log; empty disables it.
	AuditDB string
}

// Load builds the configuration from viper, which the CLI has already
// primed with the config file, flags and CCLASTRIB_ environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:        ExpandPath(viper.GetString("data.dir")),
		CacheTTL:       viper.GetDuration("cache.ttl"),
		ListenAddr:     viper.GetString("server.listen"),
		AllowedOrigins: viper.GetStringSlice("server.allowed_origins"),
		AuditDB:        ExpandPath(viper.GetString("audit.db")),
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "data/anexos"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("data directory %q is not usable", cfg.DataDir), err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: data directory %q is not a directory", common.ErrInvalidConfig, cfg.DataDir)
	}

	return cfg, nil
}

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}
