package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Trakt
	TraktClientID     string
	TraktClientSecret string // only needed for device authentication
	TraktUsername     string // default user when none is given on the command line

	// Ingestion
	RequestDelay           time.Duration // Politeness delay between upstream lookups (default: 1s)
	BatchSize              int           // Rows per INSERT statement (default: 100)
	MaxConsecutiveFailures int           // Lookup failures in a row before the resolver gives up (default: 3)
	CacheTTL               time.Duration // Lifetime of cached lookup responses (default: 1h)
	BackupMaxElapsed       time.Duration // Retry budget for one backup request (default: 2m)

	// Daemon
	Schedule   string // cron spec for scheduled runs (default: every 6 hours)
	ServerPort string

	// Paths
	ConfigDir   string
	BackupDir   string // $BACKUP_DIR, defaults to $CONFIG_DIR/backup
	TokenFile   string // $CONFIG_DIR/token.json
	MetricsFile string // optional prometheus textfile output

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("REQUEST_DELAY", "1s")
	viper.SetDefault("BATCH_SIZE", 100)
	viper.SetDefault("MAX_CONSECUTIVE_FAILURES", 3)
	viper.SetDefault("CACHE_TTL", "1h")
	viper.SetDefault("BACKUP_MAX_ELAPSED", "2m")
	viper.SetDefault("SCHEDULE", "0 */6 * * *")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir, err := resolveDir(viper.GetString("CONFIG_DIR"), func() (string, error) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", "traktdb"), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve CONFIG_DIR: %w", err)
	}

	backupDir, err := resolveDir(viper.GetString("BACKUP_DIR"), func() (string, error) {
		return filepath.Join(configDir, "backup"), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve BACKUP_DIR: %w", err)
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Trakt
		TraktClientID:     viper.GetString("TRAKT_CLIENT_ID"),
		TraktClientSecret: viper.GetString("TRAKT_CLIENT_SECRET"),
		TraktUsername:     viper.GetString("TRAKT_USERNAME"),

		// Ingestion
		RequestDelay:           viper.GetDuration("REQUEST_DELAY"),
		BatchSize:              viper.GetInt("BATCH_SIZE"),
		MaxConsecutiveFailures: viper.GetInt("MAX_CONSECUTIVE_FAILURES"),
		CacheTTL:               viper.GetDuration("CACHE_TTL"),
		BackupMaxElapsed:       viper.GetDuration("BACKUP_MAX_ELAPSED"),

		// Daemon
		Schedule:   viper.GetString("SCHEDULE"),
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		ConfigDir:   configDir,
		BackupDir:   backupDir,
		TokenFile:   filepath.Join(configDir, "token.json"),
		MetricsFile: viper.GetString("METRICS_FILE"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive, got %d", config.BatchSize)
	}
	if config.RequestDelay < 0 {
		return nil, fmt.Errorf("REQUEST_DELAY must not be negative")
	}
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = 3
	}

	return config, nil
}

// RequireTrakt validates the settings needed to talk to the Trakt API
func (c *Config) RequireTrakt() error {
	if c.TraktClientID == "" {
		return fmt.Errorf("TRAKT_CLIENT_ID is required")
	}
	return nil
}

// UserDir returns the directory holding a user's database and backups
func (c *Config) UserDir(username string) string {
	return filepath.Join(c.BackupDir, username)
}

// DatabaseFile returns the SQLite database path for a user
func (c *Config) DatabaseFile(username string) string {
	return filepath.Join(c.UserDir(username), username+".db")
}

// NewBackupPath returns a fresh timestamped backup directory for a user
func (c *Config) NewBackupPath(username string, now time.Time) string {
	return filepath.Join(c.UserDir(username), now.Format("20060102150405"))
}

// resolveDir converts a configured directory to an absolute path, using fallback when unset
func resolveDir(configured string, fallback func() (string, error)) (string, error) {
	if configured == "" {
		return fallback()
	}
	// Convert relative path to absolute path
	absPath, err := filepath.Abs(configured)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", configured, err)
	}
	return absPath, nil
}
