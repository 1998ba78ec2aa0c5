// Package config loads daybreak settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/daybreak/internal/storage"
)

type Config struct {
	Log    LogConfig
	Server ServerConfig
	Client ClientConfig
	S3     storage.S3Config
	Backup BackupConfig
}

// BackupConfig controls scheduled database snapshots to the S3 bucket.
type BackupConfig struct {
	// Interval between snapshots; zero disables the schedule.
	Interval   time.Duration
	Prefix     string
	Passphrase string
	Retention  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig is used by `daybreak serve`.
type ServerConfig struct {
	Addr      string
	DBPath    string
	PublicURL string
	UploadDir string
	// Seed creates the demo group on start.
	Seed         bool
	SeedPassword string
}

// ClientConfig is used by the commands that talk to a server.
type ClientConfig struct {
	BaseURL      string
	Email        string
	Password     string
	GroupID      int64
	LocalDBPath  string
	FetchTimeout time.Duration
}

// Load reads an optional .env file and then DAYBREAK_* variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}

	addr := getEnv("DAYBREAK_ADDR", ":8080")
	return &Config{
		Log: LogConfig{
			Level:  getEnv("DAYBREAK_LOG_LEVEL", "info"),
			Format: getEnv("DAYBREAK_LOG_FORMAT", "text"),
		},
		Server: ServerConfig{
			Addr:         addr,
			DBPath:       getEnv("DAYBREAK_DB_PATH", "daybreak.db"),
			PublicURL:    getEnv("DAYBREAK_PUBLIC_URL", "http://localhost"+addr),
			UploadDir:    getEnv("DAYBREAK_UPLOAD_DIR", "uploads"),
			Seed:         getBool("DAYBREAK_SEED", false),
			SeedPassword: getEnv("DAYBREAK_SEED_PASSWORD", "daybreak"),
		},
		Client: ClientConfig{
			BaseURL:      getEnv("DAYBREAK_URL", "http://localhost:8080"),
			Email:        getEnv("DAYBREAK_EMAIL", ""),
			Password:     getEnv("DAYBREAK_PASSWORD", ""),
			GroupID:      getInt("DAYBREAK_GROUP_ID", 0),
			LocalDBPath:  getEnv("DAYBREAK_LOCAL_DB", "daybreak-local.db"),
			FetchTimeout: getDuration("DAYBREAK_FETCH_TIMEOUT", 10*time.Second),
		},
		S3: storage.S3Config{
			Endpoint:  getEnv("DAYBREAK_S3_ENDPOINT", ""),
			Bucket:    getEnv("DAYBREAK_S3_BUCKET", ""),
			Region:    getEnv("DAYBREAK_S3_REGION", "us-east-1"),
			AccessKey: getEnv("DAYBREAK_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("DAYBREAK_S3_SECRET_KEY", ""),
			PublicURL: getEnv("DAYBREAK_S3_PUBLIC_URL", ""),
		},
		Backup: BackupConfig{
			Interval:   getDuration("DAYBREAK_BACKUP_INTERVAL", 0),
			Prefix:     getEnv("DAYBREAK_BACKUP_PREFIX", "backups/"),
			Passphrase: getEnv("DAYBREAK_BACKUP_PASSPHRASE", ""),
			Retention:  getDuration("DAYBREAK_BACKUP_RETENTION", 30*24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}
