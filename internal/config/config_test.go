package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"DAYBREAK_ADDR", "DAYBREAK_GROUP_ID", "DAYBREAK_SEED", "DAYBREAK_S3_BUCKET", "DAYBREAK_FETCH_TIMEOUT", "DAYBREAK_PUBLIC_URL", "DAYBREAK_BACKUP_INTERVAL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.PublicURL != "http://localhost:8080" {
		t.Errorf("PublicURL = %q", cfg.Server.PublicURL)
	}
	if cfg.Server.Seed {
		t.Error("Seed should default to false")
	}
	if cfg.Client.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.Client.FetchTimeout)
	}
	if cfg.S3.Enabled() {
		t.Error("S3 should be disabled without a bucket")
	}
	if cfg.Backup.Interval != 0 || cfg.Backup.Retention != 720*time.Hour || cfg.Backup.Prefix != "backups/" {
		t.Errorf("Backup = %+v", cfg.Backup)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DAYBREAK_ADDR", ":9000")
	t.Setenv("DAYBREAK_GROUP_ID", "42")
	t.Setenv("DAYBREAK_SEED", "true")
	t.Setenv("DAYBREAK_FETCH_TIMEOUT", "3s")
	t.Setenv("DAYBREAK_LOG_FORMAT", "json")

	cfg := Load()
	if cfg.Server.Addr != ":9000" || cfg.Server.PublicURL != "http://localhost:9000" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Client.GroupID != 42 {
		t.Errorf("GroupID = %d", cfg.Client.GroupID)
	}
	if !cfg.Server.Seed {
		t.Error("Seed should be true")
	}
	if cfg.Client.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.Client.FetchTimeout)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q", cfg.Log.Format)
	}
}
