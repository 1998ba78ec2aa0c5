// Package backup snapshots the server database to object storage on a
// schedule and prunes snapshots past their retention.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectStore is the slice of the S3 API the manager uses.
type objectStore interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

const timestampLayout = "2006-01-02T150405Z"

type Config struct {
	Bucket string
	// Prefix is prepended to every object key, e.g. "backups/".
	Prefix string
	// Passphrase, when set, encrypts snapshots before upload.
	Passphrase string
	// Retention is how long snapshots are kept; zero keeps them forever.
	Retention time.Duration
}

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateError   State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Result describes one uploaded snapshot.
type Result struct {
	Key  string
	Size int64
}

type Manager struct {
	cfg    Config
	db     *sql.DB
	client objectStore
	logger *slog.Logger
	now    func() time.Time

	running sync.Mutex // one snapshot at a time

	mu     sync.RWMutex
	status Status
}

// NewManager creates a new backup manager.
func NewManager(cfg Config, db *sql.DB, client objectStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		db:     db,
		client: client,
		logger: logger,
		now:    time.Now,
		status: Status{State: StateIdle},
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(fn func(*Status)) {
	m.mu.Lock()
	fn(&m.status)
	m.mu.Unlock()
}

// Snapshot writes a consistent copy of the database, optionally encrypts
// it and uploads it.
func (m *Manager) Snapshot(ctx context.Context) (Result, error) {
	m.running.Lock()
	defer m.running.Unlock()

	m.setStatus(func(s *Status) { s.State = StateRunning })
	res, err := m.snapshot(ctx)
	if err != nil {
		m.setStatus(func(s *Status) { s.State, s.Error = StateError, err.Error() })
		return Result{}, err
	}
	at := m.now().UTC()
	m.setStatus(func(s *Status) { *s = Status{State: StateIdle, LastBackup: &at, LastKey: res.Key} })
	m.logger.Info("backup uploaded", "key", res.Key, "bytes", res.Size)
	return res, nil
}

func (m *Manager) snapshot(ctx context.Context) (Result, error) {
	dir, err := os.MkdirTemp("", "daybreak-backup-")
	if err != nil {
		return Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// VACUUM INTO produces a transactionally consistent copy without
	// stopping writers.
	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return Result{}, fmt.Errorf("vacuum into: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot: %w", err)
	}

	name := "daybreak-" + m.now().UTC().Format(timestampLayout) + ".db"
	if m.cfg.Passphrase != "" {
		if data, err = Encrypt(data, m.cfg.Passphrase); err != nil {
			return Result{}, fmt.Errorf("encrypt snapshot: %w", err)
		}
		name += ".enc"
	}

	key := m.cfg.Prefix + name
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return Result{}, fmt.Errorf("upload snapshot: %w", err)
	}
	return Result{Key: key, Size: int64(len(data))}, nil
}

// Prune deletes snapshots under the prefix older than the retention and
// returns the deleted keys. Snapshot age comes from the timestamp in the
// object name, not the store's modification time.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	if m.cfg.Retention <= 0 {
		return nil, nil
	}
	cutoff := m.now().Add(-m.cfg.Retention)

	var deleted []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(m.cfg.Bucket), Prefix: aws.String(m.cfg.Prefix)}
	for {
		out, err := m.client.ListObjectsV2(ctx, input)
		if err != nil {
			return deleted, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			at, ok := snapshotTime(strings.TrimPrefix(key, m.cfg.Prefix))
			if !ok || !at.Before(cutoff) {
				continue
			}
			if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(m.cfg.Bucket), Key: aws.String(key)}); err != nil {
				m.logger.Warn("delete snapshot", "key", key, "error", err)
				continue
			}
			deleted = append(deleted, key)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	if len(deleted) > 0 {
		m.logger.Info("old backups pruned", "count", len(deleted))
	}
	return deleted, nil
}

func snapshotTime(name string) (time.Time, bool) {
	name = strings.TrimSuffix(name, ".enc")
	if !strings.HasPrefix(name, "daybreak-") || !strings.HasSuffix(name, ".db") {
		return time.Time{}, false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, "daybreak-"), ".db")
	t, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Run takes a snapshot and prunes every interval until ctx ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Snapshot(ctx); err != nil {
				m.logger.Error("scheduled backup", "error", err)
				continue
			}
			if _, err := m.Prune(ctx); err != nil {
				m.logger.Warn("prune backups", "error", err)
			}
		}
	}
}
