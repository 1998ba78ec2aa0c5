package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/daybreak/internal/backup"
	"github.com/dukerupert/daybreak/internal/config"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/storage"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the server database to the S3 bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.S3.Enabled() {
			return fmt.Errorf("backup needs DAYBREAK_S3_BUCKET, DAYBREAK_S3_ACCESS_KEY and DAYBREAK_S3_SECRET_KEY")
		}
		db, err := database.Open(cfg.Server.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		return runBackup(cmd.Context(), cmd.OutOrStdout(), newBackupManager(cfg, db, logger), backupPrune)
	},
}

var backupDecryptCmd = &cobra.Command{
	Use:   "decrypt <in> <out>",
	Short: "Decrypt a downloaded snapshot with DAYBREAK_BACKUP_PASSPHRASE",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Backup.Passphrase == "" {
			return fmt.Errorf("DAYBREAK_BACKUP_PASSPHRASE is not set")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		plain, err := backup.Decrypt(data, cfg.Backup.Passphrase)
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], plain, 0o600)
	},
}

var backupPrune bool

func init() {
	backupCmd.Flags().BoolVar(&backupPrune, "prune", true, "Delete snapshots older than DAYBREAK_BACKUP_RETENTION")
	backupCmd.AddCommand(backupDecryptCmd)
}

func newBackupManager(cfg *config.Config, db *sql.DB, logger *slog.Logger) *backup.Manager {
	return backup.NewManager(backup.Config{
		Bucket:     cfg.S3.Bucket,
		Prefix:     cfg.Backup.Prefix,
		Passphrase: cfg.Backup.Passphrase,
		Retention:  cfg.Backup.Retention,
	}, db, storage.NewClient(cfg.S3), logger.With("component", "backup"))
}

type snapshotter interface {
	Snapshot(ctx context.Context) (backup.Result, error)
	Prune(ctx context.Context) ([]string, error)
}

func runBackup(ctx context.Context, w io.Writer, m snapshotter, prune bool) error {
	res, err := m.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Uploaded %s (%d bytes)\n", res.Key, res.Size)
	if !prune {
		return nil
	}
	deleted, err := m.Prune(ctx)
	if err != nil {
		return err
	}
	for _, k := range deleted {
		fmt.Fprintf(w, "Deleted %s\n", k)
	}
	return nil
}
