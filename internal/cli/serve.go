package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/daybreak/internal/config"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/server"
	"github.com/dukerupert/daybreak/internal/storage"
	"github.com/dukerupert/daybreak/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daybreak server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $DAYBREAK_ADDR)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Create the demo group and a week of devotionals")
}

var (
	serveAddr string
	serveSeed bool
)

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveSeed {
		cfg.Server.Seed = true
	}

	db, err := database.Open(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Server.Seed {
		res, err := store.Seed(db, model.DateOf(time.Now()), cfg.Server.SeedPassword)
		if err != nil {
			return err
		}
		logger.Info("seeded demo data", "group_id", res.GroupID, "users", len(res.Users))
	}

	opts := server.Options{}
	if cfg.S3.Enabled() {
		opts.Uploader = storage.NewS3Uploader(cfg.S3, logger.With("component", "storage"))
	} else {
		opts.UploadDir = cfg.Server.UploadDir
		opts.Uploader = &storage.DiskUploader{
			Dir:     cfg.Server.UploadDir,
			BaseURL: strings.TrimRight(cfg.Server.PublicURL, "/") + "/uploads",
		}
	}

	srv := server.New(db, opts, logger)

	// No read/write timeouts: /ws connections are long-lived.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.S3.Enabled() && cfg.Backup.Interval > 0 {
		m := newBackupManager(cfg, db, logger)
		go m.Run(ctx, cfg.Backup.Interval)
		logger.Info("scheduled backups enabled", "interval", cfg.Backup.Interval, "encrypted", cfg.Backup.Passphrase != "")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("daybreak server starting", "addr", cfg.Server.Addr, "s3", cfg.S3.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
