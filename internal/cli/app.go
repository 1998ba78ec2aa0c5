package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/config"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/devotional"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/refresh"
	"github.com/dukerupert/daybreak/internal/remote"
	"github.com/dukerupert/daybreak/internal/session"
	"github.com/dukerupert/daybreak/internal/source"
	"github.com/dukerupert/daybreak/internal/storage"
	"github.com/dukerupert/daybreak/internal/store"
	"github.com/dukerupert/daybreak/internal/stories"
)

// app wires the client data layer for one signed-in user. Every view made
// from it shares the same caches, completion store and refresh broadcast.
type app struct {
	userID  int64
	groupID int64

	source   source.Source
	uploader source.Uploader
	store    *completion.Store
	events   *completion.Events
	engine   *completion.Engine
	refresh  *refresh.Broadcast
	content  *devotional.Content
	caches   *stories.Caches
	streaks  *stories.Streaks
	profile  *model.Profile
	client   *remote.Client // nil when not connected to a server

	streakSub *completion.Subscription
	closers   []func() error
	logger    *slog.Logger
}

func newApp(src source.Source, uploader source.Uploader, persist devotional.Persistence, userID, groupID int64, logger *slog.Logger) *app {
	cs := completion.NewStore(src, logger.With("component", "completion"))
	events := completion.NewEvents()
	a := &app{
		userID:   userID,
		groupID:  groupID,
		source:   src,
		uploader: uploader,
		store:    cs,
		events:   events,
		engine:   completion.NewEngine(cs, src, events, logger.With("component", "engine")),
		refresh:  refresh.New(logger.With("component", "refresh")),
		content:  devotional.NewContent(src, persist, logger.With("component", "content")),
		caches:   stories.NewCaches(cs, logger.With("component", "cache")),
		streaks:  stories.NewStreaks(src, logger.With("component", "streaks")),
		logger:   logger,
	}
	a.streakSub = a.streaks.Listen(events)
	return a
}

func (a *app) daily(date model.Date) *devotional.Daily {
	return devotional.NewDaily(devotional.Deps{
		UserID:  a.userID,
		GroupID: a.groupID,
		Store:   a.store,
		Engine:  a.engine,
		Content: a.content,
		Refresh: a.refresh,
		Logger:  a.logger.With("component", "daily"),
	}, date)
}

func (a *app) stories(date model.Date) *stories.Feed {
	return stories.NewFeed(stories.Deps{
		UserID:   a.userID,
		GroupID:  a.groupID,
		Source:   a.source,
		Uploader: a.uploader,
		Store:    a.store,
		Caches:   a.caches,
		Streaks:  a.streaks,
		Refresh:  a.refresh,
		Logger:   a.logger.With("component", "stories"),
	}, date)
}

// Close waits for background confirmations and streak updates, then
// releases resources in reverse order of acquisition.
func (a *app) Close() error {
	a.engine.Wait()
	a.streaks.Wait()
	a.streakSub.Unsubscribe()

	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	return err
}

// connect signs in to the configured server and builds an app for the
// resulting user and group.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if cfg.Client.Email == "" || cfg.Client.Password == "" {
		return nil, errors.New("--email and --password are required (or DAYBREAK_EMAIL and DAYBREAK_PASSWORD)")
	}

	client := remote.New(remote.Config{BaseURL: cfg.Client.BaseURL})
	res, err := client.SignIn(ctx, strings.TrimSpace(cfg.Client.Email), cfg.Client.Password)
	if err != nil {
		return nil, err
	}

	profiles := session.NewStore(client, cfg.Client.FetchTimeout, logger.With("component", "session"))
	profiles.SignIn(res.User.ID)
	profile, err := profiles.Load(ctx)
	if err != nil {
		return nil, err
	}

	gid := cfg.Client.GroupID
	if gid == 0 {
		gid = profiles.DefaultGroupID()
	}
	if gid == 0 {
		return nil, fmt.Errorf("%s is not a member of any group", profile.Email)
	}

	local, err := database.OpenLocal(cfg.Client.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local cache: %w", err)
	}

	var uploader source.Uploader = client
	if cfg.S3.Enabled() {
		uploader = storage.NewS3Uploader(cfg.S3, logger.With("component", "storage"))
	}

	a := newApp(client, uploader, store.NewKVStore(local), res.User.ID, gid, logger)
	a.profile = profile
	a.client = client
	a.closers = append(a.closers, local.Close, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.SignOut(ctx)
	})
	return a, nil
}

// parseDay accepts an ISO date or today, yesterday and tomorrow relative to
// now. Empty means today.
func parseDay(s string, now time.Time) (model.Date, error) {
	today := model.DateOf(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	d, err := model.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid --date %q: want YYYY-MM-DD, today, yesterday or tomorrow", s)
	}
	return d, nil
}
