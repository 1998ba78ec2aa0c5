package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/daybreak/internal/devotional"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/realtime"
	"github.com/dukerupert/daybreak/internal/stories"
)

func init() {
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(backupCmd)

	postCmd.Flags().String("caption", "", "Caption for the photo")
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show the devotional and your progress for a day",
	RunE:  handleToday,
}

var completeCmd = &cobra.Command{
	Use:       "complete [scripture|devotional|prayer|all]",
	Short:     "Mark a step of the day complete",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"scripture", "devotional", "prayer", "all"},
	RunE:      handleComplete,
}

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Show your group's stories for a day",
	RunE:  handleStories,
}

var likeCmd = &cobra.Command{
	Use:   "like [post-id]",
	Short: "Like a post, or remove your like",
	Args:  cobra.ExactArgs(1),
	RunE:  handleLike,
}

var postCmd = &cobra.Command{
	Use:   "post [image-file]",
	Short: "Share a photo with your group",
	Args:  cobra.ExactArgs(1),
	RunE:  handlePost,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the day and the stories, ignoring cached data",
	RunE:  handleRefresh,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the day and the stories live",
	RunE:  handleWatch,
}

// withApp runs fn with a connected app, closing it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	a, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

func handleToday(cmd *cobra.Command, args []string) error {
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		d := a.daily(date)
		defer d.Close()
		if err := d.Load(ctx); err != nil {
			return err
		}
		return writeDaily(cmd.OutOrStdout(), d.State())
	})
}

func handleComplete(cmd *cobra.Command, args []string) error {
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	step := strings.ToLower(args[0])
	return withApp(cmd, func(ctx context.Context, a *app) error {
		d := a.daily(date)
		defer d.Close()
		if err := d.Load(ctx); err != nil {
			return err
		}

		var marks []func(context.Context) error
		switch step {
		case "scripture":
			marks = append(marks, d.MarkScriptureComplete)
		case "devotional":
			marks = append(marks, d.MarkDevotionalComplete)
		case "prayer":
			marks = append(marks, d.MarkPrayerComplete)
		case "all":
			marks = append(marks, d.MarkScriptureComplete, d.MarkDevotionalComplete, d.MarkPrayerComplete)
		default:
			return fmt.Errorf("unknown step %q: want scripture, devotional, prayer or all", step)
		}
		for _, mark := range marks {
			if err := mark(ctx); err != nil {
				return err
			}
		}
		return writeDaily(cmd.OutOrStdout(), d.State())
	})
}

func handleStories(cmd *cobra.Command, args []string) error {
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		f := a.stories(date)
		defer f.Close()
		if err := f.Load(ctx); err != nil {
			return err
		}
		return writeStories(cmd.OutOrStdout(), f.State())
	})
}

func handleLike(cmd *cobra.Command, args []string) error {
	postID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post id %q", args[0])
	}
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		f := a.stories(date)
		defer f.Close()
		if err := f.Load(ctx); err != nil {
			return err
		}
		if err := f.ToggleLike(ctx, postID); err != nil {
			return err
		}
		for _, s := range f.Slides() {
			if s.Kind != model.SlidePost || s.PostID != postID {
				continue
			}
			verb := "unliked"
			if s.IsLiked {
				verb = "liked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Post #%d %s (%d likes)\n", postID, verb, s.LikeCount)
			return nil
		}
		return fmt.Errorf("post #%d is not in the stories for %s", postID, date)
	})
}

func handlePost(cmd *cobra.Command, args []string) error {
	caption, _ := cmd.Flags().GetString("caption")
	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		f := a.stories(date)
		defer f.Close()
		post, err := f.Publish(ctx, image, caption)
		if err != nil {
			return err
		}
		if raw {
			return printJSON(cmd.OutOrStdout(), post)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Shared post #%d: %s\n", post.ID, post.ImageURL)
		return nil
	})
}

func handleRefresh(cmd *cobra.Command, args []string) error {
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		d := a.daily(date)
		defer d.Close()
		f := a.stories(date)
		defer f.Close()

		// Refresh re-fetches everything registered, whether or not it was
		// loaded before.
		if err := a.refresh.RequestRefresh(ctx); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := writeDaily(out, d.State()); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return writeStories(out, f.State())
	})
}

func handleWatch(cmd *cobra.Command, args []string) error {
	date, err := parseDay(dateFlag, time.Now())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, a *app) error {
		out := cmd.OutOrStdout()
		d := a.daily(date)
		defer d.Close()
		f := a.stories(date)
		defer f.Close()

		d.OnChange(func(st devotional.State) {
			if !st.Loading {
				writeDaily(out, st)
			}
		})
		f.OnChange(func(st stories.State) {
			if !st.Loading {
				writeStories(out, st)
			}
		})
		if err := d.Load(ctx); err != nil {
			logger.Warn("load day", "error", err)
		}
		if err := f.Load(ctx); err != nil {
			logger.Warn("load stories", "error", err)
		}

		l := realtime.NewListener(realtime.Config{
			BaseURL: a.client.BaseURL(),
			Token:   a.client.Token(),
			GroupID: a.groupID,
		}, a.refresh, logger.With("component", "realtime"))

		fmt.Fprintln(os.Stderr, "Watching for changes; press Ctrl-C to stop.")
		if err := l.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
}
