package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/daybreak/internal/feed"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/source"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through a day against an in-memory group, no server needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.Context(), cmd.OutOrStdout(), model.DateOf(time.Now()), logger)
	},
}

const (
	demoGroup = 1
	demoYou   = 1
	demoAlice = 2
	demoBob   = 3
)

// demoSource builds a group where Alice has finished the day and Bob has
// shared a photo that Alice liked.
func demoSource(ctx context.Context, today model.Date) (*source.Memory, int64, error) {
	mem := source.NewMemory()
	for _, m := range []model.Member{
		{UserID: demoYou, GroupID: demoGroup, DisplayName: "You", Role: "admin"},
		{UserID: demoAlice, GroupID: demoGroup, DisplayName: "Alice", Role: "member"},
		{UserID: demoBob, GroupID: demoGroup, DisplayName: "Bob", Role: "member"},
	} {
		mem.PutMember(m)
	}
	mem.PutContent(model.DevotionalContent{
		Date:           today,
		Title:          "New Every Morning",
		ScriptureRef:   "Lamentations 3:22-23",
		ScriptureText:  "His mercies never come to an end; they are new every morning.",
		Body:           "Read the passage slowly, twice. What word stays with you?",
		PrayerPrompt:   "Thank God for one new mercy today.",
		ReadingMinutes: 5,
	})
	mem.PutCompletion(model.CompletionRecord{
		UserID: demoAlice, GroupID: demoGroup, Date: today,
		ScriptureCompleted: true, DevotionalCompleted: true, PrayerCompleted: true,
	})

	post, err := mem.CreatePost(ctx, model.Post{
		UserID: demoBob, GroupID: demoGroup, Date: today,
		ImageURL: "mem://posts/1/" + today.String() + "/sunrise.jpg",
		Caption:  "Sunrise walk",
	})
	if err != nil {
		return nil, 0, err
	}
	if err := mem.ToggleLike(ctx, post.ID, demoAlice, true); err != nil {
		return nil, 0, err
	}
	mem.PutComments(post.ID, 1)
	return mem, post.ID, nil
}

func runDemo(ctx context.Context, w io.Writer, today model.Date, logger *slog.Logger) error {
	mem, postID, err := demoSource(ctx, today)
	if err != nil {
		return err
	}

	a := newApp(mem, mem, nil, demoYou, demoGroup, logger)
	defer a.Close()

	d := a.daily(today)
	defer d.Close()
	f := a.stories(today)
	defer f.Close()

	if err := d.Load(ctx); err != nil {
		return err
	}
	if err := f.Load(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "== Morning")
	printDaily(w, d.State())
	fmt.Fprintln(w)
	printStories(w, f.State())

	for _, mark := range []func(context.Context) error{
		d.MarkScriptureComplete,
		d.MarkDevotionalComplete,
		d.MarkPrayerComplete,
	} {
		if err := mark(ctx); err != nil {
			return err
		}
	}
	if err := f.ToggleLike(ctx, postID); err != nil {
		return err
	}
	a.streaks.Wait()

	fmt.Fprintln(w, "\n== After your devotional")
	printDaily(w, d.State())
	fmt.Fprintln(w)
	printStories(w, f.State())

	st, err := mem.GetStreak(ctx, demoYou)
	if err != nil {
		return err
	}
	if st != nil {
		fmt.Fprintf(w, "\nStreak: %d day(s), longest %d\n", feed.CurrentStreak(*st, today), st.LongestStreak)
	}
	return nil
}
