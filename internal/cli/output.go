package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dukerupert/daybreak/internal/devotional"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/stories"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func check(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func printDaily(w io.Writer, st devotional.State) {
	if st.Content == nil {
		fmt.Fprintf(w, "%s  (no devotional published yet)\n", st.Date)
	} else {
		c := st.Content
		fmt.Fprintf(w, "%s  %s\n", st.Date, c.Title)
		fmt.Fprintf(w, "%s\n", c.ScriptureRef)
		if c.ScriptureText != "" {
			fmt.Fprintf(w, "  %s\n", c.ScriptureText)
		}
		if c.Body != "" {
			fmt.Fprintf(w, "\n%s\n", c.Body)
		}
		if c.PrayerPrompt != "" {
			fmt.Fprintf(w, "\nPrayer: %s\n", c.PrayerPrompt)
		}
	}
	rec := st.Completion
	fmt.Fprintf(w, "\n%s Scripture  %s Devotional  %s Prayer\n",
		check(rec.ScriptureCompleted), check(rec.DevotionalCompleted), check(rec.PrayerCompleted))
	if st.AllCompleted {
		fmt.Fprintln(w, "Day complete.")
	}
	if st.Err != nil {
		fmt.Fprintf(w, "warning: %v\n", st.Err)
	}
}

func describeSlide(s model.StorySlide) string {
	if s.Kind == model.SlideCompletion {
		return "completed the day"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "post #%d", s.PostID)
	if s.Caption != "" {
		fmt.Fprintf(&b, " %q", s.Caption)
	}
	fmt.Fprintf(&b, "  likes=%d", s.LikeCount)
	if s.IsLiked {
		b.WriteString(" (you)")
	}
	fmt.Fprintf(&b, " comments=%d", s.CommentCount)
	return b.String()
}

func printStories(w io.Writer, st stories.State) {
	fmt.Fprintf(w, "Stories for %s\n", st.Date)
	if len(st.Slides) == 0 {
		fmt.Fprintln(w, "  nobody has posted yet")
	}
	for i, s := range st.Slides {
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, s.DisplayName, describeSlide(s))
	}

	var waiting []string
	for _, sub := range st.Submissions {
		if !sub.HasPosted {
			waiting = append(waiting, sub.DisplayName)
		}
	}
	if len(waiting) > 0 {
		fmt.Fprintf(w, "Waiting on: %s\n", strings.Join(waiting, ", "))
	}
	if st.Err != nil {
		fmt.Fprintf(w, "warning: %v\n", st.Err)
	}
}

// dailyJSON and storiesJSON flatten view state for --raw output.
type dailyJSON struct {
	Date         model.Date               `json:"date"`
	Content      *model.DevotionalContent `json:"content"`
	Completion   model.CompletionRecord   `json:"completion"`
	AllCompleted bool                     `json:"all_completed"`
	Error        string                   `json:"error,omitempty"`
}

type storiesJSON struct {
	Date        model.Date               `json:"date"`
	Slides      []model.StorySlide       `json:"slides"`
	Submissions []model.MemberSubmission `json:"submissions"`
	Error       string                   `json:"error,omitempty"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeDaily(w io.Writer, st devotional.State) error {
	if raw {
		return printJSON(w, dailyJSON{st.Date, st.Content, st.Completion, st.AllCompleted, errString(st.Err)})
	}
	printDaily(w, st)
	return nil
}

func writeStories(w io.Writer, st stories.State) error {
	if raw {
		return printJSON(w, storiesJSON{st.Date, st.Slides, st.Submissions, errString(st.Err)})
	}
	printStories(w, st)
	return nil
}
