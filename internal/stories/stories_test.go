package stories

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/refresh"
	"github.com/dukerupert/daybreak/internal/source"
)

const today model.Date = "2024-01-02"

type fixture struct {
	mem    *source.Memory
	deps   Deps
	engine *completion.Engine
	post   *model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) }

	mem := source.NewMemory()
	mem.PutMember(model.Member{UserID: 3, GroupID: 10, DisplayName: "Bob"})
	mem.PutMember(model.Member{UserID: 2, GroupID: 10, DisplayName: "Alice"})
	mem.PutMember(model.Member{UserID: 1, GroupID: 10, DisplayName: "You"})
	mem.PutCompletion(model.CompletionRecord{UserID: 2, GroupID: 10, Date: today,
		ScriptureCompleted: true, DevotionalCompleted: true, PrayerCompleted: true})
	post, err := mem.CreatePost(ctx, model.Post{UserID: 3, GroupID: 10, Date: today, ImageURL: "mem://bob.jpg", Caption: "Sunrise"})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	if err := mem.ToggleLike(ctx, post.ID, 2, true); err != nil {
		t.Fatalf("seed like: %v", err)
	}
	mem.PutComments(post.ID, 2)

	st := completion.NewStoreWithClock(mem, logger, now)
	engine := completion.NewEngine(st, mem, completion.NewEvents(), logger)
	streaks := NewStreaks(mem, logger)
	t.Cleanup(func() {
		engine.Wait()
		streaks.Wait()
	})

	return &fixture{
		mem:    mem,
		engine: engine,
		post:   post,
		deps: Deps{
			UserID:   1,
			GroupID:  10,
			Source:   mem,
			Uploader: mem,
			Store:    st,
			Caches:   NewCachesWithClock(st, logger, now),
			Streaks:  streaks,
			Refresh:  refresh.New(logger),
			Logger:   logger,
		},
	}
}

func (fx *fixture) load(t *testing.T) *Feed {
	t.Helper()
	f := NewFeed(fx.deps, today)
	t.Cleanup(f.Close)
	if err := f.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return f
}

func slideFor(slides []model.StorySlide, postID int64) (model.StorySlide, bool) {
	for _, s := range slides {
		if s.Kind == model.SlidePost && s.PostID == postID {
			return s, true
		}
	}
	return model.StorySlide{}, false
}

func TestFeedLoad(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)

	st := f.State()
	if st.Loading || st.Err != nil {
		t.Fatalf("state = %+v", st)
	}
	if len(st.Slides) != 2 {
		t.Fatalf("got %d slides, want 2", len(st.Slides))
	}
	if st.Slides[0].MemberID != 2 || st.Slides[0].Kind != model.SlideCompletion {
		t.Errorf("slide 0 = %+v, want Alice's completion", st.Slides[0])
	}
	bob := st.Slides[1]
	if bob.PostID != fx.post.ID || bob.LikeCount != 1 || bob.IsLiked || bob.CommentCount != 2 {
		t.Errorf("slide 1 = %+v", bob)
	}

	subs := f.Submissions()
	if len(subs) != 3 || subs[0].MemberID != 1 || subs[0].HasPosted {
		t.Errorf("submissions = %+v", subs)
	}

	// Group rows were written through to the completion store.
	if !fx.deps.Store.Current(completion.Scope{UserID: 2, GroupID: 10, Date: today}).AllCompleted() {
		t.Error("group completions not primed into the store")
	}
}

func TestFeedSharesCaches(t *testing.T) {
	fx := newFixture(t)
	fx.load(t)
	fx.load(t)
	for _, method := range []string{"ListGroupMembers", "ListGroupPosts", "GetLikes", "GetCommentCounts", "ListGroupCompletions"} {
		if n := fx.mem.Calls(method); n != 1 {
			t.Errorf("%s calls = %d, want 1", method, n)
		}
	}
}

func TestFeedRefreshRefetches(t *testing.T) {
	fx := newFixture(t)
	fx.load(t)
	if err := fx.deps.Refresh.RequestRefresh(context.Background()); err != nil {
		t.Fatalf("RequestRefresh: %v", err)
	}
	if n := fx.mem.Calls("ListGroupPosts"); n != 2 {
		t.Errorf("ListGroupPosts calls = %d, want 2", n)
	}
}

func TestFeedSeesLocalCompletion(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)
	changed := 0
	f.OnChange(func(State) { changed++ })

	all := true
	scope := completion.Scope{UserID: 1, GroupID: 10, Date: today}
	err := fx.engine.UpdateCompletion(context.Background(), scope, model.CompletionUpdate{Scripture: &all, Devotional: &all, Prayer: &all})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	slides := f.Slides()
	if len(slides) != 3 || slides[0].MemberID != 1 || slides[0].Kind != model.SlideCompletion {
		t.Errorf("slides = %+v, want current user's completion first", slides)
	}
	if changed == 0 {
		t.Error("feed not notified of the completion")
	}
	if n := fx.mem.Calls("ListGroupCompletions"); n != 1 {
		t.Errorf("ListGroupCompletions calls = %d, want 1", n)
	}
}

func TestToggleLike(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)
	ctx := context.Background()

	if err := f.ToggleLike(ctx, fx.post.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	s, _ := slideFor(f.Slides(), fx.post.ID)
	if s.LikeCount != 2 || !s.IsLiked {
		t.Errorf("after like = %+v", s)
	}

	if err := f.ToggleLike(ctx, fx.post.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	s, _ = slideFor(f.Slides(), fx.post.ID)
	if s.LikeCount != 1 || s.IsLiked {
		t.Errorf("after unlike = %+v", s)
	}
}

func TestToggleLikeRollsBack(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)
	fx.mem.Fail("ToggleLike", source.ErrInjected)
	release := fx.mem.Gate("ToggleLike")

	errc := make(chan error, 1)
	go func() { errc <- f.ToggleLike(context.Background(), fx.post.ID) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if s, _ := slideFor(f.Slides(), fx.post.ID); s.IsLiked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("optimistic like never became visible")
		}
		time.Sleep(time.Millisecond)
	}
	release()

	if err := <-errc; !errors.Is(err, source.ErrInjected) {
		t.Fatalf("err = %v, want injected", err)
	}
	s, _ := slideFor(f.Slides(), fx.post.ID)
	if s.IsLiked || s.LikeCount != 1 {
		t.Errorf("after rollback = %+v", s)
	}
}

func TestPublish(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)

	post, err := f.Publish(context.Background(), []byte("jpeg"), "Coffee and Psalms")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.HasPrefix(post.ImageURL, "mem://posts/10/2024-01-02/") || !strings.HasSuffix(post.ImageURL, ".jpg") {
		t.Errorf("image url = %q", post.ImageURL)
	}
	if data, ok := fx.mem.Upload(strings.TrimPrefix(post.ImageURL, "mem://")); !ok || string(data) != "jpeg" {
		t.Error("image not uploaded")
	}

	slides := f.Slides()
	if len(slides) != 3 || slides[0].MemberID != 1 || slides[0].PostID != post.ID {
		t.Errorf("slides = %+v, want the new post first", slides)
	}

	streak, err := fx.mem.GetStreak(context.Background(), 1)
	if err != nil || streak == nil || streak.CurrentStreak != 1 || streak.LastPostDate != today {
		t.Errorf("streak = %+v, %v", streak, err)
	}
}

func TestPublishUploadFailure(t *testing.T) {
	fx := newFixture(t)
	f := fx.load(t)
	fx.mem.Fail("UploadImage", source.ErrInjected)

	if _, err := f.Publish(context.Background(), []byte("jpeg"), ""); !errors.Is(err, source.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
	if fx.mem.Calls("CreatePost") != 1 {
		t.Error("a failed upload should not create a post")
	}
}

func TestFeedClose(t *testing.T) {
	fx := newFixture(t)
	f := NewFeed(fx.deps, today)
	f.Close()
	if fx.deps.Refresh.Count() != 0 || fx.deps.Store.Listeners() != 0 {
		t.Errorf("registrations = %d, listeners = %d", fx.deps.Refresh.Count(), fx.deps.Store.Listeners())
	}
}

func TestStreaksAdvance(t *testing.T) {
	fx := newFixture(t)
	s := fx.deps.Streaks
	ctx := context.Background()

	for _, day := range []model.Date{"2024-01-01", "2024-01-02", "2024-01-02"} {
		if _, err := s.Advance(ctx, 1, day); err != nil {
			t.Fatalf("Advance %s: %v", day, err)
		}
	}
	got, _ := fx.mem.GetStreak(ctx, 1)
	if got.CurrentStreak != 2 || got.LongestStreak != 2 {
		t.Errorf("streak = %+v", got)
	}
	if n := fx.mem.Calls("SaveStreak"); n != 2 {
		t.Errorf("SaveStreak calls = %d, want 2 (same-day post is a no-op)", n)
	}
}

func TestStreaksListen(t *testing.T) {
	fx := newFixture(t)
	sub := fx.deps.Streaks.Listen(fx.engine.Events())
	defer sub.Unsubscribe()

	all := true
	scope := completion.Scope{UserID: 1, GroupID: 10, Date: today}
	if err := fx.engine.UpdateCompletion(context.Background(), scope, model.CompletionUpdate{Scripture: &all, Devotional: &all, Prayer: &all}); err != nil {
		t.Fatalf("update: %v", err)
	}
	fx.deps.Streaks.Wait()

	got, err := fx.mem.GetStreak(context.Background(), 1)
	if err != nil || got == nil || got.CurrentStreak != 1 {
		t.Errorf("streak = %+v, %v", got, err)
	}
}

func TestStreaksListenIgnoresEarlierDay(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	live := model.Streak{UserID: 1, CurrentStreak: 5, LongestStreak: 5, LastPostDate: today}
	if err := fx.mem.SaveStreak(ctx, live); err != nil {
		t.Fatalf("seed streak: %v", err)
	}
	sub := fx.deps.Streaks.Listen(fx.engine.Events())
	defer sub.Unsubscribe()
	fired := 0
	fx.engine.Events().Subscribe(func(completion.Event) { fired++ })

	all := true
	earlier := completion.Scope{UserID: 1, GroupID: 10, Date: today.AddDays(-2)}
	if err := fx.engine.UpdateCompletion(ctx, earlier, model.CompletionUpdate{Scripture: &all, Devotional: &all, Prayer: &all}); err != nil {
		t.Fatalf("update: %v", err)
	}
	fx.deps.Streaks.Wait()

	if fired != 1 {
		t.Fatalf("completion events = %d, want 1", fired)
	}
	got, err := fx.mem.GetStreak(ctx, 1)
	if err != nil || got == nil || *got != live {
		t.Errorf("streak = %+v, %v, want %+v", got, err, live)
	}
}
