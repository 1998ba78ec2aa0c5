package stories

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/daybreak/internal/completion"
	"github.com/dukerupert/daybreak/internal/feed"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/refresh"
	"github.com/dukerupert/daybreak/internal/source"
)

// Deps are the shared collaborators of every Feed.
type Deps struct {
	UserID   int64
	GroupID  int64
	Source   source.Source
	Uploader source.Uploader
	Store    *completion.Store
	Caches   *Caches
	Streaks  *Streaks
	Refresh  *refresh.Broadcast
	Logger   *slog.Logger
}

// State is what the stories screen renders.
type State struct {
	Date        model.Date
	Slides      []model.StorySlide
	Submissions []model.MemberSubmission
	Loading     bool
	Err         error
}

// Feed is the view-model for a group's stories on one day.
type Feed struct {
	deps Deps
	date model.Date

	mu       sync.Mutex
	members  []model.Member
	posts    []model.Post
	likes    []model.Like
	comments map[int64]int
	loading  bool
	err      error
	closed   bool
	onChange func(State)

	sub *completion.Subscription
	reg *refresh.Registration
}

// NewFeed binds a feed to date; the zero date means today.
func NewFeed(deps Deps, date model.Date) *Feed {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if date.IsZero() {
		date = deps.Store.Today()
	}
	f := &Feed{deps: deps, date: date, loading: true}

	// Completions written anywhere in the process show up without a fetch.
	f.sub = deps.Store.SubscribeGroup(deps.GroupID, date, func(completion.Scope, model.CompletionRecord) {
		f.update(func() {})
	})
	if deps.Refresh != nil {
		f.reg = deps.Refresh.Register(fmt.Sprintf("stories:%d:%s", deps.GroupID, date), f.Refresh)
	}
	return f
}

// OnChange sets the function called after every state change.
func (f *Feed) OnChange(fn func(State)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *Feed) update(fn func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	fn()
	notify := f.onChange
	f.mu.Unlock()
	if notify != nil {
		notify(f.State())
	}
}

// rows assembles the current rows; f.mu must be held.
func (f *Feed) rows() feed.Rows {
	r := feed.Rows{
		CurrentUserID: f.deps.UserID,
		Members:       f.members,
		Posts:         f.posts,
		Likes:         f.likes,
		CommentCounts: f.comments,
	}
	for _, m := range f.members {
		scope := completion.Scope{UserID: m.UserID, GroupID: f.deps.GroupID, Date: f.date}
		if e, ok := f.deps.Store.Read(scope); ok {
			r.Completions = append(r.Completions, e.Data)
		}
	}
	return r
}

// State derives the slides and submissions from the current rows.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows()
	return State{
		Date:        f.date,
		Slides:      feed.BuildStorySlides(r),
		Submissions: feed.BuildSubmissions(r),
		Loading:     f.loading,
		Err:         f.err,
	}
}

func (f *Feed) Slides() []model.StorySlide {
	return f.State().Slides
}

func (f *Feed) Submissions() []model.MemberSubmission {
	return f.State().Submissions
}

// Load reads every list through the shared caches.
func (f *Feed) Load(ctx context.Context) error {
	return f.load(ctx, false)
}

// Refresh re-fetches every list regardless of freshness.
func (f *Feed) Refresh(ctx context.Context) error {
	return f.load(ctx, true)
}

func (f *Feed) load(ctx context.Context, force bool) error {
	f.update(func() { f.loading = true })

	c := f.deps.Caches
	src := f.deps.Source
	g, date := f.deps.GroupID, f.date

	members, err := get(ctx, c.Members.Load, c.Members.Fetch, force, membersKey(g), func(ctx context.Context) ([]model.Member, error) {
		return src.ListGroupMembers(ctx, g)
	})
	if err != nil {
		return f.fail(fmt.Errorf("load members: %w", err))
	}
	posts, err := get(ctx, c.Posts.Load, c.Posts.Fetch, force, postsKey(g, date), func(ctx context.Context) ([]model.Post, error) {
		return src.ListGroupPosts(ctx, g, date)
	})
	if err != nil {
		return f.fail(fmt.Errorf("load posts: %w", err))
	}
	ids := postIDs(posts)
	likes, err := get(ctx, c.Likes.Load, c.Likes.Fetch, force, likesKey(g, date), func(ctx context.Context) ([]model.Like, error) {
		return src.GetLikes(ctx, ids)
	})
	if err != nil {
		return f.fail(fmt.Errorf("load likes: %w", err))
	}
	comments, err := get(ctx, c.Comments.Load, c.Comments.Fetch, force, commentsKey(g, date), func(ctx context.Context) (map[int64]int, error) {
		return src.GetCommentCounts(ctx, ids)
	})
	if err != nil {
		return f.fail(fmt.Errorf("load comment counts: %w", err))
	}
	if !date.After(f.deps.Store.Today()) {
		_, err = get(ctx, c.Completions.Load, c.Completions.Fetch, force, completionsKey(g, date), func(ctx context.Context) ([]model.CompletionRecord, error) {
			return src.ListGroupCompletions(ctx, g, date)
		})
		if err != nil {
			return f.fail(fmt.Errorf("load group completions: %w", err))
		}
	}

	f.update(func() {
		f.members, f.posts, f.likes, f.comments = members, posts, likes, comments
		f.loading = false
		f.err = nil
	})
	return nil
}

func get[T any](
	ctx context.Context,
	load func(context.Context, string, func(context.Context) (T, error)) (T, bool, error),
	fetch func(context.Context, string, func(context.Context) (T, error)) (T, error),
	force bool,
	key string,
	fn func(context.Context) (T, error),
) (T, error) {
	if force {
		return fetch(ctx, key, fn)
	}
	v, _, err := load(ctx, key, fn)
	return v, err
}

func (f *Feed) fail(err error) error {
	f.update(func() {
		f.loading = false
		f.err = err
	})
	f.deps.Logger.Warn("load stories", "group_id", f.deps.GroupID, "date", f.date, "error", err)
	return err
}

func postIDs(posts []model.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

// ToggleLike flips the current user's like on postID immediately and
// restores the previous likes if the remote write fails.
func (f *Feed) ToggleLike(ctx context.Context, postID int64) error {
	f.mu.Lock()
	prev := f.likes
	_, isLiked := feed.Likes(postID, f.deps.UserID, prev)
	next := toggled(prev, postID, f.deps.UserID, !isLiked)
	f.likes = next
	f.mu.Unlock()

	key := likesKey(f.deps.GroupID, f.date)
	f.deps.Caches.Likes.Cache.Put(key, next)
	f.update(func() {})

	if err := f.deps.Source.ToggleLike(ctx, postID, f.deps.UserID, !isLiked); err != nil {
		f.mu.Lock()
		f.likes = prev
		f.mu.Unlock()
		f.deps.Caches.Likes.Cache.Put(key, prev)
		f.update(func() {})
		return fmt.Errorf("toggle like: %w", err)
	}
	return nil
}

func toggled(likes []model.Like, postID, userID int64, like bool) []model.Like {
	out := make([]model.Like, 0, len(likes)+1)
	for _, l := range likes {
		if l.PostID == postID && l.UserID == userID {
			continue
		}
		out = append(out, l)
	}
	if like {
		out = append(out, model.Like{PostID: postID, UserID: userID})
	}
	return out
}

// Publish uploads image, creates the post for the feed's day and advances
// the user's streak.
func (f *Feed) Publish(ctx context.Context, image []byte, caption string) (*model.Post, error) {
	if f.deps.Uploader == nil {
		return nil, fmt.Errorf("publish: no uploader configured")
	}
	url, err := f.deps.Uploader.UploadImage(ctx, image, PostPath(f.deps.GroupID, f.date, uuid.NewString()))
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	post, err := f.deps.Source.CreatePost(ctx, model.Post{
		UserID:   f.deps.UserID,
		GroupID:  f.deps.GroupID,
		Date:     f.date,
		ImageURL: url,
		Caption:  caption,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	var posts []model.Post
	f.update(func() {
		f.posts = append(slices.Clone(f.posts), *post)
		posts = f.posts
	})
	f.deps.Caches.Posts.Cache.Put(postsKey(f.deps.GroupID, f.date), posts)

	if f.deps.Streaks != nil {
		if _, err := f.deps.Streaks.Advance(ctx, f.deps.UserID, f.date); err != nil {
			f.deps.Logger.Warn("advance streak", "user_id", f.deps.UserID, "error", err)
		}
	}
	return post, nil
}

// Close detaches the feed; results that arrive afterwards are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.onChange = nil
	f.mu.Unlock()
	f.sub.Unsubscribe()
	f.reg.Unregister()
}
