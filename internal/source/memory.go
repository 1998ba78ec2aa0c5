package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
)

// ErrInjected is the default failure returned by Memory when a method is
// switched to fail.
var ErrInjected = errors.New("injected failure")

type completionKey struct {
	userID  int64
	groupID int64
	date    model.Date
}

// Memory is an in-memory Source for tests and offline demos. Reads return
// copies. Failures and gates can be set per method name ("UpsertCompletion",
// "GetCompletion", "ToggleLike", ...).
type Memory struct {
	mu          sync.Mutex
	completions map[completionKey]model.CompletionRecord
	content     map[model.Date]model.DevotionalContent
	members     map[int64][]model.Member
	posts       []model.Post
	likes       map[model.Like]struct{}
	comments    map[int64]int
	streaks     map[int64]model.Streak
	profiles    map[int64]model.Profile
	uploads     map[string][]byte
	nextPostID  int64

	calls    map[string]int
	failures map[string]error
	gates    map[string]chan struct{}
}

// NewMemory creates an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{
		completions: make(map[completionKey]model.CompletionRecord),
		content:     make(map[model.Date]model.DevotionalContent),
		members:     make(map[int64][]model.Member),
		likes:       make(map[model.Like]struct{}),
		comments:    make(map[int64]int),
		streaks:     make(map[int64]model.Streak),
		profiles:    make(map[int64]model.Profile),
		uploads:     make(map[string][]byte),
		nextPostID:  1,
		calls:       make(map[string]int),
		failures:    make(map[string]error),
		gates:       make(map[string]chan struct{}),
	}
}

// Fail makes method return err until Fail(method, nil) is called.
func (m *Memory) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Gate makes method block until the returned release func is called.
func (m *Memory) Gate(method string) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[method] = ch
	m.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gates[method] == ch {
				delete(m.gates, method)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times method has been invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// enter records the call, waits on any gate and returns the injected failure.
func (m *Memory) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	gate := m.gates[method]
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[method]
}

// --- seeding ---

func (m *Memory) PutCompletion(rec model.CompletionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions[completionKey{rec.UserID, rec.GroupID, rec.Date}] = rec
}

func (m *Memory) PutContent(c model.DevotionalContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[c.Date] = c
}

func (m *Memory) PutMember(mem model.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[mem.GroupID] = append(m.members[mem.GroupID], mem)
}

func (m *Memory) PutProfile(p model.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *Memory) PutComments(postID int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[postID] = n
}

// Upload returns the bytes stored by UploadImage at path.
func (m *Memory) Upload(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.uploads[path]
	return b, ok
}

// --- Source ---

func (m *Memory) GetCompletion(ctx context.Context, userID, groupID int64, date model.Date) (*model.CompletionRecord, error) {
	if err := m.enter(ctx, "GetCompletion"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.completions[completionKey{userID, groupID, date}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) UpsertCompletion(ctx context.Context, userID, groupID int64, date model.Date, update model.CompletionUpdate) error {
	if err := m.enter(ctx, "UpsertCompletion"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := completionKey{userID, groupID, date}
	rec, ok := m.completions[key]
	if !ok {
		rec = model.CompletionRecord{UserID: userID, GroupID: groupID, Date: date}
	}
	m.completions[key] = rec.Merge(update)
	return nil
}

func (m *Memory) ListGroupCompletions(ctx context.Context, groupID int64, date model.Date) ([]model.CompletionRecord, error) {
	if err := m.enter(ctx, "ListGroupCompletions"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CompletionRecord
	for k, rec := range m.completions {
		if k.groupID == groupID && k.date == date {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) GetDevotionalContent(ctx context.Context, date model.Date) (*model.DevotionalContent, error) {
	if err := m.enter(ctx, "GetDevotionalContent"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.content[date]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListGroupMembers(ctx context.Context, groupID int64) ([]model.Member, error) {
	if err := m.enter(ctx, "ListGroupMembers"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Member(nil), m.members[groupID]...), nil
}

func (m *Memory) ListGroupPosts(ctx context.Context, groupID int64, date model.Date) ([]model.Post, error) {
	if err := m.enter(ctx, "ListGroupPosts"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Post
	for _, p := range m.posts {
		if p.GroupID == groupID && p.Date == date {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) CreatePost(ctx context.Context, post model.Post) (*model.Post, error) {
	if err := m.enter(ctx, "CreatePost"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.nextPostID
	m.nextPostID++
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	m.posts = append(m.posts, post)
	return &post, nil
}

func (m *Memory) GetLikes(ctx context.Context, postIDs []int64) ([]model.Like, error) {
	if err := m.enter(ctx, "GetLikes"); err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Like
	for l := range m.likes {
		if want[l.PostID] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostID != out[j].PostID {
			return out[i].PostID < out[j].PostID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (m *Memory) ToggleLike(ctx context.Context, postID, userID int64, like bool) error {
	if err := m.enter(ctx, "ToggleLike"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := model.Like{PostID: postID, UserID: userID}
	if like {
		m.likes[k] = struct{}{}
	} else {
		delete(m.likes, k)
	}
	return nil
}

func (m *Memory) GetCommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	if err := m.enter(ctx, "GetCommentCounts"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int, len(postIDs))
	for _, id := range postIDs {
		out[id] = m.comments[id]
	}
	return out, nil
}

func (m *Memory) GetStreak(ctx context.Context, userID int64) (*model.Streak, error) {
	if err := m.enter(ctx, "GetStreak"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streaks[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) SaveStreak(ctx context.Context, streak model.Streak) error {
	if err := m.enter(ctx, "SaveStreak"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaks[streak.UserID] = streak
	return nil
}

func (m *Memory) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	if err := m.enter(ctx, "GetProfile"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UploadImage keeps the bytes in memory and returns a mem:// URL.
func (m *Memory) UploadImage(ctx context.Context, data []byte, path string) (string, error) {
	if err := m.enter(ctx, "UploadImage"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[path] = append([]byte(nil), data...)
	return fmt.Sprintf("mem://%s", path), nil
}

var (
	_ Source   = (*Memory)(nil)
	_ Uploader = (*Memory)(nil)
)
