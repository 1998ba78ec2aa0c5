package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dukerupert/daybreak/internal/model"
)

func (c *Client) GetCompletion(ctx context.Context, userID, groupID int64, date model.Date) (*model.CompletionRecord, error) {
	q := url.Values{}
	q.Set("user_id", fmt.Sprint(userID))
	q.Set("group_id", fmt.Sprint(groupID))
	q.Set("date", date.String())

	var rec model.CompletionRecord
	found, err := c.getOptional(ctx, "/api/completions?"+q.Encode(), &rec)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

type upsertCompletionRequest struct {
	UserID     int64      `json:"user_id"`
	GroupID    int64      `json:"group_id"`
	Date       model.Date `json:"date"`
	Scripture  *bool      `json:"scripture_completed,omitempty"`
	Devotional *bool      `json:"devotional_completed,omitempty"`
	Prayer     *bool      `json:"prayer_completed,omitempty"`
}

func (c *Client) UpsertCompletion(ctx context.Context, userID, groupID int64, date model.Date, update model.CompletionUpdate) error {
	req := upsertCompletionRequest{
		UserID:     userID,
		GroupID:    groupID,
		Date:       date,
		Scripture:  update.Scripture,
		Devotional: update.Devotional,
		Prayer:     update.Prayer,
	}
	if err := c.do(ctx, http.MethodPut, "/api/completions", req, nil); err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

func (c *Client) ListGroupCompletions(ctx context.Context, groupID int64, date model.Date) ([]model.CompletionRecord, error) {
	var recs []model.CompletionRecord
	path := fmt.Sprintf("/api/groups/%d/completions?date=%s", groupID, url.QueryEscape(date.String()))
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, fmt.Errorf("list group completions: %w", err)
	}
	return recs, nil
}

func (c *Client) GetDevotionalContent(ctx context.Context, date model.Date) (*model.DevotionalContent, error) {
	var v model.DevotionalContent
	found, err := c.getOptional(ctx, "/api/devotionals/"+url.PathEscape(date.String()), &v)
	if err != nil {
		return nil, fmt.Errorf("get devotional: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &v, nil
}

func (c *Client) ListGroupMembers(ctx context.Context, groupID int64) ([]model.Member, error) {
	var members []model.Member
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/groups/%d/members", groupID), nil, &members); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (c *Client) ListGroupPosts(ctx context.Context, groupID int64, date model.Date) ([]model.Post, error) {
	var posts []model.Post
	path := fmt.Sprintf("/api/groups/%d/posts?date=%s", groupID, url.QueryEscape(date.String()))
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, post model.Post) (*model.Post, error) {
	var out model.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", post, &out); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &out, nil
}

func (c *Client) GetLikes(ctx context.Context, postIDs []int64) ([]model.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var likes []model.Like
	if err := c.do(ctx, http.MethodGet, "/api/likes?"+idsQuery("post_id", postIDs), nil, &likes); err != nil {
		return nil, fmt.Errorf("get likes: %w", err)
	}
	return likes, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID, userID int64, like bool) error {
	body := map[string]any{"user_id": userID, "liked": like}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/posts/%d/like", postID), body, nil); err != nil {
		return fmt.Errorf("toggle like: %w", err)
	}
	return nil
}

func (c *Client) GetCommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	if len(postIDs) == 0 {
		return counts, nil
	}
	if err := c.do(ctx, http.MethodGet, "/api/comments/counts?"+idsQuery("post_id", postIDs), nil, &counts); err != nil {
		return nil, fmt.Errorf("get comment counts: %w", err)
	}
	return counts, nil
}

// AddComment posts a comment on postID as the signed-in user.
func (c *Client) AddComment(ctx context.Context, postID int64, body string) (*model.Comment, error) {
	var out model.Comment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), map[string]string{"body": body}, &out); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &out, nil
}

func (c *Client) GetStreak(ctx context.Context, userID int64) (*model.Streak, error) {
	var s model.Streak
	found, err := c.getOptional(ctx, fmt.Sprintf("/api/streaks/%d", userID), &s)
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (c *Client) SaveStreak(ctx context.Context, streak model.Streak) error {
	if err := c.do(ctx, http.MethodPut, "/api/streaks", streak, nil); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (c *Client) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	var p model.Profile
	found, err := c.getOptional(ctx, fmt.Sprintf("/api/profiles/%d", userID), &p)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadImage stores image bytes through the server when no object store
// is configured on the client.
func (c *Client) UploadImage(ctx context.Context, data []byte, path string) (string, error) {
	var out uploadResponse
	body := map[string]any{"path": path, "data": data}
	if err := c.do(ctx, http.MethodPost, "/api/uploads", body, &out); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return out.URL, nil
}
