package model

import "time"

// Post is a photo story shared with a group for a day.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	GroupID   int64     `json:"group_id"`
	Date      Date      `json:"date"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Like is one row of the raw likes table.
type Like struct {
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberSubmission is derived per render from completion and post rows.
type MemberSubmission struct {
	MemberID          int64      `json:"member_id"`
	DisplayName       string     `json:"display_name"`
	HasPosted         bool       `json:"has_posted"`
	ImageURL          string     `json:"image_url,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LikeCount         int        `json:"like_count"`
	IsLiked           bool       `json:"is_liked"`
	IsDailyCompletion bool       `json:"is_daily_completion"`
}

type SlideKind string

const (
	SlideCompletion SlideKind = "completion"
	SlidePost       SlideKind = "post"
)

// StorySlide is one entry of the stories feed.
type StorySlide struct {
	Kind         SlideKind  `json:"kind"`
	MemberID     int64      `json:"member_id"`
	DisplayName  string     `json:"display_name"`
	PostID       int64      `json:"post_id,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Caption      string     `json:"caption,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	LikeCount    int        `json:"like_count"`
	IsLiked      bool       `json:"is_liked"`
	CommentCount int        `json:"comment_count"`
}
