// Package source defines the remote data source the client data layer reads
// from and writes to. Single-row lookups return nil, nil when nothing exists.
package source

import (
	"context"

	"github.com/dukerupert/daybreak/internal/model"
)

// Source is the remote backend as seen by the caches and view-models.
type Source interface {
	GetCompletion(ctx context.Context, userID, groupID int64, date model.Date) (*model.CompletionRecord, error)
	// UpsertCompletion updates the row for (user, group, date) if it exists
	// and inserts it otherwise.
	UpsertCompletion(ctx context.Context, userID, groupID int64, date model.Date, update model.CompletionUpdate) error
	ListGroupCompletions(ctx context.Context, groupID int64, date model.Date) ([]model.CompletionRecord, error)

	GetDevotionalContent(ctx context.Context, date model.Date) (*model.DevotionalContent, error)

	ListGroupMembers(ctx context.Context, groupID int64) ([]model.Member, error)
	ListGroupPosts(ctx context.Context, groupID int64, date model.Date) ([]model.Post, error)
	CreatePost(ctx context.Context, post model.Post) (*model.Post, error)
	GetLikes(ctx context.Context, postIDs []int64) ([]model.Like, error)
	ToggleLike(ctx context.Context, postID, userID int64, like bool) error
	GetCommentCounts(ctx context.Context, postIDs []int64) (map[int64]int, error)

	GetStreak(ctx context.Context, userID int64) (*model.Streak, error)
	SaveStreak(ctx context.Context, streak model.Streak) error

	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
}

// Uploader stores image bytes at path and returns a URL for them.
type Uploader interface {
	UploadImage(ctx context.Context, data []byte, path string) (string, error)
}
