// Package feed turns raw cached rows (members, completions, posts, likes)
// into the lists the screens render. Every function here is pure.
package feed

import (
	"sort"
	"strings"

	"github.com/dukerupert/daybreak/internal/model"
)

// Rows is everything known about one group on one day.
type Rows struct {
	CurrentUserID int64
	Members       []model.Member
	Completions   []model.CompletionRecord
	Posts         []model.Post
	Likes         []model.Like
	CommentCounts map[int64]int
}

// HasPosted reports whether a member counts as having posted: an image post
// for the day, or a fully complete devotional.
func HasPosted(posts []model.Post, completion *model.CompletionRecord) bool {
	if len(posts) > 0 {
		return true
	}
	return completion != nil && completion.AllCompleted()
}

// Likes counts the like rows for postID and reports whether userID is one
// of them.
func Likes(postID, userID int64, likes []model.Like) (count int, isLiked bool) {
	for _, l := range likes {
		if l.PostID != postID {
			continue
		}
		count++
		if l.UserID == userID {
			isLiked = true
		}
	}
	return count, isLiked
}

type memberRows struct {
	member     model.Member
	completion *model.CompletionRecord
	posts      []model.Post
}

func index(r Rows) []memberRows {
	completions := make(map[int64]*model.CompletionRecord, len(r.Completions))
	for i := range r.Completions {
		completions[r.Completions[i].UserID] = &r.Completions[i]
	}
	posts := make(map[int64][]model.Post)
	for _, p := range r.Posts {
		posts[p.UserID] = append(posts[p.UserID], p)
	}

	out := make([]memberRows, 0, len(r.Members))
	for _, m := range r.Members {
		ps := posts[m.UserID]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
		out = append(out, memberRows{member: m, completion: completions[m.UserID], posts: ps})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].member, out[j].member
		if (a.UserID == r.CurrentUserID) != (b.UserID == r.CurrentUserID) {
			return a.UserID == r.CurrentUserID
		}
		an, bn := strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)
		if an != bn {
			return an < bn
		}
		return a.UserID < b.UserID
	})
	return out
}

// BuildSubmissions returns one submission per member: the current user
// first, then everyone else by display name.
func BuildSubmissions(r Rows) []model.MemberSubmission {
	rows := index(r)
	out := make([]model.MemberSubmission, 0, len(rows))
	for _, mr := range rows {
		s := model.MemberSubmission{
			MemberID:          mr.member.UserID,
			DisplayName:       mr.member.DisplayName,
			HasPosted:         HasPosted(mr.posts, mr.completion),
			IsDailyCompletion: mr.completion != nil && mr.completion.AllCompleted(),
		}
		if n := len(mr.posts); n > 0 {
			latest := mr.posts[n-1]
			created := latest.CreatedAt
			s.ImageURL = latest.ImageURL
			s.CreatedAt = &created
			s.LikeCount, s.IsLiked = Likes(latest.ID, r.CurrentUserID, r.Likes)
		}
		out = append(out, s)
	}
	return out
}

// BuildStorySlides orders the stories for the day. Only members who have
// posted appear. The current user comes first, then the others by display
// name; a member's completion slide precedes their image slides.
func BuildStorySlides(r Rows) []model.StorySlide {
	var out []model.StorySlide
	for _, mr := range index(r) {
		if !HasPosted(mr.posts, mr.completion) {
			continue
		}
		if mr.completion != nil && mr.completion.AllCompleted() {
			out = append(out, model.StorySlide{
				Kind:        model.SlideCompletion,
				MemberID:    mr.member.UserID,
				DisplayName: mr.member.DisplayName,
			})
		}
		for _, p := range mr.posts {
			created := p.CreatedAt
			likeCount, isLiked := Likes(p.ID, r.CurrentUserID, r.Likes)
			out = append(out, model.StorySlide{
				Kind:         model.SlidePost,
				MemberID:     mr.member.UserID,
				DisplayName:  mr.member.DisplayName,
				PostID:       p.ID,
				ImageURL:     p.ImageURL,
				Caption:      p.Caption,
				CreatedAt:    &created,
				LikeCount:    likeCount,
				IsLiked:      isLiked,
				CommentCount: r.CommentCounts[p.ID],
			})
		}
	}
	return out
}
