package feed

import (
	"testing"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
)

const day model.Date = "2024-01-02"

var (
	bob   = model.Member{UserID: 3, GroupID: 1, DisplayName: "Bob"}
	alice = model.Member{UserID: 2, GroupID: 1, DisplayName: "alice"}
	me    = model.Member{UserID: 9, GroupID: 1, DisplayName: "Zed"}
)

func done(userID int64) model.CompletionRecord {
	return model.CompletionRecord{UserID: userID, GroupID: 1, Date: day,
		ScriptureCompleted: true, DevotionalCompleted: true, PrayerCompleted: true}
}

func TestBuildStorySlidesOrder(t *testing.T) {
	r := Rows{
		CurrentUserID: me.UserID,
		Members:       []model.Member{bob, alice, me},
		Completions:   []model.CompletionRecord{done(3), done(2), done(9)},
	}
	slides := BuildStorySlides(r)
	want := []int64{9, 2, 3}
	if len(slides) != len(want) {
		t.Fatalf("got %d slides, want %d", len(slides), len(want))
	}
	for i, id := range want {
		if slides[i].MemberID != id {
			t.Errorf("slide %d member = %d, want %d", i, slides[i].MemberID, id)
		}
	}
}

func TestBuildStorySlidesPerMember(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	r := Rows{
		CurrentUserID: me.UserID,
		Members:       []model.Member{bob, alice, me},
		Completions: []model.CompletionRecord{
			done(3),
			{UserID: 2, GroupID: 1, Date: day, ScriptureCompleted: true},
		},
		Posts: []model.Post{
			{ID: 11, UserID: 3, Date: day, ImageURL: "b2.jpg", CreatedAt: base.Add(time.Hour)},
			{ID: 10, UserID: 3, Date: day, ImageURL: "b1.jpg", CreatedAt: base},
		},
		Likes:         []model.Like{{PostID: 10, UserID: 9}, {PostID: 10, UserID: 2}, {PostID: 11, UserID: 2}},
		CommentCounts: map[int64]int{11: 4},
	}

	slides := BuildStorySlides(r)
	if len(slides) != 3 {
		t.Fatalf("got %d slides, want 3 (alice and the current user have not posted)", len(slides))
	}
	if slides[0].Kind != model.SlideCompletion || slides[0].MemberID != 3 {
		t.Errorf("slide 0 = %+v, want Bob's completion", slides[0])
	}
	if slides[1].PostID != 10 || slides[1].LikeCount != 2 || !slides[1].IsLiked {
		t.Errorf("slide 1 = %+v, want post 10 with 2 likes incl. current user", slides[1])
	}
	if slides[2].PostID != 11 || slides[2].IsLiked || slides[2].CommentCount != 4 {
		t.Errorf("slide 2 = %+v", slides[2])
	}
}

func TestBuildSubmissions(t *testing.T) {
	r := Rows{
		CurrentUserID: me.UserID,
		Members:       []model.Member{bob, alice, me},
		Completions:   []model.CompletionRecord{done(2)},
		Posts:         []model.Post{{ID: 5, UserID: 3, Date: day, ImageURL: "b.jpg"}},
		Likes:         []model.Like{{PostID: 5, UserID: 9}},
	}
	subs := BuildSubmissions(r)
	if len(subs) != 3 {
		t.Fatalf("got %d submissions, want 3", len(subs))
	}
	if subs[0].MemberID != 9 || subs[0].HasPosted {
		t.Errorf("current user = %+v", subs[0])
	}
	if !subs[1].HasPosted || !subs[1].IsDailyCompletion || subs[1].ImageURL != "" {
		t.Errorf("alice = %+v", subs[1])
	}
	if !subs[2].HasPosted || subs[2].ImageURL != "b.jpg" || subs[2].LikeCount != 1 || !subs[2].IsLiked {
		t.Errorf("bob = %+v", subs[2])
	}
}

func TestHasPosted(t *testing.T) {
	partial := model.CompletionRecord{ScriptureCompleted: true, PrayerCompleted: true}
	full := done(1)
	tests := []struct {
		name       string
		posts      []model.Post
		completion *model.CompletionRecord
		want       bool
	}{
		{"nothing", nil, nil, false},
		{"partial completion", nil, &partial, false},
		{"full completion", nil, &full, true},
		{"image post", []model.Post{{ID: 1}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPosted(tt.posts, tt.completion); got != tt.want {
				t.Errorf("HasPosted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLikes(t *testing.T) {
	likes := []model.Like{{PostID: 1, UserID: 2}, {PostID: 1, UserID: 3}, {PostID: 2, UserID: 1}}
	if n, liked := Likes(1, 1, likes); n != 2 || liked {
		t.Errorf("post 1 = %d, %v", n, liked)
	}
	if n, liked := Likes(2, 1, likes); n != 1 || !liked {
		t.Errorf("post 2 = %d, %v", n, liked)
	}
	if n, _ := Likes(7, 1, likes); n != 0 {
		t.Errorf("post 7 = %d", n)
	}
}

func TestAdvanceStreak(t *testing.T) {
	start := model.Streak{UserID: 1, CurrentStreak: 5, LongestStreak: 5, LastPostDate: "2024-01-01"}
	tests := []struct {
		day         model.Date
		wantCurrent int
		wantLongest int
	}{
		{"2024-01-02", 6, 6},
		{"2024-01-01", 5, 5},
		{"2023-12-30", 5, 5},
		{"2024-01-05", 1, 5},
	}
	for _, tt := range tests {
		got := AdvanceStreak(start, tt.day)
		if got.CurrentStreak != tt.wantCurrent || got.LongestStreak != tt.wantLongest {
			t.Errorf("post on %s: current=%d longest=%d, want %d/%d",
				tt.day, got.CurrentStreak, got.LongestStreak, tt.wantCurrent, tt.wantLongest)
		}
	}

	if late := AdvanceStreak(start, "2023-12-30"); late.LastPostDate != "2024-01-01" {
		t.Errorf("earlier day moved LastPostDate to %s", late.LastPostDate)
	}

	first := AdvanceStreak(model.Streak{UserID: 1}, "2024-01-02")
	if first.CurrentStreak != 1 || first.LongestStreak != 1 || first.LastPostDate != "2024-01-02" {
		t.Errorf("first post = %+v", first)
	}
}

func TestCurrentStreak(t *testing.T) {
	s := model.Streak{CurrentStreak: 4, LastPostDate: "2024-01-02"}
	for day, want := range map[model.Date]int{"2024-01-02": 4, "2024-01-03": 4, "2024-01-04": 0} {
		if got := CurrentStreak(s, day); got != want {
			t.Errorf("CurrentStreak on %s = %d, want %d", day, got, want)
		}
	}
	if CurrentStreak(model.Streak{}, "2024-01-02") != 0 {
		t.Error("empty streak should be 0")
	}
}
