package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/daybreak/internal/model"
)

type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	err := scanner.Scan(&p.ID, &p.UserID, &p.GroupID, &p.Date, &p.ImageURL, &p.Caption, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanComment(scanner interface{ Scan(...any) error }) (*model.Comment, error) {
	var c model.Comment
	if err := scanner.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const postCols = `id, user_id, group_id, date, image_url, caption, created_at`
const commentCols = `id, post_id, user_id, body, created_at`

// placeholders returns "?, ?, ?" for n arguments and the ids as []any.
func placeholders(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

func (s *PostStore) Create(p model.Post) (*model.Post, error) {
	result, err := s.db.Exec(
		`INSERT INTO posts (user_id, group_id, date, image_url, caption) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.GroupID, string(p.Date), p.ImageURL, p.Caption,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PostStore) GetByID(id int64) (*model.Post, error) {
	row := s.db.QueryRow(`SELECT `+postCols+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// ListByGroupDate returns a group's posts for date in creation order.
func (s *PostStore) ListByGroupDate(groupID int64, date model.Date) ([]model.Post, error) {
	rows, err := s.db.Query(
		`SELECT `+postCols+` FROM posts WHERE group_id = ? AND date = ? ORDER BY created_at, id`,
		groupID, string(date),
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// SetLike adds or removes userID's like on postID. Both are idempotent.
func (s *PostStore) SetLike(postID, userID int64, liked bool) error {
	var err error
	if liked {
		_, err = s.db.Exec(`INSERT OR IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)`, postID, userID)
	} else {
		_, err = s.db.Exec(`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	}
	if err != nil {
		return fmt.Errorf("set like: %w", err)
	}
	return nil
}

// ListLikes returns the raw like rows for postIDs.
func (s *PostStore) ListLikes(postIDs []int64) ([]model.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	ph, args := placeholders(postIDs)
	rows, err := s.db.Query(`SELECT post_id, user_id FROM post_likes WHERE post_id IN (`+ph+`) ORDER BY post_id, created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	defer rows.Close()

	var likes []model.Like
	for rows.Next() {
		var l model.Like
		if err := rows.Scan(&l.PostID, &l.UserID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes = append(likes, l)
	}
	return likes, rows.Err()
}

func (s *PostStore) AddComment(postID, userID int64, body string) (*model.Comment, error) {
	result, err := s.db.Exec(`INSERT INTO post_comments (post_id, user_id, body) VALUES (?, ?, ?)`, postID, userID, body)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+commentCols+` FROM post_comments WHERE id = ?`, id)
	return scanComment(row)
}

func (s *PostStore) ListComments(postID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(`SELECT `+commentCols+` FROM post_comments WHERE post_id = ? ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// CommentCounts returns the number of comments per post. Posts without
// comments are absent from the map.
func (s *PostStore) CommentCounts(postIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	if len(postIDs) == 0 {
		return counts, nil
	}
	ph, args := placeholders(postIDs)
	rows, err := s.db.Query(`SELECT post_id, COUNT(*) FROM post_comments WHERE post_id IN (`+ph+`) GROUP BY post_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan comment count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
