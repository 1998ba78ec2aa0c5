package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/daybreak/internal/model"
)

type GroupStore struct {
	db *sql.DB
}

func NewGroupStore(db *sql.DB) *GroupStore {
	return &GroupStore{db: db}
}

func scanGroup(scanner interface{ Scan(...any) error }) (*model.Group, error) {
	var g model.Group
	if err := scanner.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(&m.GroupID, &m.UserID, &m.DisplayName, &m.AvatarURL, &m.Role, &m.JoinedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const groupCols = `id, name, created_at`

const memberSelect = `SELECT gm.group_id, gm.user_id, u.display_name, gm.avatar_url, gm.role, gm.joined_at
	FROM group_members gm JOIN users u ON u.id = gm.user_id`

func (s *GroupStore) Create(name string) (*model.Group, error) {
	result, err := s.db.Exec(`INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *GroupStore) GetByID(id int64) (*model.Group, error) {
	row := s.db.QueryRow(`SELECT `+groupCols+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// ListForUser returns the groups userID belongs to, oldest membership first.
func (s *GroupStore) ListForUser(userID int64) ([]model.Group, error) {
	rows, err := s.db.Query(
		`SELECT g.id, g.name, g.created_at FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = ? ORDER BY gm.joined_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, *g)
	}
	return groups, rows.Err()
}

func (s *GroupStore) AddMember(groupID, userID int64, role, avatarURL string) (*model.Member, error) {
	if role == "" {
		role = "member"
	}
	_, err := s.db.Exec(
		`INSERT INTO group_members (group_id, user_id, role, avatar_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(group_id, user_id) DO UPDATE SET role = excluded.role, avatar_url = excluded.avatar_url`,
		groupID, userID, role, avatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return s.GetMember(groupID, userID)
}

func (s *GroupStore) GetMember(groupID, userID int64) (*model.Member, error) {
	row := s.db.QueryRow(memberSelect+` WHERE gm.group_id = ? AND gm.user_id = ?`, groupID, userID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *GroupStore) ListMembers(groupID int64) ([]model.Member, error) {
	rows, err := s.db.Query(memberSelect+` WHERE gm.group_id = ? ORDER BY u.display_name COLLATE NOCASE, gm.user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *GroupStore) RemoveMember(groupID, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}
