package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

func (s *Store) FindUserByName(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, COALESCE(email, ''), last_logout FROM users WHERE username = $1`, username))
}

func (s *Store) FindUserByID(ctx context.Context, id int) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, COALESCE(email, ''), last_logout FROM users WHERE id = $1`, id))
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.LastLogout)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindGroupByName(ctx context.Context, name string) (*models.Group, error) {
	return s.loadGroup(ctx, `SELECT id, name, COALESCE(email, ''), COALESCE(description, '')
		FROM groups WHERE name = $1`, name)
}

func (s *Store) FindGroupByID(ctx context.Context, id int) (*models.Group, error) {
	return s.loadGroup(ctx, `SELECT id, name, COALESCE(email, ''), COALESCE(description, '')
		FROM groups WHERE id = $1`, id)
}

func (s *Store) loadGroup(ctx context.Context, query string, arg any) (*models.Group, error) {
	var g models.Group
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&g.ID, &g.Name, &g.Email, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT child_id FROM group_subgroups WHERE parent_id = $1`, g.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var child int
		if err := rows.Scan(&child); err != nil {
			return nil, err
		}
		g.SubgroupIDs = append(g.SubgroupIDs, child)
	}
	return &g, rows.Err()
}

func (s *Store) GroupMemberships(ctx context.Context, groupID int) ([]models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id, is_member, is_moderator, is_follower
		 FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Member, &m.Moderator, &m.Follower); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, COALESCE(g.email, ''), COALESCE(g.description, '')
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Email, &g.Description); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) SetLastLogout(ctx context.Context, userID int, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_logout = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrUserNotFound
	}
	return nil
}
