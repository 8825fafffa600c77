package postgres

import "fmt"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT,
		last_logout TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		email TEXT,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS group_subgroups (
		parent_id INT NOT NULL REFERENCES groups(id),
		child_id INT NOT NULL REFERENCES groups(id),
		PRIMARY KEY (parent_id, child_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id INT NOT NULL REFERENCES groups(id),
		user_id INT NOT NULL REFERENCES users(id),
		is_member BOOLEAN NOT NULL DEFAULT FALSE,
		is_moderator BOOLEAN NOT NULL DEFAULT FALSE,
		is_follower BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id SERIAL PRIMARY KEY,
		thread_root_id INT NOT NULL DEFAULT 0,
		sender_id INT NOT NULL,
		target_id INT NOT NULL DEFAULT 0,
		body TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		is_broadcast BOOLEAN NOT NULL DEFAULT FALSE,
		is_group BOOLEAN NOT NULL DEFAULT FALSE,
		is_private BOOLEAN NOT NULL DEFAULT FALSE,
		is_forwarded BOOLEAN NOT NULL DEFAULT FALSE,
		is_self_destruct BOOLEAN NOT NULL DEFAULT FALSE,
		is_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		attachments JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_target ON messages(target_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS hashtags (
		id SERIAL PRIMARY KEY,
		tag TEXT NOT NULL UNIQUE,
		search_hits INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS message_hashtags (
		hashtag_id INT NOT NULL REFERENCES hashtags(id),
		message_id INT NOT NULL REFERENCES messages(id),
		PRIMARY KEY (hashtag_id, message_id)
	)`,
	`CREATE TABLE IF NOT EXISTS filters (
		user_id INT NOT NULL REFERENCES users(id),
		keyword TEXT NOT NULL,
		PRIMARY KEY (user_id, keyword)
	)`,
}

// Migrate creates the schema. All statements are idempotent.
func (s *Store) Migrate() error {
	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
