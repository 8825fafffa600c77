package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

const messageColumns = `id, thread_root_id, sender_id, target_id, body, subject, status,
	is_broadcast, is_group, is_private, is_forwarded, is_self_destruct, is_encrypted,
	created_at, attachments`

func (s *Store) Save(ctx context.Context, m *models.Message) error {
	atts, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}
	if m.ID != 0 {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO messages (id, thread_root_id, sender_id, target_id, body, subject, status,
				is_broadcast, is_group, is_private, is_forwarded, is_self_destruct, is_encrypted,
				created_at, attachments)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			m.ID, m.ThreadRootID, m.SenderID, m.TargetID, m.Body, m.Subject, m.Status,
			m.Broadcast, m.Group, m.Private, m.Forwarded, m.SelfDestruct, m.Encrypted,
			m.CreatedAt, atts)
		if err != nil && uniqueViolation(err) {
			return store.ErrDuplicateMessage
		}
		if err == nil {
			// keep the sequence ahead of explicitly supplied ids
			_, err = s.db.ExecContext(ctx,
				`SELECT setval('messages_id_seq', (SELECT GREATEST(MAX(id), 1) FROM messages))`)
		}
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO messages (thread_root_id, sender_id, target_id, body, subject, status,
			is_broadcast, is_group, is_private, is_forwarded, is_self_destruct, is_encrypted,
			created_at, attachments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`,
		m.ThreadRootID, m.SenderID, m.TargetID, m.Body, m.Subject, m.Status,
		m.Broadcast, m.Group, m.Private, m.Forwarded, m.SelfDestruct, m.Encrypted,
		m.CreatedAt, atts).Scan(&m.ID)
}

func (s *Store) FindByID(ctx context.Context, id int) (*models.Message, error) {
	msgs, err := s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, store.ErrMessageNotFound
	}
	return msgs[0], nil
}

func (s *Store) FindUndeliveredFor(ctx context.Context, userID int, since time.Time) ([]*models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE target_id = $1 AND NOT is_broadcast AND NOT is_group AND created_at > $2`,
		userID, since)
}

func (s *Store) FindBetween(ctx context.Context, userA, userB int) ([]*models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE NOT is_broadcast AND NOT is_group
		   AND ((sender_id = $1 AND target_id = $2) OR (sender_id = $2 AND target_id = $1))
		 ORDER BY id`,
		userA, userB)
}

func (s *Store) FindThread(ctx context.Context, rootID int) ([]*models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE thread_root_id = $1 ORDER BY created_at`, rootID)
}

func (s *Store) CountUnread(ctx context.Context, recipientID, senderID int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE sender_id = $1 AND target_id = $2
		   AND NOT is_broadcast AND NOT is_group AND status <> 'read'`,
		senderID, recipientID).Scan(&n)
	return n, err
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(rows *sql.Rows) (*models.Message, error) {
	var m models.Message
	var atts []byte
	err := rows.Scan(&m.ID, &m.ThreadRootID, &m.SenderID, &m.TargetID, &m.Body, &m.Subject,
		&m.Status, &m.Broadcast, &m.Group, &m.Private, &m.Forwarded, &m.SelfDestruct,
		&m.Encrypted, &m.CreatedAt, &atts)
	if err != nil {
		return nil, err
	}
	if len(atts) > 0 {
		if err := json.Unmarshal(atts, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &m, nil
}
