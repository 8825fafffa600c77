package postgres

import (
	"context"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

func (s *Store) GetOrCreate(ctx context.Context, tag string, messageID int) (*models.Hashtag, error) {
	var t models.Hashtag
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO hashtags (tag) VALUES ($1)
		ON CONFLICT (tag) DO UPDATE SET tag = EXCLUDED.tag
		RETURNING id, tag, search_hits`, tag).
		Scan(&t.ID, &t.Tag, &t.SearchHits)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO message_hashtags (hashtag_id, message_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, t.ID, messageID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) IncrementHits(ctx context.Context, tag string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE hashtags SET search_hits = search_hits + 1 WHERE tag = $1`, tag)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrTagNotFound
	}
	return nil
}

func (s *Store) MessagesForTag(ctx context.Context, tag string) ([]*models.Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE id IN (
			SELECT mh.message_id FROM message_hashtags mh
			JOIN hashtags h ON h.id = mh.hashtag_id
			WHERE h.tag = $1)`, tag)
}

func (s *Store) TopTags(ctx context.Context, n int) ([]*models.Hashtag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tag, search_hits FROM hashtags ORDER BY search_hits DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Hashtag
	for rows.Next() {
		var t models.Hashtag
		if err := rows.Scan(&t.ID, &t.Tag, &t.SearchHits); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
