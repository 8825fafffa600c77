package postgres

import "context"

func (s *Store) FiltersFor(ctx context.Context, userID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword FROM filters WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

func (s *Store) AddFilter(ctx context.Context, userID int, keyword string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO filters (user_id, keyword) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, keyword)
	return err
}

func (s *Store) RemoveFilter(ctx context.Context, userID int, keyword string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM filters WHERE user_id = $1 AND keyword = $2`, userID, keyword)
	return err
}
