package history

import (
	"context"
	"database/sql"
	"time"
)

// DefaultLimit is how many entries are kept.
const DefaultLimit = 10

const cleanedKey = "cleaned"

// Item is one history entry.
type Item struct {
	ID   int64     `json:"id"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Add records a cleaned text and bumps the clean counter. Adding a text that
// is already present moves it to the top. Only the newest limit entries are
// kept.
func Add(ctx context.Context, text string, limit int) error {
	if limit < 1 {
		limit = DefaultLimit
	}
	return withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE text = ?`, text); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (text, created_at) VALUES (?, ?)`,
			text, time.Now().UnixNano(),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
			limit,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stats (key, value) VALUES (?, 1)
			ON CONFLICT(key) DO UPDATE SET value = value + 1`,
			cleanedKey,
		)
		return err
	})
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func Recent(ctx context.Context, n int) ([]Item, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = -1
	}

	rows, err := d.QueryContext(ctx,
		`SELECT id, text, created_at FROM history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Item{}
	for rows.Next() {
		var it Item
		var ts int64
		if err := rows.Scan(&it.ID, &it.Text, &ts); err != nil {
			return nil, err
		}
		it.Time = time.Unix(0, ts)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Clear deletes every entry. The clean counter is kept.
func Clear(ctx context.Context) error {
	return withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM history`)
		return err
	})
}

// Count returns the number of cleans ever recorded.
func Count(ctx context.Context) (int64, error) {
	d, err := GetDB()
	if err != nil {
		return 0, err
	}
	var n int64
	err = d.QueryRowContext(ctx, `SELECT value FROM stats WHERE key = ?`, cleanedKey).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
