package history

import (
	"fmt"
	"time"
)

// Record appends a play. A zero PlayedAt is set to now.
func (db *DB) Record(p Play) error {
	if p.PlayedAt.IsZero() {
		p.PlayedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO plays (sound, path, source, ok, error, played_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Sound, p.Path, string(p.Source), p.OK, p.Error, p.PlayedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// TopSounds returns the most played sounds, most plays first.
func (db *DB) TopSounds(limit int) ([]SoundCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT sound, COUNT(*) AS n, MAX(played_at)
		FROM plays
		GROUP BY sound
		ORDER BY n DESC, sound ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: top sounds: %w", err)
	}
	defer rows.Close()

	var out []SoundCount
	for rows.Next() {
		var (
			sc   SoundCount
			last string
		)
		if err := rows.Scan(&sc.Sound, &sc.Plays, &last); err != nil {
			return nil, err
		}
		sc.Last = parseTime(last)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Recent returns the latest plays, newest first.
func (db *DB) Recent(limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, sound, path, source, ok, error, played_at
		FROM plays
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Play
	for rows.Next() {
		var (
			p      Play
			source string
		)
		if err := rows.Scan(&p.ID, &p.Sound, &p.Path, &source, &p.OK, &p.Error, &p.PlayedAt); err != nil {
			return nil, err
		}
		p.Source = Source(source)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Counts returns totals over the whole log.
func (db *DB) Counts() (Counts, error) {
	c := Counts{BySource: map[Source]int{}}
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN ok THEN 0 ELSE 1 END), 0) FROM plays
	`).Scan(&c.Total, &c.Failed)
	if err != nil {
		return Counts{}, fmt.Errorf("history: counts: %w", err)
	}

	rows, err := db.conn.Query(`SELECT source, COUNT(*) FROM plays GROUP BY source`)
	if err != nil {
		return Counts{}, fmt.Errorf("history: counts by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return Counts{}, err
		}
		c.BySource[Source(s)] = n
	}
	return c, rows.Err()
}

// MAX() loses the column's declared type, so the driver hands back text.
func parseTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
