package memory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore persists learnings to a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open learning store: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS selector_learnings (
		site TEXT NOT NULL,
		description TEXT NOT NULL,
		selector TEXT NOT NULL,
		strategy TEXT,
		success_rate REAL NOT NULL DEFAULT 0,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_used DATETIME,
		PRIMARY KEY (site, description, selector)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init learning store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, site, description, selector, strategy string, success bool) error {
	hit := 0
	if success {
		hit = 1
	}
	// Success rate is recomputed from the stored aggregate; the whole row
	// updates in one statement so concurrent writers stay consistent.
	query := `INSERT INTO selector_learnings (site, description, selector, strategy, success_rate, usage_count, last_used)
		VALUES (?, ?, ?, ?, ?, 1, datetime('now'))
		ON CONFLICT(site, description, selector) DO UPDATE SET
			success_rate = (success_rate * usage_count + ?) / (usage_count + 1),
			usage_count = usage_count + 1,
			strategy = excluded.strategy,
			last_used = datetime('now')`
	_, err := s.db.ExecContext(ctx, query, site, description, selector, strategy, float64(hit), hit)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Hints(ctx context.Context, site, description string, limit int) ([]Learning, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `SELECT site, description, selector, strategy, success_rate, usage_count, last_used
		FROM selector_learnings
		WHERE site = ? AND description = ?
		ORDER BY success_rate DESC, usage_count DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, site, description, limit)
	if err != nil {
		return nil, fmt.Errorf("load hints: %w", err)
	}
	defer rows.Close()

	var hints []Learning
	for rows.Next() {
		var l Learning
		var strategy sql.NullString
		var lastUsed sql.NullTime
		if err := rows.Scan(&l.Site, &l.Description, &l.Selector, &strategy, &l.SuccessRate, &l.UsageCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan hint: %w", err)
		}
		l.Strategy = strategy.String
		l.LastUsed = lastUsed.Time
		hints = append(hints, l)
	}
	return hints, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*InMemoryStore)(nil)
