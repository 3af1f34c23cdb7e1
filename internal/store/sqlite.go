package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS associations (
	owner TEXT NOT NULL,
	repo TEXT NOT NULL,
	number INTEGER NOT NULL,
	issue_key TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (owner, repo, number)
);
`

// SQLiteStore keeps associations in a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create associations table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the association of a pull request
func (s *SQLiteStore) Get(ctx context.Context, ref types.PullRequestRef) (string, bool, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		"SELECT issue_key FROM associations WHERE owner = ? AND repo = ? AND number = ?",
		ref.Repository.Owner, ref.Repository.Name, ref.Number,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read association for %s: %w", ref, err)
	}
	return key, true, nil
}

// Set records the association of a pull request
func (s *SQLiteStore) Set(ctx context.Context, ref types.PullRequestRef, issueKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO associations (owner, repo, number, issue_key) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, repo, number) DO UPDATE SET
			issue_key = excluded.issue_key,
			updated_at = CURRENT_TIMESTAMP`,
		ref.Repository.Owner, ref.Repository.Name, ref.Number, issueKey,
	)
	if err != nil {
		return fmt.Errorf("failed to write association for %s: %w", ref, err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
