// Package storage persists abstracts, authors, topics, and their links in
// SQLite.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Txm04/author-retrieval/internal/model"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS abstracts (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			content_raw TEXT NOT NULL,
			content TEXT,
			submission_date TEXT,
			publication_date TEXT,
			language_ref INTEGER,
			word_count INTEGER,
			keywords TEXT,
			session_id INTEGER,
			session_title TEXT,
			embedding TEXT
		);

		CREATE TABLE IF NOT EXISTS authors (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			embedding TEXT
		);

		CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL
		);

		-- Composite primary keys make the link sets idempotent under
		-- INSERT OR IGNORE.
		CREATE TABLE IF NOT EXISTS abstract_authors (
			abstract_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			PRIMARY KEY (abstract_id, author_id)
		);

		CREATE TABLE IF NOT EXISTS abstract_topics (
			abstract_id INTEGER NOT NULL,
			topic_id INTEGER NOT NULL,
			PRIMARY KEY (abstract_id, topic_id)
		);

		CREATE INDEX IF NOT EXISTS idx_authors_name ON authors(name);
		CREATE INDEX IF NOT EXISTS idx_topics_title ON topics(title);
		CREATE INDEX IF NOT EXISTS idx_abstract_authors_author ON abstract_authors(author_id);
		CREATE INDEX IF NOT EXISTS idx_abstract_topics_topic ON abstract_topics(topic_id);
	`

	_, err := db.Exec(schema)
	return err
}

// Reset removes every row from every table.
func (d *DB) Reset() error {
	for _, table := range []string{"abstract_authors", "abstract_topics", "abstracts", "authors", "topics"} {
		if _, err := d.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// Counts returns the row counts of the three entity tables.
func (d *DB) Counts() (abstracts, authors, topics int, err error) {
	if err = d.db.QueryRow("SELECT COUNT(*) FROM abstracts").Scan(&abstracts); err != nil {
		return
	}
	if err = d.db.QueryRow("SELECT COUNT(*) FROM authors").Scan(&authors); err != nil {
		return
	}
	err = d.db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&topics)
	return
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// encodeVector serializes an embedding as a JSON array, NULL when nil.
func encodeVector(vec []float32) sql.NullString {
	if vec == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// decodeVector parses a JSON array column back into an embedding.
func decodeVector(s sql.NullString) ([]float32, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(s.String), &vec); err != nil {
		return nil, fmt.Errorf("parsing embedding JSON: %w", err)
	}
	return vec, nil
}

// encodeDate formats a nullable date for storage.
func encodeDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateFormat), Valid: true}
}

// decodeDate parses a nullable date column.
func decodeDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", s.String, err)
	}
	return &t, nil
}
