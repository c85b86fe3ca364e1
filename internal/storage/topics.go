package storage

import (
	"database/sql"
	"fmt"

	"github.com/Txm04/author-retrieval/internal/model"
)

// InsertTopic stores a new topic under its id.
func (d *DB) InsertTopic(t model.Topic) error {
	_, err := d.db.Exec(`INSERT INTO topics (id, title) VALUES (?, ?)`, t.ID, t.Title)
	if err != nil {
		return fmt.Errorf("inserting topic %d: %w", t.ID, err)
	}
	return nil
}

// GetTopic retrieves a topic by id. Returns nil when absent.
func (d *DB) GetTopic(id int64) (*model.Topic, error) {
	var t model.Topic
	err := d.db.QueryRow(`SELECT id, title FROM topics WHERE id = ?`, id).Scan(&t.ID, &t.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// TopicExists reports whether a topic with the id is stored.
func (d *DB) TopicExists(id int64) (bool, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM topics WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// FindTopicByTitle returns the topic with the exact title, lowest id first
// when duplicates exist. Returns nil when absent.
func (d *DB) FindTopicByTitle(title string) (*model.Topic, error) {
	var t model.Topic
	err := d.db.QueryRow(`SELECT id, title FROM topics WHERE title = ? ORDER BY id LIMIT 1`, title).Scan(&t.ID, &t.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// NextTopicID returns the smallest id greater than every stored one.
func (d *DB) NextTopicID() (int64, error) {
	var next int64
	err := d.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM topics`).Scan(&next)
	return next, err
}

// ListTopics returns every topic ordered by id.
func (d *DB) ListTopics() ([]model.Topic, error) {
	rows, err := d.db.Query(`SELECT id, title FROM topics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	var out []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
