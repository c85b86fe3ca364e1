package storage

import (
	"fmt"
	"strings"

	"github.com/Txm04/author-retrieval/internal/model"
)

// LinkAbstractAuthor records that the author wrote the abstract.
// Re-linking an existing pair is a no-op.
func (d *DB) LinkAbstractAuthor(abstractID, authorID int64) error {
	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO abstract_authors (abstract_id, author_id) VALUES (?, ?)
	`, abstractID, authorID)
	if err != nil {
		return fmt.Errorf("linking abstract %d to author %d: %w", abstractID, authorID, err)
	}
	return nil
}

// LinkAbstractTopic tags the abstract with the topic. Re-linking an
// existing pair is a no-op.
func (d *DB) LinkAbstractTopic(abstractID, topicID int64) error {
	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO abstract_topics (abstract_id, topic_id) VALUES (?, ?)
	`, abstractID, topicID)
	if err != nil {
		return fmt.Errorf("linking abstract %d to topic %d: %w", abstractID, topicID, err)
	}
	return nil
}

// ReplaceAbstractTopics rewrites the abstract's topic set.
func (d *DB) ReplaceAbstractTopics(abstractID int64, topicIDs []int64) error {
	if _, err := d.db.Exec(`DELETE FROM abstract_topics WHERE abstract_id = ?`, abstractID); err != nil {
		return fmt.Errorf("clearing topics of abstract %d: %w", abstractID, err)
	}
	for _, tid := range topicIDs {
		if err := d.LinkAbstractTopic(abstractID, tid); err != nil {
			return err
		}
	}
	return nil
}

// AuthorsForAbstract returns the authors linked to the abstract, ordered
// by id.
func (d *DB) AuthorsForAbstract(abstractID int64) ([]model.Author, error) {
	rows, err := d.db.Query(`
		SELECT a.id, a.name, a.embedding
		FROM authors a
		JOIN abstract_authors l ON l.author_id = a.id
		WHERE l.abstract_id = ?
		ORDER BY a.id
	`, abstractID)
	if err != nil {
		return nil, fmt.Errorf("listing authors of abstract %d: %w", abstractID, err)
	}
	defer rows.Close()

	var out []model.Author
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}

// TopicsForAbstract returns the topics the abstract is tagged with,
// ordered by id.
func (d *DB) TopicsForAbstract(abstractID int64) ([]model.Topic, error) {
	rows, err := d.db.Query(`
		SELECT t.id, t.title
		FROM topics t
		JOIN abstract_topics l ON l.topic_id = t.id
		WHERE l.abstract_id = ?
		ORDER BY t.id
	`, abstractID)
	if err != nil {
		return nil, fmt.Errorf("listing topics of abstract %d: %w", abstractID, err)
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

// AbstractsForAuthor returns the author's abstracts, newest publication
// first, undated last, ties by descending id.
func (d *DB) AbstractsForAuthor(authorID int64) ([]model.Abstract, error) {
	rows, err := d.db.Query(`
		SELECT `+qualifiedAbstractFields+`
		FROM abstracts ab
		JOIN abstract_authors l ON l.abstract_id = ab.id
		WHERE l.author_id = ?
		ORDER BY ab.publication_date IS NULL, ab.publication_date DESC, ab.id DESC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("listing abstracts of author %d: %w", authorID, err)
	}
	defer rows.Close()
	return scanAbstracts(rows)
}

// AuthorIDsForAbstract returns the ids of authors linked to the abstract.
func (d *DB) AuthorIDsForAbstract(abstractID int64) ([]int64, error) {
	rows, err := d.db.Query(`
		SELECT author_id FROM abstract_authors WHERE abstract_id = ? ORDER BY author_id
	`, abstractID)
	if err != nil {
		return nil, fmt.Errorf("listing author ids of abstract %d: %w", abstractID, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AbstractEmbeddingsForAuthor returns the stored embeddings of the
// author's linked abstracts, skipping unencoded ones. Used to recompute
// the author's mean vector.
func (d *DB) AbstractEmbeddingsForAuthor(authorID int64) ([]model.VectorEntry, error) {
	rows, err := d.db.Query(`
		SELECT ab.id, ab.embedding
		FROM abstracts ab
		JOIN abstract_authors l ON l.abstract_id = ab.id
		WHERE l.author_id = ? AND ab.embedding IS NOT NULL
		ORDER BY ab.id
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("listing abstract embeddings of author %d: %w", authorID, err)
	}
	defer rows.Close()
	return scanVectorEntries(rows)
}

// AbstractIDsForTopics returns the ids of abstracts tagged with any of the
// topics, newest publication first, undated last, ties by descending id.
func (d *DB) AbstractIDsForTopics(topicIDs []int64) ([]int64, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(topicIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(topicIDs))
	for i, id := range topicIDs {
		args[i] = id
	}

	rows, err := d.db.Query(`
		SELECT DISTINCT ab.id, ab.publication_date
		FROM abstracts ab
		JOIN abstract_topics l ON l.abstract_id = ab.id
		WHERE l.topic_id IN (`+placeholders+`)
		ORDER BY ab.publication_date IS NULL, ab.publication_date DESC, ab.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing abstracts for topics: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		var date interface{}
		if err := rows.Scan(&id, &date); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// qualifiedAbstractFields mirrors selectAbstractFields with a table alias
// for joined queries.
const qualifiedAbstractFields = `ab.id, ab.title, ab.content_raw, ab.content, ab.submission_date,
	ab.publication_date, ab.language_ref, ab.word_count, ab.keywords, ab.session_id,
	ab.session_title, ab.embedding`
