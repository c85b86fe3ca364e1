package storage

import (
	"database/sql"
	"fmt"

	"github.com/Txm04/author-retrieval/internal/model"
)

const selectAbstractFields = `id, title, content_raw, content, submission_date, publication_date,
	language_ref, word_count, keywords, session_id, session_title, embedding`

// InsertAbstract stores a new abstract under its id.
func (d *DB) InsertAbstract(a model.Abstract) error {
	_, err := d.db.Exec(`
		INSERT INTO abstracts (id, title, content_raw, content, submission_date, publication_date,
			language_ref, word_count, keywords, session_id, session_title, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.ContentRaw, a.Content, encodeDate(a.SubmissionDate), encodeDate(a.PublicationDate),
		a.LanguageRef, a.WordCount, a.Keywords, a.SessionID, a.SessionTitle, encodeVector(a.Embedding))
	if err != nil {
		return fmt.Errorf("inserting abstract %d: %w", a.ID, err)
	}
	return nil
}

// UpdateAbstract overwrites every stored field of the abstract.
func (d *DB) UpdateAbstract(a model.Abstract) error {
	res, err := d.db.Exec(`
		UPDATE abstracts SET title = ?, content_raw = ?, content = ?, submission_date = ?,
			publication_date = ?, language_ref = ?, word_count = ?, keywords = ?,
			session_id = ?, session_title = ?, embedding = ?
		WHERE id = ?
	`, a.Title, a.ContentRaw, a.Content, encodeDate(a.SubmissionDate), encodeDate(a.PublicationDate),
		a.LanguageRef, a.WordCount, a.Keywords, a.SessionID, a.SessionTitle, encodeVector(a.Embedding), a.ID)
	if err != nil {
		return fmt.Errorf("updating abstract %d: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAbstractEmbedding stores (or clears, with nil) an abstract's embedding.
func (d *DB) SetAbstractEmbedding(id int64, vec []float32) error {
	_, err := d.db.Exec(`UPDATE abstracts SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
	if err != nil {
		return fmt.Errorf("setting embedding for abstract %d: %w", id, err)
	}
	return nil
}

// GetAbstract retrieves an abstract by id. Returns nil when absent.
func (d *DB) GetAbstract(id int64) (*model.Abstract, error) {
	row := d.db.QueryRow(`SELECT `+selectAbstractFields+` FROM abstracts WHERE id = ?`, id)
	return scanAbstract(row)
}

// AbstractExists reports whether an abstract with the id is stored.
func (d *DB) AbstractExists(id int64) (bool, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM abstracts WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// DeleteAbstract removes the abstract row and its links.
func (d *DB) DeleteAbstract(id int64) error {
	if _, err := d.db.Exec(`DELETE FROM abstract_authors WHERE abstract_id = ?`, id); err != nil {
		return fmt.Errorf("unlinking authors of abstract %d: %w", id, err)
	}
	if _, err := d.db.Exec(`DELETE FROM abstract_topics WHERE abstract_id = ?`, id); err != nil {
		return fmt.Errorf("unlinking topics of abstract %d: %w", id, err)
	}
	if _, err := d.db.Exec(`DELETE FROM abstracts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting abstract %d: %w", id, err)
	}
	return nil
}

// NextAbstractID returns the smallest id greater than every stored one.
func (d *DB) NextAbstractID() (int64, error) {
	var next int64
	err := d.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM abstracts`).Scan(&next)
	return next, err
}

// ListAbstractsByIDs returns the abstracts for the given ids. Missing ids
// are skipped; order follows the input.
func (d *DB) ListAbstractsByIDs(ids []int64) ([]model.Abstract, error) {
	out := make([]model.Abstract, 0, len(ids))
	for _, id := range ids {
		a, err := d.GetAbstract(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ListAbstractEmbeddings returns every stored abstract embedding, for index
// rebuilds.
func (d *DB) ListAbstractEmbeddings() ([]model.VectorEntry, error) {
	rows, err := d.db.Query(`SELECT id, embedding FROM abstracts WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("listing abstract embeddings: %w", err)
	}
	defer rows.Close()
	return scanVectorEntries(rows)
}

// ListAbstractsMissingEmbedding returns abstracts that have not been
// encoded yet.
func (d *DB) ListAbstractsMissingEmbedding() ([]model.Abstract, error) {
	rows, err := d.db.Query(`SELECT ` + selectAbstractFields + ` FROM abstracts WHERE embedding IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing abstracts missing embeddings: %w", err)
	}
	defer rows.Close()
	return scanAbstracts(rows)
}

// ListAllAbstracts returns every abstract ordered by id.
func (d *DB) ListAllAbstracts() ([]model.Abstract, error) {
	rows, err := d.db.Query(`SELECT ` + selectAbstractFields + ` FROM abstracts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing abstracts: %w", err)
	}
	defer rows.Close()
	return scanAbstracts(rows)
}

func scanAbstract(s scanner) (*model.Abstract, error) {
	var a model.Abstract
	var subDate, pubDate, emb sql.NullString

	err := s.Scan(&a.ID, &a.Title, &a.ContentRaw, &a.Content, &subDate, &pubDate,
		&a.LanguageRef, &a.WordCount, &a.Keywords, &a.SessionID, &a.SessionTitle, &emb)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if a.SubmissionDate, err = decodeDate(subDate); err != nil {
		return nil, fmt.Errorf("abstract %d: %w", a.ID, err)
	}
	if a.PublicationDate, err = decodeDate(pubDate); err != nil {
		return nil, fmt.Errorf("abstract %d: %w", a.ID, err)
	}
	if a.Embedding, err = decodeVector(emb); err != nil {
		return nil, fmt.Errorf("abstract %d: %w", a.ID, err)
	}
	return &a, nil
}

func scanAbstracts(rows *sql.Rows) ([]model.Abstract, error) {
	var out []model.Abstract
	for rows.Next() {
		a, err := scanAbstract(rows)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, rows.Err()
}

func scanVectorEntries(rows *sql.Rows) ([]model.VectorEntry, error) {
	var out []model.VectorEntry
	for rows.Next() {
		var id int64
		var emb sql.NullString
		if err := rows.Scan(&id, &emb); err != nil {
			return nil, err
		}
		vec, err := decodeVector(emb)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", id, err)
		}
		if vec != nil {
			out = append(out, model.VectorEntry{ID: id, Vector: vec})
		}
	}
	return out, rows.Err()
}
