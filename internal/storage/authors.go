package storage

import (
	"database/sql"
	"fmt"

	"github.com/Txm04/author-retrieval/internal/model"
)

// InsertAuthor stores a new author under its id.
func (d *DB) InsertAuthor(a model.Author) error {
	_, err := d.db.Exec(`
		INSERT INTO authors (id, name, embedding) VALUES (?, ?, ?)
	`, a.ID, a.Name, encodeVector(a.Embedding))
	if err != nil {
		return fmt.Errorf("inserting author %d: %w", a.ID, err)
	}
	return nil
}

// UpdateAuthorName renames an author.
func (d *DB) UpdateAuthorName(id int64, name string) error {
	res, err := d.db.Exec(`UPDATE authors SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("renaming author %d: %w", id, err)
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

// SetAuthorEmbedding stores (or clears, with nil) an author's embedding.
func (d *DB) SetAuthorEmbedding(id int64, vec []float32) error {
	_, err := d.db.Exec(`UPDATE authors SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
	if err != nil {
		return fmt.Errorf("setting embedding for author %d: %w", id, err)
	}
	return nil
}

// GetAuthor retrieves an author by id. Returns nil when absent.
func (d *DB) GetAuthor(id int64) (*model.Author, error) {
	row := d.db.QueryRow(`SELECT id, name, embedding FROM authors WHERE id = ?`, id)
	return scanAuthor(row)
}

// AuthorExists reports whether an author with the id is stored.
func (d *DB) AuthorExists(id int64) (bool, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM authors WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// FindAuthorByName returns the author with the exact name, lowest id first
// when duplicates exist. Returns nil when absent.
func (d *DB) FindAuthorByName(name string) (*model.Author, error) {
	row := d.db.QueryRow(`SELECT id, name, embedding FROM authors WHERE name = ? ORDER BY id LIMIT 1`, name)
	return scanAuthor(row)
}

// DeleteAuthor removes the author row and its abstract links.
func (d *DB) DeleteAuthor(id int64) error {
	if _, err := d.db.Exec(`DELETE FROM abstract_authors WHERE author_id = ?`, id); err != nil {
		return fmt.Errorf("unlinking author %d: %w", id, err)
	}
	if _, err := d.db.Exec(`DELETE FROM authors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting author %d: %w", id, err)
	}
	return nil
}

// NextAuthorID returns the smallest id greater than every stored one.
func (d *DB) NextAuthorID() (int64, error) {
	var next int64
	err := d.db.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM authors`).Scan(&next)
	return next, err
}

// ListAuthorsByIDs returns the authors for the given ids. Missing ids are
// skipped; order follows the input.
func (d *DB) ListAuthorsByIDs(ids []int64) ([]model.Author, error) {
	out := make([]model.Author, 0, len(ids))
	for _, id := range ids {
		a, err := d.GetAuthor(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

// ListAuthorEmbeddings returns every stored author embedding, for index
// rebuilds.
func (d *DB) ListAuthorEmbeddings() ([]model.VectorEntry, error) {
	rows, err := d.db.Query(`SELECT id, embedding FROM authors WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("listing author embeddings: %w", err)
	}
	defer rows.Close()
	return scanVectorEntries(rows)
}

// ListAllAuthors returns every author ordered by id.
func (d *DB) ListAllAuthors() ([]model.Author, error) {
	rows, err := d.db.Query(`SELECT id, name, embedding FROM authors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
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

func scanAuthor(s scanner) (*model.Author, error) {
	var a model.Author
	var emb sql.NullString

	err := s.Scan(&a.ID, &a.Name, &emb)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if a.Embedding, err = decodeVector(emb); err != nil {
		return nil, fmt.Errorf("author %d: %w", a.ID, err)
	}
	return &a, nil
}
