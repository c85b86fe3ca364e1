package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Txm04/author-retrieval/internal/model"
)

// AuthorDetail is the full view of an author with their abstracts, newest
// first.
type AuthorDetail struct {
	model.Author
	HasEmbedding bool             `json:"has_embedding"`
	Abstracts    []model.Abstract `json:"abstracts"`
}

// GetAuthor returns the author with their linked abstracts.
func (e *Engine) GetAuthor(id int64) (*AuthorDetail, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	author, err := e.store.GetAuthor(id)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, notFoundErr("author %d", id)
	}

	abstracts, err := e.store.AbstractsForAuthor(id)
	if err != nil {
		return nil, err
	}

	return &AuthorDetail{
		Author:       *author,
		HasEmbedding: author.Embedding != nil,
		Abstracts:    abstracts,
	}, nil
}

// AuthorPatch selects the author fields to change. Recompute forces a
// fresh mean vector even without other changes.
type AuthorPatch struct {
	Name      *string
	Recompute bool
}

// UpdateAuthor applies the patch.
func (e *Engine) UpdateAuthor(id int64, patch AuthorPatch) (*AuthorDetail, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	author, err := e.store.GetAuthor(id)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, notFoundErr("author %d", id)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, validationErr("name cannot be blank")
		}
		if err := e.store.UpdateAuthorName(id, name); err != nil {
			return nil, err
		}
	}

	if patch.Recompute {
		if err := e.refreshAuthorEmbedding(id); err != nil {
			return nil, err
		}
		e.log.Debug("author embedding recomputed", zap.Int64("id", id))
	}

	abstracts, err := e.store.AbstractsForAuthor(id)
	if err != nil {
		return nil, err
	}
	updated, err := e.store.GetAuthor(id)
	if err != nil {
		return nil, err
	}

	return &AuthorDetail{
		Author:       *updated,
		HasEmbedding: updated.Embedding != nil,
		Abstracts:    abstracts,
	}, nil
}

// DeleteAuthor removes the author, their abstract links, and their index
// entry. The linked abstracts themselves survive.
func (e *Engine) DeleteAuthor(id int64) error {
	e.state.RLock()
	defer e.state.RUnlock()

	exists, err := e.store.AuthorExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return notFoundErr("author %d", id)
	}

	if err := e.store.DeleteAuthor(id); err != nil {
		return err
	}
	e.authors.Remove(id)

	e.log.Info("author deleted", zap.Int64("id", id))
	return nil
}
