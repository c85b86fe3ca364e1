package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Txm04/author-retrieval/internal/model"
)

// AbstractDetail is the full view of an abstract with its linked entities.
type AbstractDetail struct {
	model.Abstract
	Authors []model.Author `json:"authors"`
	Topics  []model.Topic  `json:"topics"`
}

// GetAbstract returns the abstract with its authors and topics.
func (e *Engine) GetAbstract(id int64) (*AbstractDetail, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	abs, err := e.store.GetAbstract(id)
	if err != nil {
		return nil, err
	}
	if abs == nil {
		return nil, notFoundErr("abstract %d", id)
	}

	authors, err := e.store.AuthorsForAbstract(id)
	if err != nil {
		return nil, err
	}
	topics, err := e.store.TopicsForAbstract(id)
	if err != nil {
		return nil, err
	}

	return &AbstractDetail{Abstract: *abs, Authors: authors, Topics: topics}, nil
}

// AbstractPatch selects the abstract fields to change. Nil fields stay
// untouched; ClearPublicationDate removes the date.
type AbstractPatch struct {
	Title                *string
	ContentRaw           *string
	PublicationDate      *time.Time
	ClearPublicationDate bool
	TopicIDs             *[]int64
}

// UpdateAbstract applies the patch. A change to title or content re-embeds
// the abstract and refreshes the linked authors' mean vectors; a topic
// patch replaces the tag set and requires every topic to exist.
func (e *Engine) UpdateAbstract(ctx context.Context, id int64, patch AbstractPatch) (*AbstractDetail, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	abs, err := e.store.GetAbstract(id)
	if err != nil {
		return nil, err
	}
	if abs == nil {
		return nil, notFoundErr("abstract %d", id)
	}

	contentChanged := false
	if patch.Title != nil && *patch.Title != abs.Title {
		if *patch.Title == "" {
			return nil, validationErr("title cannot be blank")
		}
		abs.Title = *patch.Title
		contentChanged = true
	}
	if patch.ContentRaw != nil && *patch.ContentRaw != abs.ContentRaw {
		if *patch.ContentRaw == "" {
			return nil, validationErr("content_raw cannot be blank")
		}
		abs.ContentRaw = *patch.ContentRaw
		contentChanged = true
	}
	if patch.ClearPublicationDate {
		abs.PublicationDate = nil
	} else if patch.PublicationDate != nil {
		abs.PublicationDate = patch.PublicationDate
	}

	if patch.TopicIDs != nil {
		for _, tid := range *patch.TopicIDs {
			exists, err := e.store.TopicExists(tid)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, validationErr("unknown topic %d", tid)
			}
		}
		if err := e.store.ReplaceAbstractTopics(id, *patch.TopicIDs); err != nil {
			return nil, err
		}
	}

	if err := e.store.UpdateAbstract(*abs); err != nil {
		return nil, err
	}

	if contentChanged {
		if err := e.embedAbstract(ctx, *abs); err != nil {
			return nil, err
		}
		authorIDs, err := e.store.AuthorIDsForAbstract(id)
		if err != nil {
			return nil, err
		}
		for _, aid := range authorIDs {
			if err := e.refreshAuthorEmbedding(aid); err != nil {
				return nil, err
			}
		}
		e.log.Debug("abstract re-embedded", zap.Int64("id", id))
	}

	return e.getAbstractLocked(id)
}

// getAbstractLocked reloads the detail view with the state lock already
// held.
func (e *Engine) getAbstractLocked(id int64) (*AbstractDetail, error) {
	abs, err := e.store.GetAbstract(id)
	if err != nil {
		return nil, err
	}
	if abs == nil {
		return nil, notFoundErr("abstract %d", id)
	}
	authors, err := e.store.AuthorsForAbstract(id)
	if err != nil {
		return nil, err
	}
	topics, err := e.store.TopicsForAbstract(id)
	if err != nil {
		return nil, err
	}
	return &AbstractDetail{Abstract: *abs, Authors: authors, Topics: topics}, nil
}

// DeleteAbstract removes the abstract, its links, and its index entry,
// then recomputes the mean vector of every author it contributed to.
// Authors left without any embedded abstract drop out of the index.
func (e *Engine) DeleteAbstract(id int64) error {
	e.state.RLock()
	defer e.state.RUnlock()

	exists, err := e.store.AbstractExists(id)
	if err != nil {
		return err
	}
	if !exists {
		return notFoundErr("abstract %d", id)
	}

	authorIDs, err := e.store.AuthorIDsForAbstract(id)
	if err != nil {
		return err
	}

	if err := e.store.DeleteAbstract(id); err != nil {
		return err
	}
	e.abstracts.Remove(id)

	for _, aid := range authorIDs {
		if err := e.refreshAuthorEmbedding(aid); err != nil {
			return err
		}
	}

	e.log.Info("abstract deleted", zap.Int64("id", id), zap.Int("authors_refreshed", len(authorIDs)))
	return nil
}
