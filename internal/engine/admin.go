package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Txm04/author-retrieval/internal/config"
	"github.com/Txm04/author-retrieval/internal/encoder"
	"github.com/Txm04/author-retrieval/internal/model"
	"github.com/Txm04/author-retrieval/internal/vecindex"
)

// ResetConfirmToken is the exact confirmation a Reset requires.
const ResetConfirmToken = "RESET"

// ListTopics returns every stored topic.
func (e *Engine) ListTopics() ([]model.Topic, error) {
	e.state.RLock()
	defer e.state.RUnlock()
	return e.store.ListTopics()
}

// IndexStatus describes one vector index.
type IndexStatus struct {
	Size     int  `json:"size"`
	Building bool `json:"building"`
}

// Status is a full snapshot of the engine.
type Status struct {
	Encoder        encoder.Status `json:"encoder"`
	Abstracts      int            `json:"abstracts"`
	Authors        int            `json:"authors"`
	Topics         int            `json:"topics"`
	AbstractsIndex IndexStatus    `json:"abstracts_index"`
	AuthorsIndex   IndexStatus    `json:"authors_index"`
	ShowScores     bool           `json:"show_scores"`
	ScoreMode      string         `json:"score_mode"`
}

// Status reports the encoder, the relational counts, the index sizes, and
// the runtime settings.
func (e *Engine) Status() (*Status, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	abstracts, authors, topics, err := e.store.Counts()
	if err != nil {
		return nil, err
	}

	showScores, scoreMode := e.scoreSettings()
	return &Status{
		Encoder:        e.enc.Status(),
		Abstracts:      abstracts,
		Authors:        authors,
		Topics:         topics,
		AbstractsIndex: IndexStatus{Size: e.abstracts.Len(), Building: e.abstracts.Building()},
		AuthorsIndex:   IndexStatus{Size: e.authors.Len(), Building: e.authors.Building()},
		ShowScores:     showScores,
		ScoreMode:      scoreMode,
	}, nil
}

// ConfigUpdate selects the runtime settings to change. Nil fields stay
// untouched.
type ConfigUpdate struct {
	Device     *string
	ShowScores *bool
	ScoreMode  *string
}

// SetConfig applies runtime setting changes. The device change delegates
// to the encoder and fails without side effects when the device is
// invalid or unavailable.
func (e *Engine) SetConfig(ctx context.Context, update ConfigUpdate) error {
	e.state.RLock()
	defer e.state.RUnlock()

	if update.ScoreMode != nil && !config.ValidScoreMode(*update.ScoreMode) {
		return validationErr("invalid score mode %q (valid: %s, %s)",
			*update.ScoreMode, config.ScoreModeCosine, config.ScoreModeANN)
	}

	if update.Device != nil {
		if err := e.enc.SwitchDevice(ctx, *update.Device); err != nil {
			return wrapDeviceErr(err)
		}
		e.log.Info("device switched", zap.String("device", *update.Device))
	}

	e.settings.Lock()
	if update.ShowScores != nil {
		e.showScores = *update.ShowScores
	}
	if update.ScoreMode != nil {
		e.scoreMode = *update.ScoreMode
	}
	e.settings.Unlock()

	return nil
}

// ReindexResult reports a reindex run.
type ReindexResult struct {
	AbstractsEncoded int      `json:"abstracts_encoded"`
	AbstractsIndexed int      `json:"abstracts_indexed"`
	AuthorsIndexed   int      `json:"authors_indexed"`
	Errors           []string `json:"errors,omitempty"`
}

// Reindex encodes every abstract still missing an embedding, recomputes
// all author mean vectors, and rebuilds and persists both indices from the
// store. Per-record encoding failures are collected, not fatal.
func (e *Engine) Reindex(ctx context.Context) (*ReindexResult, error) {
	e.state.RLock()
	defer e.state.RUnlock()

	res := &ReindexResult{}

	missing, err := e.store.ListAbstractsMissingEmbedding()
	if err != nil {
		return nil, err
	}
	for _, abs := range missing {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.embedAbstract(ctx, abs); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("abstract %d: %v", abs.ID, err))
			continue
		}
		res.AbstractsEncoded++
	}

	allAuthors, err := e.store.ListAllAuthors()
	if err != nil {
		return nil, err
	}
	for _, a := range allAuthors {
		if err := e.refreshAuthorEmbedding(a.ID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("author %d: %v", a.ID, err))
		}
	}

	if err := e.rebuildIndex(e.abstracts, e.abstractEntries, e.cfg.AbstractsIndexPath()); err != nil {
		return nil, err
	}
	if err := e.rebuildIndex(e.authors, e.authorEntries, e.cfg.AuthorsIndexPath()); err != nil {
		return nil, err
	}

	res.AbstractsIndexed = e.abstracts.Len()
	res.AuthorsIndexed = e.authors.Len()

	e.log.Info("reindex finished",
		zap.Int("abstracts_encoded", res.AbstractsEncoded),
		zap.Int("abstracts_indexed", res.AbstractsIndexed),
		zap.Int("authors_indexed", res.AuthorsIndexed),
		zap.Int("errors", len(res.Errors)))
	return res, nil
}

func (e *Engine) rebuildIndex(ix *vecindex.Index, source func() ([]vecindex.Entry, error), path string) error {
	if err := ix.Rebuild(source); err != nil {
		if errors.Is(err, vecindex.ErrBuildInProgress) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("%w: %v", ErrIndexBuild, err)
	}
	if err := ix.Save(path); err != nil {
		return err
	}
	return nil
}

// Reset wipes the store, both indices, and their snapshots. It requires
// the exact confirmation token and excludes every other operation while it
// runs; an in-flight rebuild blocks it with ErrConflict.
func (e *Engine) Reset(confirm string) error {
	if confirm != ResetConfirmToken {
		return validationErr("confirmation token must be %q", ResetConfirmToken)
	}

	e.state.Lock()
	defer e.state.Unlock()

	if e.abstracts.Building() || e.authors.Building() {
		return fmt.Errorf("%w: index rebuild in flight", ErrConflict)
	}

	if err := e.store.Reset(); err != nil {
		return err
	}
	if err := e.abstracts.Clear(); err != nil {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err := e.authors.Clear(); err != nil {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err := vecindex.RemoveSnapshot(e.cfg.AbstractsIndexPath()); err != nil {
		return err
	}
	if err := vecindex.RemoveSnapshot(e.cfg.AuthorsIndexPath()); err != nil {
		return err
	}

	e.log.Warn("engine reset: all data removed")
	return nil
}
