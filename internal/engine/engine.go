// Package engine wires the store, the encoder, and the vector indices into
// the retrieval operations: import, search, similarity, and administration.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Txm04/author-retrieval/internal/config"
	"github.com/Txm04/author-retrieval/internal/device"
	"github.com/Txm04/author-retrieval/internal/embedding"
	"github.com/Txm04/author-retrieval/internal/encoder"
	"github.com/Txm04/author-retrieval/internal/storage"
	"github.com/Txm04/author-retrieval/internal/vecindex"
)

// MaxCandidates caps the oversampled candidate set a single vector search
// may pull from the index.
const MaxCandidates = 10000

// Engine is the retrieval service hub. Safe for concurrent use; Reset
// excludes every other operation while it runs.
type Engine struct {
	cfg   *config.Config
	store *storage.DB
	enc   *encoder.Manager
	log   *zap.Logger

	abstracts *vecindex.Index
	authors   *vecindex.Index

	// state is held shared by regular operations and exclusively by Reset.
	state sync.RWMutex

	// settings guards the runtime-mutable search behavior.
	settings   sync.Mutex
	showScores bool
	scoreMode  string
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	factory encoder.Factory
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithProviderFactory replaces the embedding provider factory, mainly so
// tests can substitute a deterministic provider for Ollama.
func WithProviderFactory(f encoder.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// New opens the store, starts the encoder on the configured device, and
// loads both indices, rebuilding them from the store when no usable
// snapshot exists.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		o.factory = ollamaFactory(cfg)
	}

	enc, err := encoder.New(o.factory, cfg.Device)
	if err != nil {
		return nil, wrapDeviceErr(err)
	}

	store, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		store:      store,
		enc:        enc,
		log:        o.logger,
		abstracts:  vecindex.New(cfg.VectorDim),
		authors:    vecindex.New(cfg.VectorDim),
		showScores: cfg.ShowScores,
		scoreMode:  cfg.ScoreMode,
	}

	if err := e.loadOrBuildIndices(); err != nil {
		store.Close()
		return nil, err
	}

	return e, nil
}

// ollamaFactory builds the default provider factory from config.
func ollamaFactory(cfg *config.Config) encoder.Factory {
	return func(d device.Kind) embedding.Provider {
		opts := []embedding.OllamaOption{
			embedding.WithModel(cfg.Model),
			embedding.WithDimensions(cfg.VectorDim),
			embedding.WithDevice(d),
		}
		if cfg.OllamaURL != "" {
			opts = append(opts, embedding.WithBaseURL(cfg.OllamaURL))
		}
		return embedding.NewOllamaProvider(opts...)
	}
}

// loadOrBuildIndices restores both indices from their snapshots, falling
// back to a rebuild from the store when a snapshot is missing or stale.
func (e *Engine) loadOrBuildIndices() error {
	type target struct {
		name  string
		index *vecindex.Index
		path  string
		load  func() ([]vecindex.Entry, error)
	}

	targets := []target{
		{"abstracts", e.abstracts, e.cfg.AbstractsIndexPath(), e.abstractEntries},
		{"authors", e.authors, e.cfg.AuthorsIndexPath(), e.authorEntries},
	}

	for _, t := range targets {
		err := t.index.LoadFrom(t.path)
		if err == nil {
			e.log.Debug("index loaded", zap.String("index", t.name), zap.Int("size", t.index.Len()))
			continue
		}
		if !errors.Is(err, vecindex.ErrSnapshotNotFound) &&
			!errors.Is(err, vecindex.ErrUnsupportedVersion) &&
			!errors.Is(err, vecindex.ErrDimensionMismatch) {
			return fmt.Errorf("loading %s index: %w", t.name, err)
		}

		e.log.Info("rebuilding index from store", zap.String("index", t.name), zap.Error(err))
		if err := t.index.Rebuild(t.load); err != nil {
			return fmt.Errorf("%w: rebuilding %s index: %v", ErrIndexBuild, t.name, err)
		}
		if err := t.index.Save(t.path); err != nil {
			return fmt.Errorf("saving %s index: %w", t.name, err)
		}
	}
	return nil
}

func (e *Engine) abstractEntries() ([]vecindex.Entry, error) {
	rows, err := e.store.ListAbstractEmbeddings()
	if err != nil {
		return nil, err
	}
	entries := make([]vecindex.Entry, len(rows))
	for i, r := range rows {
		entries[i] = vecindex.Entry{ID: r.ID, Vector: r.Vector}
	}
	return entries, nil
}

func (e *Engine) authorEntries() ([]vecindex.Entry, error) {
	rows, err := e.store.ListAuthorEmbeddings()
	if err != nil {
		return nil, err
	}
	entries := make([]vecindex.Entry, len(rows))
	for i, r := range rows {
		entries[i] = vecindex.Entry{ID: r.ID, Vector: r.Vector}
	}
	return entries, nil
}

// Close persists both indices and closes the store.
func (e *Engine) Close() error {
	var errs []error
	if err := e.abstracts.Save(e.cfg.AbstractsIndexPath()); err != nil {
		errs = append(errs, fmt.Errorf("saving abstracts index: %w", err))
	}
	if err := e.authors.Save(e.cfg.AuthorsIndexPath()); err != nil {
		errs = append(errs, fmt.Errorf("saving authors index: %w", err))
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

// scoreSettings returns a consistent snapshot of the runtime score settings.
func (e *Engine) scoreSettings() (showScores bool, scoreMode string) {
	e.settings.Lock()
	defer e.settings.Unlock()
	return e.showScores, e.scoreMode
}

// wrapDeviceErr maps encoder device errors into the engine taxonomy.
func wrapDeviceErr(err error) error {
	switch {
	case errors.Is(err, encoder.ErrInvalidDevice):
		return fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	case errors.Is(err, encoder.ErrDeviceUnavailable):
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	default:
		return err
	}
}

// wrapEncodeErr maps encoder failures into the engine taxonomy. Empty text
// is an encoding failure, not a validation one; query validation happens
// before any encode is attempted.
func wrapEncodeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrEncoding, err)
}
