// Package vecindex implements an in-process vector index with generational
// rebuilds.
//
// The published generation is a flat map scanned exactly on every search.
// Rebuilds assemble a fresh generation off to the side while readers and
// writers keep using the old one; mutations issued mid-build are journaled
// and replayed onto the new generation before it is swapped in, so nothing
// written during a rebuild is lost.
package vecindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Errors returned by index operations.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrBuildInProgress   = errors.New("index rebuild already in progress")
	ErrBuildFailed       = errors.New("index rebuild failed")
)

// Entry pairs an id with its vector, used for bulk rebuilds.
type Entry struct {
	ID     int64
	Vector []float32
}

// Hit is a single search result: an id and its squared-L2 distance to the
// query, ascending distance first.
type Hit struct {
	ID       int64
	Distance float32
}

type mutation struct {
	id     int64
	vector []float32 // nil means remove
}

// Index is a flat vector index over int64 ids. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	gen      map[int64][]float32
	dims     int
	building bool
	journal  []mutation
}

// New creates an empty index for vectors of the given dimensionality.
func New(dims int) *Index {
	return &Index{
		gen:  make(map[int64][]float32),
		dims: dims,
	}
}

// Dimensions returns the vector dimensionality the index enforces.
func (ix *Index) Dimensions() int {
	return ix.dims
}

// Len returns the number of vectors in the published generation.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.gen)
}

// Building reports whether a rebuild is currently assembling a new
// generation.
func (ix *Index) Building() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.building
}

// Upsert inserts or replaces the vector for id. The change is visible to
// searches immediately; during a rebuild it is also journaled so the new
// generation picks it up.
func (ix *Index) Upsert(id int64, vector []float32) error {
	if len(vector) != ix.dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), ix.dims)
	}

	// Vectors are shared with callers; copy so later caller writes can't
	// corrupt the index.
	vec := make([]float32, len(vector))
	copy(vec, vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.gen[id] = vec
	if ix.building {
		ix.journal = append(ix.journal, mutation{id: id, vector: vec})
	}
	return nil
}

// Remove deletes id from the index. Removing an absent id is a no-op.
func (ix *Index) Remove(id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.gen, id)
	if ix.building {
		ix.journal = append(ix.journal, mutation{id: id})
	}
}

// Vector returns the stored vector for id from the published generation.
func (ix *Index) Vector(id int64) ([]float32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	vec, ok := ix.gen[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Search returns the k nearest ids to query by squared-L2 distance,
// ascending, ties broken by ascending id. k <= 0 or an empty index yields
// an empty result.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dims {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), ix.dims)
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.gen))
	for id, vec := range ix.gen {
		hits = append(hits, Hit{ID: id, Distance: squaredL2(query, vec)})
	}
	ix.mu.RUnlock()

	if k <= 0 || len(hits) == 0 {
		return []Hit{}, nil
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Rebuild replaces the published generation with one built from the
// entries produced by source. Concurrent searches and mutations keep
// hitting the old generation while source runs; mutations made during the
// build are replayed onto the new generation before the swap, so none are
// lost. A failed source or a bad entry leaves the old generation in place.
// Only one rebuild may run at a time.
func (ix *Index) Rebuild(source func() ([]Entry, error)) error {
	ix.mu.Lock()
	if ix.building {
		ix.mu.Unlock()
		return ErrBuildInProgress
	}
	ix.building = true
	ix.journal = nil
	ix.mu.Unlock()

	var next map[int64][]float32
	entries, buildErr := source()
	if buildErr != nil {
		buildErr = fmt.Errorf("%w: %v", ErrBuildFailed, buildErr)
	} else {
		next = make(map[int64][]float32, len(entries))
		for _, e := range entries {
			if len(e.Vector) != ix.dims {
				buildErr = fmt.Errorf("%w: entry %d has %d dims, want %d",
					ErrBuildFailed, e.ID, len(e.Vector), ix.dims)
				break
			}
			vec := make([]float32, len(e.Vector))
			copy(vec, e.Vector)
			next[e.ID] = vec
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.building = false

	if buildErr != nil {
		ix.journal = nil
		return buildErr
	}

	for _, m := range ix.journal {
		if m.vector == nil {
			delete(next, m.id)
		} else {
			next[m.id] = m.vector
		}
	}
	ix.journal = nil
	ix.gen = next
	return nil
}

// Clear drops every vector. Fails while a rebuild is in flight.
func (ix *Index) Clear() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.building {
		return ErrBuildInProgress
	}
	ix.gen = make(map[int64][]float32)
	return nil
}

// snapshot copies the published generation for persistence.
func (ix *Index) snapshot() map[int64][]float32 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[int64][]float32, len(ix.gen))
	for id, vec := range ix.gen {
		c := make([]float32, len(vec))
		copy(c, vec)
		out[id] = c
	}
	return out
}

// replace swaps in a loaded generation.
func (ix *Index) replace(gen map[int64][]float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.gen = gen
}
