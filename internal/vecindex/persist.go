package vecindex

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Errors returned by snapshot persistence.
var (
	ErrSnapshotNotFound   = errors.New("index snapshot not found")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// CurrentSnapshotVersion is the on-disk format version. Increment on
// breaking changes to the snapshot layout.
const CurrentSnapshotVersion = 1

// snapshotFile is the gob-encoded on-disk form of an index generation.
type snapshotFile struct {
	Version    int
	Dimensions int
	Entries    map[int64][]float32
}

// Save persists the published generation to path. The write goes to a temp
// file first and is renamed into place for atomicity.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	snap := snapshotFile{
		Version:    CurrentSnapshotVersion,
		Dimensions: ix.dims,
		Entries:    ix.snapshot(),
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// LoadFrom replaces the published generation with the snapshot at path.
// Returns ErrSnapshotNotFound when no snapshot exists, and refuses
// snapshots whose version or dimensionality disagrees with the index.
func (ix *Index) LoadFrom(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrSnapshotNotFound
		}
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshotFile
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	if snap.Version != CurrentSnapshotVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, snap.Version, CurrentSnapshotVersion)
	}
	if snap.Dimensions != ix.dims {
		return fmt.Errorf("%w: snapshot has %d dims, index wants %d", ErrDimensionMismatch, snap.Dimensions, ix.dims)
	}

	if snap.Entries == nil {
		snap.Entries = make(map[int64][]float32)
	}
	ix.replace(snap.Entries)
	return nil
}

// RemoveSnapshot deletes the snapshot file at path if present.
func RemoveSnapshot(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
