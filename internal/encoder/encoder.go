// Package encoder manages the embedding model and its compute device.
//
// The manager serializes device switches against in-flight encodes: an
// encode holds a read lock for its duration, a switch holds the write
// lock while the provider is rebuilt, so no encode ever observes a
// half-reloaded model.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Txm04/author-retrieval/internal/device"
	"github.com/Txm04/author-retrieval/internal/embedding"
)

// Errors returned by the encoder manager.
var (
	// ErrEmptyText indicates an encode request with blank input.
	ErrEmptyText = errors.New("cannot encode empty text")

	// ErrInvalidDevice indicates a device name outside the supported set.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrDeviceUnavailable indicates a supported device this host lacks.
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// Factory builds a Provider bound to the given device. The manager calls
// it once at construction and again on every device switch.
type Factory func(d device.Kind) embedding.Provider

// Manager owns the embedding provider and its device placement.
type Manager struct {
	mu      sync.RWMutex
	factory Factory
	prov    embedding.Provider
	dev     device.Kind
	avail   device.Availability
}

// Status describes the encoder as of the last completed device switch.
type Status struct {
	Model      string        `json:"model"`
	Device     device.Kind   `json:"device"`
	Dimensions int           `json:"dimensions"`
	Available  []device.Kind `json:"available_devices"`
}

// New creates a Manager on the requested device, or the best available
// device when requested is empty. Availability is probed once and cached
// for the life of the manager.
func New(factory Factory, requested string) (*Manager, error) {
	avail := device.Detect()

	var dev device.Kind
	if requested == "" {
		dev = avail.Best()
	} else {
		var err error
		dev, err = parseAvailable(requested, avail)
		if err != nil {
			return nil, err
		}
	}

	return &Manager{
		factory: factory,
		prov:    factory(dev),
		dev:     dev,
		avail:   avail,
	}, nil
}

func parseAvailable(name string, avail device.Availability) (device.Kind, error) {
	kind, err := device.ParseKind(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDevice, name)
	}
	if !avail[kind] {
		return "", fmt.Errorf("%w: %s", ErrDeviceUnavailable, kind)
	}
	return kind, nil
}

// Encode embeds a single text. Blank input fails with ErrEmptyText before
// the provider is called.
func (m *Manager) Encode(ctx context.Context, text string) (embedding.Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return embedding.Embedding{}, ErrEmptyText
	}

	// The read lock is held across the provider call so a device switch
	// cannot complete while any encode is in flight.
	m.mu.RLock()
	defer m.mu.RUnlock()

	emb, err := m.prov.Embed(ctx, text)
	if err != nil {
		return embedding.Embedding{}, fmt.Errorf("encoding text: %w", err)
	}
	return emb, nil
}

// SwitchDevice moves the model to the named device. Validation happens
// before the exclusive lock, so a bad request never disturbs in-flight
// encodes. The switch blocks until running encodes drain.
func (m *Manager) SwitchDevice(ctx context.Context, name string) error {
	kind, err := parseAvailable(name, m.avail)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if kind == m.dev {
		return nil
	}

	m.prov = m.factory(kind)
	m.dev = kind
	return nil
}

// Device returns the current compute device.
func (m *Manager) Device() device.Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dev
}

// Dimensions returns the provider's vector dimensionality.
func (m *Manager) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prov.Dimensions()
}

// Status reports the model, device, and the cached availability set.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Model:      m.prov.ModelName(),
		Device:     m.dev,
		Dimensions: m.prov.Dimensions(),
		Available:  m.avail.Available(),
	}
}
