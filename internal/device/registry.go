package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the live device instances and keeps their metadata
// persisted through a Repository. Runtime devices are materialized once
// per id via the model factories; subsequent registrations of the same id
// refresh metadata without rebuilding states (rebuilding would discard
// history and pending commands).
//
// All public methods are thread-safe. The devices themselves are not;
// hand them to the engine's event loop only.
type Registry struct {
	repo    Repository
	catalog *catalog.Catalog

	mu      sync.RWMutex
	devices map[string]*Device

	logger Logger
}

// NewRegistry creates a device registry backed by the given repository
// and state catalog.
func NewRegistry(repo Repository, cat *catalog.Catalog) *Registry {
	return &Registry{
		repo:    repo,
		catalog: cat,
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Restore materializes devices from every metadata record in the
// repository. Called on startup before any discovery runs. Records whose
// model no factory supports are skipped with a warning, not an error;
// the cache may hold devices this build does not model.
func (r *Registry) Restore(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading device cache: %w", err)
	}

	restored := 0
	for _, meta := range records {
		if _, err := r.register(meta, false); err != nil {
			r.logger.Warn("skipping cached device", "device_id", meta.DeviceID, "model", meta.Model, "error", err)
			continue
		}
		restored++
	}
	r.logger.Info("device registry restored", "count", restored, "cached", len(records))
	return nil
}

// Register materializes a device from discovery metadata and persists the
// metadata. Registering an id already held refreshes its stored metadata
// and returns the existing runtime device.
//
// Returns:
//   - *Device: The live device for this id
//   - error: ErrUnsupportedModel, catalog failures, or persistence failures
func (r *Registry) Register(ctx context.Context, meta Metadata) (*Device, error) {
	d, err := r.register(meta, true)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Upsert(ctx, meta); err != nil {
		return nil, fmt.Errorf("persisting device %s: %w", meta.DeviceID, err)
	}
	return d, nil
}

func (r *Registry) register(meta Metadata, refresh bool) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[meta.DeviceID]; ok {
		if refresh {
			existing.metadata = meta.DeepCopy()
		}
		return existing, nil
	}

	d, err := Build(meta, r.catalog)
	if err != nil {
		return nil, err
	}
	r.devices[meta.DeviceID] = d
	r.logger.Debug("device registered", "device_id", meta.DeviceID, "model", meta.Model)
	return d, nil
}

// Get retrieves a live device by id.
// Returns ErrDeviceNotFound if the device is not registered.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d, nil
}

// List returns all live devices ordered by id.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID() < devices[j].ID() })
	return devices
}

// WithDevice runs fn against the live device for id while holding the
// registry's write lock. Devices themselves are not thread-safe, so
// every caller that mutates or reads device state concurrently with
// report ingestion must go through here.
// Returns ErrDeviceNotFound for unknown ids, otherwise fn's error.
func (r *Registry) WithDevice(id string, fn func(*Device) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return fn(d)
}

// Remove drops a device from the registry and deletes its cached
// metadata. Unknown ids return ErrDeviceNotFound.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.devices[id]
	delete(r.devices, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting cached device %s: %w", id, err)
	}
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
