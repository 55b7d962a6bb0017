package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/internal/logging"
	"github.com/gcbaptista/go-geo-search/internal/metrics"
	"github.com/gcbaptista/go-geo-search/services"
)

// Engine manages multiple geo indexes.
// It implements the services.IndexManager interface.
type Engine struct {
	mu       sync.RWMutex
	indexes  map[string]*IndexInstance
	dataDir  string
	registry *geospatial.Registry
	logger   *slog.Logger
}

// NewEngine creates a new engine and loads any indexes found in dataDir.
// The registry resolves distance metrics of serialised posting sources; a
// nil registry gets the default one.
func NewEngine(dataDir string, registry *geospatial.Registry, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = geospatial.NewRegistry()
	}
	eng := &Engine{
		indexes:  make(map[string]*IndexInstance),
		dataDir:  dataDir,
		registry: registry,
		logger:   logging.OrDiscard(logger),
	}
	eng.loadIndexesFromDisk()
	metrics.Indexes.Set(float64(len(eng.indexes)))
	return eng
}

// prepareSettings applies defaults and validates settings.
func prepareSettings(settings config.IndexSettings) (config.IndexSettings, error) {
	settings.ApplyDefaults()
	if problems := settings.Validate(); len(problems) > 0 {
		return settings, errors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	return settings, nil
}

// CreateIndex creates a new index with the given settings and persists it.
func (e *Engine) CreateIndex(settings config.IndexSettings) error {
	settings, err := prepareSettings(settings)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	instance, err := NewIndexInstance(settings, e.registry, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create new index instance for '%s': %w", settings.Name, err)
	}

	if err := e.persistIndexUnsafe(settings.Name, instance); err != nil {
		return fmt.Errorf("failed to persist new index '%s': %w", settings.Name, err)
	}

	e.indexes[settings.Name] = instance
	metrics.Indexes.Set(float64(len(e.indexes)))
	e.logger.Info("index created", "index", settings.Name, "location_field", settings.LocationField, "value_slot", settings.ValueSlot)
	return nil
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves the settings for a specific index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return config.IndexSettings{}, errors.NewIndexNotFoundError(name)
	}
	return *instance.settings, nil // Return a copy
}

// DeleteIndex deletes an index and its data from disk.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; !exists {
		return errors.NewIndexNotFoundError(name)
	}

	delete(e.indexes, name)
	metrics.Indexes.Set(float64(len(e.indexes)))

	indexPath := filepath.Join(e.dataDir, name)
	if err := os.RemoveAll(indexPath); err != nil {
		return fmt.Errorf("failed to remove index directory %s: %w", indexPath, err)
	}

	e.logger.Info("index deleted", "index", name)
	return nil
}

// ListIndexes returns the names of all loaded indexes, sorted.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry returns the metric registry shared by all indexes.
func (e *Engine) Registry() *geospatial.Registry {
	return e.registry
}
