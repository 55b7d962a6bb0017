package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/index"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/internal/persistence"
	"github.com/gcbaptista/go-geo-search/store"
)

const (
	dataDirPerm       = 0755
	settingsFile      = "settings.gob"
	valueIndexFile    = "value_index.gob"
	documentStoreFile = "document_store.gob"
)

// loadIndexesFromDisk loads all indexes from the data directory.
func (e *Engine) loadIndexesFromDisk() {
	e.logger.Info("loading indexes from disk", "data_dir", e.dataDir)

	if err := os.MkdirAll(e.dataDir, dataDirPerm); err != nil {
		e.logger.Warn("could not create data directory", "data_dir", e.dataDir, "error", err)
	}

	items, err := os.ReadDir(e.dataDir)
	if err != nil {
		e.logger.Warn("failed to read data directory, no indexes loaded", "data_dir", e.dataDir, "error", err)
		return
	}

	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		indexName := item.Name()
		instance, err := e.loadIndex(indexName)
		if err != nil {
			e.logger.Warn("skipping index", "index", indexName, "error", err)
			continue
		}
		e.indexes[indexName] = instance
		e.logger.Info("index loaded", "index", indexName, "documents", instance.DocumentCount())
	}
}

// loadIndex reads one index directory. Missing data files yield empty
// structures; unreadable settings skip the index. A corrupt value index is
// rebuilt from the stored documents.
func (e *Engine) loadIndex(indexName string) (*IndexInstance, error) {
	indexPath := filepath.Join(e.dataDir, indexName)

	var settings config.IndexSettings
	if err := persistence.LoadGob(filepath.Join(indexPath, settingsFile), &settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.Name != indexName {
		return nil, fmt.Errorf("index name in settings ('%s') does not match directory name ('%s')", settings.Name, indexName)
	}
	settings, err := prepareSettings(settings)
	if err != nil {
		return nil, err
	}

	docStore := store.NewDocumentStore()
	dsPath := filepath.Join(indexPath, documentStoreFile)
	if err := persistence.LoadGob(dsPath, docStore); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load document store from %s: %w", dsPath, err)
		}
		e.logger.Info("document store file not found, starting empty", "index", indexName, "path", dsPath)
	}

	values := index.NewValueIndex()
	viPath := filepath.Join(indexPath, valueIndexFile)
	if err := persistence.LoadGob(viPath, values); err != nil {
		if !errors.Is(err, os.ErrNotExist) || docStore.Count() > 0 {
			e.logger.Warn("value index unavailable, rebuilding from documents", "index", indexName, "path", viPath, "error", err)
			return rebuildInstance(settings, docStore, e.registry, e.logger)
		}
	}

	return newIndexInstance(settings, values, docStore, e.registry, e.logger)
}

// PersistIndexData persists the data for a specific index to disk.
func (e *Engine) PersistIndexData(indexName string) error {
	e.mu.RLock()
	instance, exists := e.indexes[indexName]
	e.mu.RUnlock()

	if !exists {
		return internalErrors.NewIndexNotFoundError(indexName)
	}

	return e.persistIndexUnsafe(indexName, instance)
}

// persistIndexUnsafe persists an index instance to disk.
// This method assumes the caller has appropriate locking.
func (e *Engine) persistIndexUnsafe(name string, instance *IndexInstance) error {
	indexPath := filepath.Join(e.dataDir, name)
	if err := os.MkdirAll(indexPath, dataDirPerm); err != nil {
		return fmt.Errorf("failed to create directory for index %s: %w", name, err)
	}

	if err := persistence.SaveGob(filepath.Join(indexPath, settingsFile), *instance.settings); err != nil {
		return fmt.Errorf("failed to save settings for index %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(indexPath, valueIndexFile), instance.ValueIndex); err != nil {
		return fmt.Errorf("failed to save value index for %s: %w", name, err)
	}
	if err := persistence.SaveGob(filepath.Join(indexPath, documentStoreFile), instance.DocumentStore); err != nil {
		return fmt.Errorf("failed to save document store for %s: %w", name, err)
	}

	return nil
}
