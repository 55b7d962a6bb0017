package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/store"
)

// UpdateIndexSettings replaces the settings of an index.
//
// Scoring settings take effect on the next search. Changing where
// coordinates are read from or stored (LocationField, ValueSlot) re-indexes
// every stored document; if any of them has an invalid location under the
// new settings the update is rejected and the index is left untouched.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	if newSettings.Name != "" && newSettings.Name != name {
		return errors.NewValidationError("name", fmt.Sprintf("cannot change index name from '%s' to '%s'", name, newSettings.Name))
	}
	newSettings.Name = name
	newSettings, err := prepareSettings(newSettings)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	instance, exists := e.indexes[name]
	if !exists {
		return errors.NewIndexNotFoundError(name)
	}

	var updated *IndexInstance
	if requiresReindexing(*instance.settings, newSettings) {
		updated, err = rebuildInstance(newSettings, instance.DocumentStore, e.registry, e.logger)
	} else {
		updated, err = newIndexInstance(newSettings, instance.ValueIndex, instance.DocumentStore, e.registry, e.logger)
	}
	if err != nil {
		return err
	}

	if err := e.persistIndexUnsafe(name, updated); err != nil {
		return fmt.Errorf("failed to persist settings for index '%s': %w", name, err)
	}
	e.indexes[name] = updated
	e.logger.Info("index settings updated", "index", name, "reindexed", updated.ValueIndex != instance.ValueIndex)
	return nil
}

// requiresReindexing reports whether stored values depend on a changed setting.
func requiresReindexing(oldSettings, newSettings config.IndexSettings) bool {
	return oldSettings.LocationField != newSettings.LocationField ||
		oldSettings.ValueSlot != newSettings.ValueSlot
}

// rebuildInstance indexes the documents of docStore into a fresh instance,
// in their original insertion order. docStore itself is not modified.
func rebuildInstance(settings config.IndexSettings, docStore *store.DocumentStore, registry *geospatial.Registry, logger *slog.Logger) (*IndexInstance, error) {
	docs := extractAllDocuments(docStore)

	instance, err := NewIndexInstance(settings, registry, logger)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		if err := instance.AddDocuments(docs); err != nil {
			return nil, fmt.Errorf("failed to re-index documents of '%s': %w", settings.Name, err)
		}
	}
	return instance, nil
}

// extractAllDocuments returns the stored documents ordered by internal id.
func extractAllDocuments(docStore *store.DocumentStore) []model.Document {
	docStore.Mu.RLock()
	defer docStore.Mu.RUnlock()

	ids := make([]uint32, 0, len(docStore.Docs))
	for id := range docStore.Docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, docStore.Docs[id])
	}
	return docs
}
