package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/index"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/internal/indexing"
	"github.com/gcbaptista/go-geo-search/internal/search"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/services"
	"github.com/gcbaptista/go-geo-search/store"
)

// IndexInstance holds all components and services for a single geo index.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	settings      *config.IndexSettings
	ValueIndex    *index.ValueIndex
	DocumentStore *store.DocumentStore
	indexer       *indexing.Service
	searcher      *search.Service
}

// NewIndexInstance creates and initializes a new, empty IndexInstance.
func NewIndexInstance(settings config.IndexSettings, registry *geospatial.Registry, logger *slog.Logger) (*IndexInstance, error) {
	return newIndexInstance(settings, index.NewValueIndex(), store.NewDocumentStore(), registry, logger)
}

// newIndexInstance wires the services of an index around existing data.
func newIndexInstance(settings config.IndexSettings, values *index.ValueIndex, docStore *store.DocumentStore, registry *geospatial.Registry, logger *slog.Logger) (*IndexInstance, error) {
	if settings.Name == "" {
		return nil, fmt.Errorf("index name cannot be empty in settings")
	}

	indexerService, err := indexing.NewService(values, docStore, &settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer service: %w", err)
	}
	searchService, err := search.NewService(values, docStore, &settings, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	return &IndexInstance{
		settings:      &settings,
		ValueIndex:    values,
		DocumentStore: docStore,
		indexer:       indexerService,
		searcher:      searchService,
	}, nil
}

// AddDocuments delegates to the underlying Indexer service.
func (i *IndexInstance) AddDocuments(docs []model.Document) error {
	return i.indexer.AddDocuments(docs)
}

// DeleteAllDocuments delegates to the underlying Indexer service.
func (i *IndexInstance) DeleteAllDocuments() error {
	return i.indexer.DeleteAllDocuments()
}

// DeleteDocument delegates to the underlying Indexer service.
func (i *IndexInstance) DeleteDocument(docID string) error {
	return i.indexer.DeleteDocument(docID)
}

// Search delegates to the underlying Searcher service.
func (i *IndexInstance) Search(ctx context.Context, query services.GeoQuery) (services.SearchResult, error) {
	return i.searcher.Search(ctx, query)
}

// SearchSerialised delegates to the underlying Searcher service.
func (i *IndexInstance) SearchSerialised(ctx context.Context, source []byte, page, pageSize int) (services.SearchResult, error) {
	return i.searcher.SearchSerialised(ctx, source, page, pageSize)
}

// DescribeSource delegates to the underlying Searcher service.
func (i *IndexInstance) DescribeSource(query services.GeoQuery) ([]byte, error) {
	return i.searcher.DescribeSource(query)
}

// GetDocument returns the stored document with the given external id.
func (i *IndexInstance) GetDocument(docID string) (model.Document, error) {
	_, doc, ok := i.DocumentStore.Lookup(docID)
	if !ok {
		return nil, internalErrors.NewDocumentNotFoundError(docID, i.settings.Name)
	}
	return doc, nil
}

// DocumentCount returns the number of stored documents.
func (i *IndexInstance) DocumentCount() int {
	return i.DocumentStore.Count()
}

// Settings returns the configuration settings for this index.
func (i *IndexInstance) Settings() config.IndexSettings {
	return *i.settings
}
