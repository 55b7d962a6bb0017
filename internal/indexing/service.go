package indexing

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/index"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/internal/logging"
	"github.com/gcbaptista/go-geo-search/internal/metrics"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/store"
)

// microBatchSize bounds how many documents are written per lock acquisition,
// so searches can interleave with large uploads.
const microBatchSize = 10

// Service implements the indexing logic for a single index.
// It fulfills the services.Indexer interface.
type Service struct {
	values        *index.ValueIndex
	documentStore *store.DocumentStore
	settings      *config.IndexSettings
	logger        *slog.Logger
}

// NewService creates a new indexing Service.
func NewService(values *index.ValueIndex, documentStore *store.DocumentStore, settings *config.IndexSettings, logger *slog.Logger) (*Service, error) {
	if values == nil {
		return nil, fmt.Errorf("value index cannot be nil")
	}
	if documentStore == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("index settings cannot be nil")
	}
	if documentStore.Docs == nil {
		documentStore.Docs = make(map[uint32]model.Document)
	}
	if documentStore.ExternalIDtoInternalID == nil {
		documentStore.ExternalIDtoInternalID = make(map[string]uint32)
	}
	if documentStore.NextID < store.FirstDocID {
		documentStore.NextID = store.FirstDocID
	}
	return &Service{
		values:        values,
		documentStore: documentStore,
		settings:      settings,
		logger:        logging.OrDiscard(logger),
	}, nil
}

// preparedDocument is a validated document with its parsed location.
type preparedDocument struct {
	id       string
	doc      model.Document
	location *geospatial.CoordinateSet // nil when the document has no location
	err      error
}

// AddDocuments adds a batch of documents to the index.
// The whole batch is validated before anything is written: one bad document
// rejects the batch. Re-adding a documentID replaces the stored document and
// its coordinates.
func (s *Service) AddDocuments(docs []model.Document) error {
	prepared := iter.Map(docs, func(doc *model.Document) preparedDocument {
		return s.prepare(*doc)
	})
	for _, p := range prepared {
		if p.err != nil {
			return p.err
		}
	}

	for i := 0; i < len(prepared); i += microBatchSize {
		end := i + microBatchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		s.applyMicroBatch(prepared[i:end])
	}

	located := 0
	for _, p := range prepared {
		if p.location != nil {
			located++
		}
	}
	metrics.DocumentsIndexedTotal.Add(float64(len(prepared)))
	s.logger.Debug("documents indexed",
		"index", s.settings.Name,
		"count", len(prepared),
		"located", located)
	return nil
}

func (s *Service) prepare(doc model.Document) preparedDocument {
	idValue, exists := doc["documentID"]
	if !exists || idValue == nil {
		return preparedDocument{err: internalErrors.NewValidationError("documentID",
			"documentID must be provided in the document data with key 'documentID'")}
	}
	idStr, ok := idValue.(string)
	if !ok {
		return preparedDocument{err: internalErrors.NewValidationError("documentID",
			"document documentID has an invalid type, expected string")}
	}
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return preparedDocument{err: internalErrors.NewValidationError("documentID",
			"document documentID cannot be empty or whitespace-only")}
	}

	p := preparedDocument{id: idStr, doc: doc}
	raw, ok := doc.Field(s.settings.LocationField)
	if !ok {
		return p
	}
	location, err := ParseLocation(raw)
	if err != nil {
		p.err = internalErrors.NewLocationError(idStr, s.settings.LocationField, err)
		return p
	}
	if !location.Empty() {
		p.location = location
	}
	return p
}

// applyMicroBatch writes already validated documents under the store lock.
func (s *Service) applyMicroBatch(batch []preparedDocument) {
	s.documentStore.Mu.Lock()
	defer s.documentStore.Mu.Unlock()

	for _, p := range batch {
		internalID, exists := s.documentStore.ExternalIDtoInternalID[p.id]
		if !exists {
			internalID = s.documentStore.NextID
			s.documentStore.ExternalIDtoInternalID[p.id] = internalID
			s.documentStore.NextID++
		}
		s.documentStore.Docs[internalID] = p.doc

		if p.location == nil {
			s.values.Set(internalID, s.settings.ValueSlot, nil)
			continue
		}
		s.values.Set(internalID, s.settings.ValueSlot, p.location.Serialise())
	}
}

// DeleteAllDocuments removes all documents from the index, clearing both the document store and value index.
// Internal ids keep increasing across a clear.
func (s *Service) DeleteAllDocuments() error {
	s.documentStore.Mu.Lock()
	defer s.documentStore.Mu.Unlock()

	s.documentStore.Docs = make(map[uint32]model.Document)
	s.documentStore.ExternalIDtoInternalID = make(map[string]uint32)
	s.values.Clear()

	s.logger.Info("all documents deleted", "index", s.settings.Name)
	return nil
}

// DeleteDocument removes a specific document from the index by its external ID.
func (s *Service) DeleteDocument(docID string) error {
	s.documentStore.Mu.Lock()
	defer s.documentStore.Mu.Unlock()

	internalID, exists := s.documentStore.ExternalIDtoInternalID[docID]
	if !exists {
		return internalErrors.NewDocumentNotFoundError(docID, s.settings.Name)
	}

	delete(s.documentStore.Docs, internalID)
	delete(s.documentStore.ExternalIDtoInternalID, docID)
	s.values.Remove(internalID)
	return nil
}
