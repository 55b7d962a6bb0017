package search

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/index"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/internal/logging"
	"github.com/gcbaptista/go-geo-search/internal/metrics"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/services"
	"github.com/gcbaptista/go-geo-search/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 1000
	// maxResultWindow bounds page*pageSize, the number of hits held while
	// ranking.
	maxResultWindow = 100000

	modeRelevance = "relevance"
	modeDistance  = "distance"
	modeRemote    = "remote"
)

// Service implements the search logic for a single index.
// It fulfills the services.Searcher interface.
type Service struct {
	values        *index.ValueIndex
	documentStore *store.DocumentStore
	settings      *config.IndexSettings
	registry      *geospatial.Registry
	logger        *slog.Logger
}

// NewService creates a new search Service. The registry resolves metrics of
// serialised posting sources received through SearchSerialised.
func NewService(values *index.ValueIndex, docStore *store.DocumentStore, settings *config.IndexSettings, registry *geospatial.Registry, logger *slog.Logger) (*Service, error) {
	if values == nil {
		return nil, fmt.Errorf("value index cannot be nil")
	}
	if docStore == nil {
		return nil, fmt.Errorf("document store cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("metric registry cannot be nil")
	}
	return &Service{
		values:        values,
		documentStore: docStore,
		settings:      settings,
		registry:      registry,
		logger:        logging.OrDiscard(logger),
	}, nil
}

// Search ranks the documents of the index by distance from the query centre.
//
// By default hits are ordered by weight, highest first. With SortByDistance
// they are ordered by their distance key instead, nearest first, and
// IncludeUnlocated appends documents without coordinates at the end.
func (s *Service) Search(ctx context.Context, query services.GeoQuery) (services.SearchResult, error) {
	startTime := time.Now()

	page, pageSize, err := normalisePage(query.Page, query.PageSize)
	if err != nil {
		return services.SearchResult{}, err
	}
	if query.MinWeight < 0 {
		return services.SearchResult{}, internalErrors.NewValidationError("min_weight", "must not be negative")
	}

	source, err := s.buildSource(query)
	if err != nil {
		return services.SearchResult{}, err
	}
	restrict := s.resolveRestriction(query.DocumentIDs)

	mode := modeRelevance
	var hits []candidateHit
	var counts matchCounts
	if query.SortByDistance {
		mode = modeDistance
		hits, counts, err = s.collectByDistance(ctx, source, query, restrict)
	} else {
		hits, counts, err = s.collectByWeight(ctx, source, query.MinWeight, restrict, page*pageSize)
	}
	if err != nil {
		return services.SearchResult{}, err
	}

	return s.finish(source, mode, hits, counts, page, pageSize, query.RetrivableFields, startTime), nil
}

// SearchSerialised evaluates a posting source produced by DescribeSource,
// typically in another process. The source fully describes the ranking;
// the index settings only supply the documents.
func (s *Service) SearchSerialised(ctx context.Context, data []byte, page, pageSize int) (services.SearchResult, error) {
	startTime := time.Now()

	page, pageSize, err := normalisePage(page, pageSize)
	if err != nil {
		return services.SearchResult{}, err
	}

	source, err := geospatial.UnserialiseDistancePostingSource(data, s.registry)
	if err != nil {
		return services.SearchResult{}, fmt.Errorf("failed to decode posting source: %w", err)
	}
	if source.Slot() != s.settings.ValueSlot {
		s.logger.Warn("posting source reads a different value slot",
			"index", s.settings.Name,
			"source_slot", source.Slot(),
			"index_slot", s.settings.ValueSlot)
	}

	hits, counts, err := s.collectByWeight(ctx, source, 0, nil, page*pageSize)
	if err != nil {
		return services.SearchResult{}, err
	}
	return s.finish(source, modeRemote, hits, counts, page, pageSize, nil, startTime), nil
}

// DescribeSource returns the serialised posting source Search would use for
// query, for evaluation elsewhere with SearchSerialised.
func (s *Service) DescribeSource(query services.GeoQuery) ([]byte, error) {
	source, err := s.buildSource(query)
	if err != nil {
		return nil, err
	}
	return source.Serialise(), nil
}

func normalisePage(page, pageSize int) (int, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		return 0, 0, internalErrors.NewValidationError("page_size", fmt.Sprintf("must not exceed %d", maxPageSize))
	}
	if page > maxResultWindow/pageSize {
		return 0, 0, internalErrors.NewValidationError("page", fmt.Sprintf("page * page_size must not exceed %d", maxResultWindow))
	}
	return page, pageSize, nil
}

// buildSource turns the query centre and overrides into a posting source
// reading the index's value slot.
func (s *Service) buildSource(query services.GeoQuery) (*geospatial.DistancePostingSource, error) {
	centre, err := centreFromPoints(query.Centre)
	if err != nil {
		return nil, err
	}
	metric, err := s.settings.Metric()
	if err != nil {
		return nil, fmt.Errorf("index '%s' has an invalid metric: %w", s.settings.Name, err)
	}

	opts := []geospatial.PostingSourceOption{
		geospatial.WithMaxRange(s.settings.MaxRange),
		geospatial.WithK1(s.settings.K1),
		geospatial.WithK2(s.settings.K2),
	}
	if query.MaxRange != nil {
		opts = append(opts, geospatial.WithMaxRange(*query.MaxRange))
	}
	if query.K1 != nil {
		opts = append(opts, geospatial.WithK1(*query.K1))
	}
	if query.K2 != nil {
		opts = append(opts, geospatial.WithK2(*query.K2))
	}

	return geospatial.NewDistancePostingSource(s.settings.ValueSlot, centre, metric, opts...)
}

func centreFromPoints(points []services.Point) (*geospatial.CoordinateSet, error) {
	if len(points) == 0 {
		return nil, internalErrors.NewValidationError("centre", "at least one centre point is required")
	}
	centre := geospatial.NewCoordinateSet()
	for i, p := range points {
		c, err := geospatial.NewCoordinate(p.Lat, p.Lng)
		if err != nil {
			return nil, internalErrors.NewValidationError(fmt.Sprintf("centre[%d]", i), err.Error())
		}
		centre.Insert(c)
	}
	return centre, nil
}

// resolveRestriction maps external document ids to sorted internal ids.
// Unknown ids are ignored. A nil result means no restriction.
func (s *Service) resolveRestriction(documentIDs []string) []uint32 {
	if documentIDs == nil {
		return nil
	}
	s.documentStore.Mu.RLock()
	defer s.documentStore.Mu.RUnlock()

	ids := make([]uint32, 0, len(documentIDs))
	seen := make(map[uint32]struct{}, len(documentIDs))
	for _, ext := range documentIDs {
		id, ok := s.documentStore.ExternalIDtoInternalID[ext]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// finish pages the ordered candidates, attaches documents and records
// metrics.
func (s *Service) finish(source *geospatial.DistancePostingSource, mode string, hits []candidateHit, counts matchCounts, page, pageSize int, fields []string, startTime time.Time) services.SearchResult {
	startIndex := (page - 1) * pageSize
	endIndex := startIndex + pageSize
	var pageHits []candidateHit
	if startIndex < len(hits) {
		if endIndex > len(hits) {
			endIndex = len(hits)
		}
		pageHits = hits[startIndex:endIndex]
	}

	results := make([]services.HitResult, 0, len(pageHits))
	s.documentStore.Mu.RLock()
	for _, h := range pageHits {
		doc, ok := s.documentStore.Docs[h.docID]
		if !ok {
			// deleted after the value snapshot was taken
			continue
		}
		hit := services.HitResult{
			Document: projectFields(doc, fields),
			Distance: h.distance,
			Weight:   h.weight,
		}
		if h.key != nil {
			hit.SortKey = hex.EncodeToString(h.key)
		}
		results = append(results, hit)
	}
	s.documentStore.Mu.RUnlock()

	stats := source.Stats()
	metrics.ObservePostingStats(stats)
	metrics.SearchesTotal.WithLabelValues(mode).Inc()
	took := time.Since(startTime)
	metrics.SearchDurationMs.WithLabelValues(mode).Observe(float64(took.Microseconds()) / 1000)

	queryUUID := uuid.New().String()
	s.logger.Debug("search finished",
		"index", s.settings.Name,
		"query_id", queryUUID,
		"mode", mode,
		"source", source.String(),
		"evaluated", stats.Evaluated,
		"skipped_malformed", stats.SkippedMalformed,
		"skipped_out_of_range", stats.SkippedOutOfRange,
		"skipped_below_weight", stats.SkippedBelowWeight,
		"matches", counts.estimated)

	return services.SearchResult{
		Hits:              results,
		MatchesLowerBound: counts.lower,
		MatchesEstimated:  counts.estimated,
		MatchesUpperBound: counts.upper,
		Page:              page,
		PageSize:          pageSize,
		Took:              took.Milliseconds(),
		QueryId:           queryUUID,
	}
}

// projectFields returns doc restricted to fields. documentID is always kept.
func projectFields(doc model.Document, fields []string) model.Document {
	if len(fields) == 0 {
		return doc
	}
	out := make(model.Document, len(fields)+1)
	if id, ok := doc["documentID"]; ok {
		out["documentID"] = id
	}
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
