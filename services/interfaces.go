package services

import (
	"context"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/model"
)

// Point is a query centre in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HitResult represents a single document in the search results.
type HitResult struct {
	Document model.Document `json:"document"`
	Distance float64        `json:"distance"`           // Metres to the nearest centre; -1 for unlocated documents
	Weight   float64        `json:"weight"`             // Relevance weight derived from Distance
	SortKey  string         `json:"sort_key,omitempty"` // Hex encoded distance key, set when sorting by distance
}

// SearchResult holds one page of hits.
//
// The posting source cannot know how many documents it will reject until it
// has visited them all, so the number of matches is reported as bounds. They
// are equal once the whole value slot has been walked.
type SearchResult struct {
	Hits              []HitResult `json:"hits"`
	MatchesLowerBound int         `json:"matches_lower_bound"`
	MatchesEstimated  int         `json:"matches_estimated"`
	MatchesUpperBound int         `json:"matches_upper_bound"`
	Page              int         `json:"page"`
	PageSize          int         `json:"page_size"`
	Took              int64       `json:"took"`     // milliseconds
	QueryId           string      `json:"query_id"` // unique UUID for this search query
}

// GeoQuery ranks the documents of an index by their distance from Centre.
// Pointer fields override the index settings when set.
type GeoQuery struct {
	Centre           []Point  `json:"centre"`
	MaxRange         *float64 `json:"max_range,omitempty"`         // metres; 0 means unlimited
	K1               *float64 `json:"k1,omitempty"`                // weighting constant
	K2               *float64 `json:"k2,omitempty"`                // weighting exponent
	MinWeight        float64  `json:"min_weight,omitempty"`        // hits weighing less are dropped
	SortByDistance   bool     `json:"sort_by_distance,omitempty"`  // order by distance key instead of weight
	IncludeUnlocated bool     `json:"include_unlocated,omitempty"` // with SortByDistance, append documents without coordinates
	DocumentIDs      []string `json:"document_ids,omitempty"`      // Optional: restrict matches to these documents
	RetrivableFields []string `json:"retrivable_fields,omitempty"` // Optional: subset of document fields to return in results
	Page             int      `json:"page"`
	PageSize         int      `json:"page_size"`
}

// Indexer defines operations for adding data to an index
type Indexer interface {
	AddDocuments(docs []model.Document) error
	DeleteAllDocuments() error
	DeleteDocument(docID string) error
}

// Searcher defines operations for querying an index
type Searcher interface {
	Search(ctx context.Context, query GeoQuery) (SearchResult, error)
	// SearchSerialised evaluates a posting source serialised by DescribeSource,
	// possibly in another process.
	SearchSerialised(ctx context.Context, source []byte, page, pageSize int) (SearchResult, error)
	DescribeSource(query GeoQuery) ([]byte, error)
}

// IndexManager manages the lifecycle of indices
type IndexManager interface {
	CreateIndex(settings config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error) // IndexAccessor combines Indexer and Searcher
	GetIndexSettings(name string) (config.IndexSettings, error)
	UpdateIndexSettings(name string, settings config.IndexSettings) error
	DeleteIndex(name string) error
	ListIndexes() []string
	PersistIndexData(indexName string) error
}

type IndexAccessor interface {
	Indexer
	Searcher
	Settings() config.IndexSettings
	GetDocument(docID string) (model.Document, error)
	DocumentCount() int
}
