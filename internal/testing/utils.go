// Package testing provides utilities and helpers for testing the geo search engine.
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/internal/engine"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/services"
)

// CreateTestEngine creates a new engine backed by a per-test directory.
func CreateTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.NewEngine(t.TempDir(), geospatial.NewRegistry(), nil)
}

// CreateTestIndex creates a test index with default settings
func CreateTestIndex(t *testing.T, eng *engine.Engine, indexName string) config.IndexSettings {
	t.Helper()
	settings := config.IndexSettings{
		Name:     indexName,
		K1:       100000,
		MaxRange: 0,
	}

	err := eng.CreateIndex(settings)
	require.NoError(t, err, "Failed to create test index")

	settings, err = eng.GetIndexSettings(indexName)
	require.NoError(t, err)
	return settings
}

// AddTestDocuments adds a set of European cities to an index. Every
// supported location format appears at least once; "atlantis" has no
// location and "ferry" has two.
func AddTestDocuments(t *testing.T, eng *engine.Engine, indexName string) []model.Document {
	t.Helper()
	indexAccessor, err := eng.GetIndex(indexName)
	require.NoError(t, err, "Failed to get index accessor")

	docs := []model.Document{
		{
			"documentID": "london",
			"name":       "London",
			"location":   map[string]interface{}{"lat": 51.5074, "lng": -0.1278},
		},
		{
			"documentID": "paris",
			"name":       "Paris",
			"location":   "48.8566,2.3522",
		},
		{
			"documentID": "berlin",
			"name":       "Berlin",
			"location":   []interface{}{52.52, 13.405},
		},
		{
			"documentID": "madrid",
			"name":       "Madrid",
			"location":   map[string]interface{}{"type": "Point", "coordinates": []interface{}{-3.7038, 40.4168}},
		},
		{
			"documentID": "rome",
			"name":       "Rome",
			"location":   map[string]interface{}{"latitude": 41.9028, "longitude": 12.4964},
		},
		{
			"documentID": "ferry",
			"name":       "Dover-Calais ferry",
			"location":   []interface{}{[]interface{}{51.1279, 1.3134}, []interface{}{50.9513, 1.8587}},
		},
		{
			"documentID": "atlantis",
			"name":       "Atlantis",
		},
	}

	err = indexAccessor.AddDocuments(docs)
	require.NoError(t, err, "Failed to add test documents")

	return docs
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name          string
	Query         services.GeoQuery
	ExpectedCount int      // Expected number of hits on the page
	ExpectedFirst string   // Expected first result document ID
	ExpectedOrder []string // Expected document IDs of the page, in order
	ValidateFunc  func(t *testing.T, results *services.SearchResult)
}

// RunSearchTests runs a suite of search tests against an index
func RunSearchTests(t *testing.T, indexAccessor services.IndexAccessor, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			results, err := indexAccessor.Search(context.Background(), tt.Query)
			require.NoError(t, err, "Search should not fail")

			assert.Len(t, results.Hits, tt.ExpectedCount, "Result count should match")

			ids := make([]string, 0, len(results.Hits))
			for _, hit := range results.Hits {
				docID, exists := hit.Document.GetDocumentID()
				require.True(t, exists, "Result should have document ID")
				ids = append(ids, docID)
			}

			if tt.ExpectedFirst != "" && len(ids) > 0 {
				assert.Equal(t, tt.ExpectedFirst, ids[0], "First result should match expected")
			}
			if tt.ExpectedOrder != nil {
				assert.Equal(t, tt.ExpectedOrder, ids, "Result order should match")
			}

			if tt.ValidateFunc != nil {
				tt.ValidateFunc(t, &results)
			}
		})
	}
}
