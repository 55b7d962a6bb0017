package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/internal/engine"
	"github.com/gcbaptista/go-geo-search/services"
)

func setupTestEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	return engine.NewEngine(dir, geospatial.NewRegistry(), nil), dir
}

func setupTestRouter(eng *engine.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), MetricsMiddleware())
	SetupRoutes(router, eng, nil)
	SetupMetricsRoute(router, "/metrics")
	return router
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr), w.Body.String())
	return apiErr
}

func placesDocuments() []map[string]interface{} {
	return []map[string]interface{}{
		{"documentID": "london", "name": "London", "location": map[string]interface{}{"lat": 51.5074, "lng": -0.1278}},
		{"documentID": "paris", "name": "Paris", "location": map[string]interface{}{"lat": 48.8566, "lng": 2.3522}},
		{"documentID": "berlin", "name": "Berlin", "location": "52.52,13.405"},
	}
}

// setupPlaces creates the "places" index with three capitals.
func setupPlaces(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	eng, dir := setupTestEngine(t)
	router := setupTestRouter(eng)
	w := performRequest(router, http.MethodPost, "/indexes", config.IndexSettings{Name: "places"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = performRequest(router, http.MethodPut, "/indexes/places/documents", placesDocuments())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return router, dir
}

func hitIDs(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var result services.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, _ := hit.Document.GetDocumentID()
		ids = append(ids, id)
	}
	return ids
}

var parisQuery = services.GeoQuery{Centre: []services.Point{{Lat: 48.8566, Lng: 2.3522}}}

func TestHealthCheckHandler(t *testing.T) {
	eng, _ := setupTestEngine(t)
	router := setupTestRouter(eng)

	w := performRequest(router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, float64(0), response["indexes"])
}

func TestCreateIndexHandler(t *testing.T) {
	eng, _ := setupTestEngine(t)
	router := setupTestRouter(eng)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "valid index creation",
			requestBody:    config.IndexSettings{Name: "cafes", K1: 500, MaxRange: 2000},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "missing index name",
			requestBody:    config.IndexSettings{K1: 500},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "negative k2",
			requestBody:    config.IndexSettings{Name: "bad", K2: -1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "path as name",
			requestBody:    config.IndexSettings{Name: "../escape"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "duplicate index",
			requestBody:    config.IndexSettings{Name: "cafes"},
			expectedStatus: http.StatusConflict,
			expectedCode:   ErrorCodeIndexExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/indexes", tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
			}
		})
	}

	assert.Equal(t, []string{"cafes"}, eng.ListIndexes())
}

func TestIndexHandlers(t *testing.T) {
	router, dir := setupPlaces(t)

	w := performRequest(router, http.MethodGet, "/indexes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"indexes":["places"],"count":1}`, w.Body.String())

	w = performRequest(router, http.MethodGet, "/indexes/places", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Name          string               `json:"name"`
		Settings      config.IndexSettings `json:"settings"`
		DocumentCount int                  `json:"document_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "places", info.Name)
	assert.Equal(t, 3, info.DocumentCount)
	assert.Equal(t, config.DefaultLocationField, info.Settings.LocationField)

	w = performRequest(router, http.MethodGet, "/indexes/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeIndexNotFound, decodeError(t, w).Code)

	w = performRequest(router, http.MethodDelete, "/indexes/places", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoDirExists(t, filepath.Join(dir, "places"))

	w = performRequest(router, http.MethodDelete, "/indexes/places", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddDocumentsHandler(t *testing.T) {
	router, dir := setupPlaces(t)

	tests := []struct {
		name           string
		path           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{
			name:           "single document",
			path:           "/indexes/places/documents",
			requestBody:    map[string]interface{}{"documentID": "rome", "location": []interface{}{41.9, 12.5}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "document without location",
			path:           "/indexes/places/documents",
			requestBody:    []map[string]interface{}{{"documentID": "nowhere"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "array item is not an object",
			path:           "/indexes/places/documents",
			requestBody:    []interface{}{"oops"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeInvalidRequest,
		},
		{
			name:           "missing documentID",
			path:           "/indexes/places/documents",
			requestBody:    []map[string]interface{}{{"name": "anonymous"}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "empty array",
			path:           "/indexes/places/documents",
			requestBody:    []interface{}{},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "invalid location",
			path:           "/indexes/places/documents",
			requestBody:    map[string]interface{}{"documentID": "bad", "location": map[string]interface{}{"lat": 10, "lng": 200}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrorCodeValidationFailed,
		},
		{
			name:           "unknown index",
			path:           "/indexes/missing/documents",
			requestBody:    placesDocuments(),
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrorCodeIndexNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPut, tt.path, tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
			}
		})
	}

	assert.FileExists(t, filepath.Join(dir, "places", "document_store.gob"))
	assert.FileExists(t, filepath.Join(dir, "places", "value_index.gob"))

	w := performRequest(router, http.MethodGet, "/indexes/places", nil)
	assert.Contains(t, w.Body.String(), `"document_count":5`)
}

func TestInvalidLocationDetails(t *testing.T) {
	router, _ := setupPlaces(t)

	w := performRequest(router, http.MethodPut, "/indexes/places/documents",
		map[string]interface{}{"documentID": "bad", "location": "not a place"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	apiErr := decodeError(t, w)
	require.Len(t, apiErr.Details, 1)
	assert.Equal(t, "location", apiErr.Details[0].Field)
	assert.Equal(t, "INVALID_LOCATION", apiErr.Details[0].Code)
}

func TestDocumentHandlers(t *testing.T) {
	router, _ := setupPlaces(t)

	w := performRequest(router, http.MethodGet, "/indexes/places/documents/paris", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Paris"`)

	w = performRequest(router, http.MethodGet, "/indexes/places/documents/rome", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeDocumentNotFound, decodeError(t, w).Code)

	w = performRequest(router, http.MethodDelete, "/indexes/places/documents/paris", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodDelete, "/indexes/places/documents/paris", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(router, http.MethodPost, "/indexes/places/_search", parisQuery)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"london", "berlin"}, hitIDs(t, w))

	w = performRequest(router, http.MethodDelete, "/indexes/places/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodPost, "/indexes/places/_search", parisQuery)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, hitIDs(t, w))

	w = performRequest(router, http.MethodDelete, "/indexes/missing/documents", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchHandler(t *testing.T) {
	router, _ := setupPlaces(t)

	t.Run("ranks by distance", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/indexes/places/_search", parisQuery)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"paris", "london", "berlin"}, hitIDs(t, w))

		var result services.SearchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 3, result.MatchesEstimated)
		assert.NotEmpty(t, result.QueryId)
		assert.InDelta(t, 1.0, result.Hits[0].Weight, 1e-9)
	})

	t.Run("max range", func(t *testing.T) {
		maxRange := 400000.0
		query := parisQuery
		query.MaxRange = &maxRange
		w := performRequest(router, http.MethodPost, "/indexes/places/_search", query)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"paris", "london"}, hitIDs(t, w))
	})

	t.Run("sort by distance", func(t *testing.T) {
		query := services.GeoQuery{Centre: []services.Point{{Lat: 52.52, Lng: 13.405}}, SortByDistance: true}
		w := performRequest(router, http.MethodPost, "/indexes/places/_search", query)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"berlin", "paris", "london"}, hitIDs(t, w))
		assert.Contains(t, w.Body.String(), `"sort_key"`)
	})

	t.Run("document restriction", func(t *testing.T) {
		query := parisQuery
		query.DocumentIDs = []string{"berlin", "london"}
		w := performRequest(router, http.MethodPost, "/indexes/places/_search", query)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"london", "berlin"}, hitIDs(t, w))
	})

	tests := []struct {
		name           string
		path           string
		requestBody    interface{}
		expectedStatus int
		expectedCode   ErrorCode
	}{
		{"missing centre", "/indexes/places/_search", services.GeoQuery{}, http.StatusBadRequest, ErrorCodeValidationFailed},
		{"bad longitude", "/indexes/places/_search", services.GeoQuery{Centre: []services.Point{{Lat: 0, Lng: -180}}}, http.StatusBadRequest, ErrorCodeValidationFailed},
		{"malformed body", "/indexes/places/_search", `{"centre": "paris"}`, http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"page size too large", "/indexes/places/_search", services.GeoQuery{Centre: parisQuery.Centre, PageSize: 5000}, http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"page beyond result window", "/indexes/places/_search", services.GeoQuery{Centre: parisQuery.Centre, Page: 1_000_000_000, PageSize: 1000}, http.StatusBadRequest, ErrorCodeInvalidQuery},
		{"unknown index", "/indexes/missing/_search", parisQuery, http.StatusNotFound, ErrorCodeIndexNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, tt.path, tt.requestBody)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestRemoteSearchHandlers(t *testing.T) {
	router, _ := setupPlaces(t)

	w := performRequest(router, http.MethodPost, "/indexes/places/_search/source", parisQuery)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var source SourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &source))
	require.NotEmpty(t, source.Source)
	assert.Equal(t, uint32(0), source.Slot)

	w = performRequest(router, http.MethodPost, "/indexes/places/_search/remote", RemoteSearchRequest{Source: source.Source, PageSize: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"paris", "london"}, hitIDs(t, w))

	tests := []struct {
		name         string
		source       string
		expectedCode ErrorCode
	}{
		{"missing source", "", ErrorCodeValidationFailed},
		{"not base64", "%%%", ErrorCodeValidationFailed},
		{"truncated source", base64.StdEncoding.EncodeToString([]byte("garbage")), ErrorCodeInvalidSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/indexes/places/_search/remote", RemoteSearchRequest{Source: tt.source})
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestUpdateIndexSettingsHandler(t *testing.T) {
	router, _ := setupPlaces(t)

	w := performRequest(router, http.MethodPatch, "/indexes/places/settings", map[string]interface{}{"max_range": 400000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"reindexed":false`)

	w = performRequest(router, http.MethodPost, "/indexes/places/_search", parisQuery)
	assert.Equal(t, []string{"paris", "london"}, hitIDs(t, w))

	w = performRequest(router, http.MethodPatch, "/indexes/places/settings", map[string]interface{}{"location_field": "geo", "max_range": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"reindexed":true`)

	w = performRequest(router, http.MethodPost, "/indexes/places/_search", parisQuery)
	assert.Empty(t, hitIDs(t, w))

	w = performRequest(router, http.MethodPatch, "/indexes/places/settings", map[string]interface{}{"name": "renamed"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorCodeValidationFailed, decodeError(t, w).Code)

	w = performRequest(router, http.MethodPatch, "/indexes/places/settings", map[string]interface{}{"k1": -5})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(router, http.MethodPatch, "/indexes/missing/settings", map[string]interface{}{"k1": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMiddleware(t *testing.T) {
	eng, _ := setupTestEngine(t)

	t.Run("request id", func(t *testing.T) {
		router := setupTestRouter(eng)

		w := performRequest(router, http.MethodGet, "/indexes/missing", nil)
		generated := w.Header().Get(requestIDHeader)
		require.NotEmpty(t, generated)
		assert.Equal(t, generated, decodeError(t, w).RequestID)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "client-id")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "client-id", w.Header().Get(requestIDHeader))
	})

	t.Run("cors", func(t *testing.T) {
		router := gin.New()
		router.Use(CORSMiddleware([]string{"https://maps.example.com"}))
		SetupRoutes(router, eng, nil)

		req := httptest.NewRequest(http.MethodOptions, "/indexes", nil)
		req.Header.Set("Origin", "https://maps.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://maps.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://elsewhere.example.com")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("body size limit", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestSizeLimitMiddleware(64))
		SetupRoutes(router, eng, nil)

		body := `{"name": "` + strings.Repeat("x", 200) + `"}`
		w := performRequest(router, http.MethodPost, "/indexes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		router := setupTestRouter(eng)
		performRequest(router, http.MethodGet, "/health", nil)

		w := performRequest(router, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `geosearch_http_requests_total{method="GET",route="/health",status="200"}`)
	})
}
