package api

import (
	"encoding/base64"
	"testing"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/services"
)

func TestValidationResult_AddError(t *testing.T) {
	result := &ValidationResult{Valid: true}

	result.AddError("field1", "error message")

	if result.Valid {
		t.Error("Expected Valid to be false after adding error")
	}

	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error, got %d", len(result.Errors))
	}

	if result.Errors[0].Field != "field1" {
		t.Errorf("Expected field 'field1', got '%s'", result.Errors[0].Field)
	}

	if result.Errors[0].Message != "error message" {
		t.Errorf("Expected message 'error message', got '%s'", result.Errors[0].Message)
	}
}

func TestValidationResult_HasErrors(t *testing.T) {
	result := &ValidationResult{Valid: true}

	if result.HasErrors() {
		t.Error("Expected HasErrors to be false for empty result")
	}

	result.AddError("field", "message")

	if !result.HasErrors() {
		t.Error("Expected HasErrors to be true after adding error")
	}
}

func TestValidateIndexName(t *testing.T) {
	tests := []struct {
		name      string
		indexName string
		wantValid bool
		wantError string
	}{
		{
			name:      "valid index name",
			indexName: "test-index",
			wantValid: true,
		},
		{
			name:      "empty index name",
			indexName: "",
			wantValid: false,
			wantError: "Index name is required",
		},
		{
			name:      "index name with leading whitespace",
			indexName: " test-index",
			wantValid: false,
			wantError: "Index name cannot have leading or trailing whitespace",
		},
		{
			name:      "index name with trailing whitespace",
			indexName: "test-index ",
			wantValid: false,
			wantError: "Index name cannot have leading or trailing whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexName(tt.indexName)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateIndexName() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid && len(result.Errors) > 0 {
				if result.Errors[0].Message != tt.wantError {
					t.Errorf("ValidateIndexName() error = %v, want %v", result.Errors[0].Message, tt.wantError)
				}
			}
		})
	}
}

func TestValidateDocumentID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		wantValid  bool
		wantError  string
	}{
		{
			name:       "valid document ID",
			documentID: "doc-123",
			wantValid:  true,
		},
		{
			name:       "empty document ID",
			documentID: "",
			wantValid:  false,
			wantError:  "Document ID is required",
		},
		{
			name:       "document ID with leading whitespace",
			documentID: " doc-123",
			wantValid:  false,
			wantError:  "Document ID cannot have leading or trailing whitespace",
		},
		{
			name:       "document ID with trailing whitespace",
			documentID: "doc-123 ",
			wantValid:  false,
			wantError:  "Document ID cannot have leading or trailing whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocumentID(tt.documentID)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateDocumentID() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid && len(result.Errors) > 0 {
				if result.Errors[0].Message != tt.wantError {
					t.Errorf("ValidateDocumentID() error = %v, want %v", result.Errors[0].Message, tt.wantError)
				}
			}
		})
	}
}

func TestValidateIndexSettings(t *testing.T) {
	tests := []struct {
		name      string
		settings  *config.IndexSettings
		wantValid bool
		wantError string
	}{
		{
			name: "valid settings",
			settings: &config.IndexSettings{
				Name:     "test-index",
				K1:       1000,
				MaxRange: 5000,
			},
			wantValid: true,
		},
		{
			name:      "nil settings",
			settings:  nil,
			wantValid: false,
			wantError: "Index settings are required",
		},
		{
			name:      "empty name",
			settings:  &config.IndexSettings{K1: 1000},
			wantValid: false,
			wantError: "Index name cannot be empty",
		},
		{
			name:      "name with path separator",
			settings:  &config.IndexSettings{Name: "a/b"},
			wantValid: false,
			wantError: "Index name cannot be a path",
		},
		{
			name:      "documentID as location field",
			settings:  &config.IndexSettings{Name: "test-index", LocationField: "documentID"},
			wantValid: false,
			wantError: "Location field cannot be 'documentID'",
		},
		{
			name:      "negative max range",
			settings:  &config.IndexSettings{Name: "test-index", MaxRange: -1},
			wantValid: false,
			wantError: "max_range must be zero (unlimited) or a positive number of metres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexSettings(tt.settings)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateIndexSettings() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid && len(result.Errors) > 0 {
				found := false
				for _, err := range result.Errors {
					if err.Message == tt.wantError {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("ValidateIndexSettings() expected error '%v' not found in %v", tt.wantError, result.Errors)
				}
			}
		})
	}
}

func TestValidateIndexSettings_AppliesDefaults(t *testing.T) {
	settings := &config.IndexSettings{Name: "test-index"}
	if result := ValidateIndexSettings(settings); result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if settings.LocationField != config.DefaultLocationField {
		t.Errorf("LocationField = %q, want %q", settings.LocationField, config.DefaultLocationField)
	}
	if settings.K1 <= 0 || settings.K2 <= 0 || settings.EarthRadius <= 0 {
		t.Errorf("defaults not applied: %+v", settings)
	}
}

func TestValidateDocuments(t *testing.T) {
	tests := []struct {
		name      string
		docs      []model.Document
		wantValid bool
		wantError string
	}{
		{
			name: "valid documents",
			docs: []model.Document{
				{"documentID": "doc1", "title": "Test"},
				{"documentID": "doc2", "title": "Test 2"},
			},
			wantValid: true,
		},
		{
			name:      "empty documents",
			docs:      []model.Document{},
			wantValid: false,
			wantError: "No documents provided",
		},
		{
			name: "missing documentID",
			docs: []model.Document{
				{"title": "Test"},
			},
			wantValid: false,
			wantError: "Document must have a 'documentID' field",
		},
		{
			name: "non-string documentID",
			docs: []model.Document{
				{"documentID": 123, "title": "Test"},
			},
			wantValid: false,
			wantError: "Document ID must be a string",
		},
		{
			name: "empty documentID",
			docs: []model.Document{
				{"documentID": "", "title": "Test"},
			},
			wantValid: false,
			wantError: "Document ID cannot be empty or whitespace-only",
		},
		{
			name: "whitespace-only documentID",
			docs: []model.Document{
				{"documentID": "   ", "title": "Test"},
			},
			wantValid: false,
			wantError: "Document ID cannot be empty or whitespace-only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocuments(tt.docs)

			if result.Valid != tt.wantValid {
				t.Errorf("ValidateDocuments() Valid = %v, want %v", result.Valid, tt.wantValid)
			}

			if !tt.wantValid && len(result.Errors) > 0 {
				found := false
				for _, err := range result.Errors {
					if err.Message == tt.wantError {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("ValidateDocuments() expected error '%v' not found in %v", tt.wantError, result.Errors)
				}
			}
		})
	}
}

func TestValidateGeoQuery(t *testing.T) {
	negative := -1.0
	zero := 0.0
	centre := []services.Point{{Lat: 51.5, Lng: -0.12}}

	tests := []struct {
		name      string
		query     services.GeoQuery
		wantField string
	}{
		{name: "valid query", query: services.GeoQuery{Centre: centre}},
		{name: "unlimited range", query: services.GeoQuery{Centre: centre, MaxRange: &zero}},
		{name: "latitude wraps", query: services.GeoQuery{Centre: []services.Point{{Lat: 95, Lng: 10}}}},
		{name: "no centre", query: services.GeoQuery{}, wantField: "centre"},
		{name: "longitude -180", query: services.GeoQuery{Centre: []services.Point{{Lat: 0, Lng: -180}}}, wantField: "centre[0].lng"},
		{name: "longitude over 180", query: services.GeoQuery{Centre: []services.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 181}}}, wantField: "centre[1].lng"},
		{name: "negative range", query: services.GeoQuery{Centre: centre, MaxRange: &negative}, wantField: "max_range"},
		{name: "zero k1", query: services.GeoQuery{Centre: centre, K1: &zero}, wantField: "k1"},
		{name: "negative k2", query: services.GeoQuery{Centre: centre, K2: &negative}, wantField: "k2"},
		{name: "negative min weight", query: services.GeoQuery{Centre: centre, MinWeight: -0.5}, wantField: "min_weight"},
		{name: "negative page", query: services.GeoQuery{Centre: centre, Page: -1}, wantField: "page"},
		{name: "negative page size", query: services.GeoQuery{Centre: centre, PageSize: -1}, wantField: "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateGeoQuery(&tt.query)

			if tt.wantField == "" {
				if result.HasErrors() {
					t.Errorf("ValidateGeoQuery() unexpected errors %v", result.Errors)
				}
				return
			}
			if len(result.Errors) != 1 || result.Errors[0].Field != tt.wantField {
				t.Errorf("ValidateGeoQuery() errors = %v, want one on %q", result.Errors, tt.wantField)
			}
		})
	}
}

func TestDecodeSource(t *testing.T) {
	data, result := DecodeSource(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	if result.HasErrors() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if string(data) != "\x01\x02\x03" {
		t.Errorf("DecodeSource() = %v", data)
	}

	for _, encoded := range []string{"", "not base64!"} {
		if _, result := DecodeSource(encoded); !result.HasErrors() {
			t.Errorf("DecodeSource(%q) expected an error", encoded)
		}
	}
}
