// Package api provides validation utilities for API request handling.
package api

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geo-search/config"
	"github.com/gcbaptista/go-geo-search/model"
	"github.com/gcbaptista/go-geo-search/services"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateIndexName validates an index name parameter
func ValidateIndexName(indexName string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if indexName == "" {
		result.AddError("indexName", "Index name is required")
		return result
	}

	if strings.TrimSpace(indexName) != indexName {
		result.AddError("indexName", "Index name cannot have leading or trailing whitespace")
		return result
	}

	if strings.ContainsAny(indexName, `/\`) || indexName == "." || indexName == ".." {
		result.AddError("indexName", "Index name cannot be a path")
	}

	return result
}

// ValidateDocumentID validates a document ID
func ValidateDocumentID(documentID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if documentID == "" {
		result.AddError("documentID", "Document ID is required")
		return result
	}

	if strings.TrimSpace(documentID) != documentID {
		result.AddError("documentID", "Document ID cannot have leading or trailing whitespace")
		return result
	}

	return result
}

// ValidateIndexSettings applies defaults to settings and reports every
// problem found with the result.
func ValidateIndexSettings(settings *config.IndexSettings) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if settings == nil {
		result.AddError("settings", "Index settings are required")
		return result
	}

	if settings.Name != "" {
		if nameResult := ValidateIndexName(settings.Name); nameResult.HasErrors() {
			for _, e := range nameResult.Errors {
				result.AddError("name", e.Message)
			}
			return result
		}
	}

	settings.ApplyDefaults()
	for _, problem := range settings.Validate() {
		result.AddError("settings", problem)
	}

	return result
}

// ValidateDocuments validates a slice of documents for addition
func ValidateDocuments(docs []model.Document) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(docs) == 0 {
		result.AddError("documents", "No documents provided")
		return result
	}

	for i, doc := range docs {
		docIDVal, exists := doc["documentID"]
		if !exists {
			result.AddError(fmt.Sprintf("documents[%d].documentID", i), "Document must have a 'documentID' field")
			continue
		}

		docIDStr, ok := docIDVal.(string)
		if !ok {
			result.AddError(fmt.Sprintf("documents[%d].documentID", i), "Document ID must be a string")
			continue
		}

		if strings.TrimSpace(docIDStr) == "" {
			result.AddError(fmt.Sprintf("documents[%d].documentID", i), "Document ID cannot be empty or whitespace-only")
			continue
		}
	}

	return result
}

// ValidateGeoQuery checks the parts of a query that do not depend on the
// index it runs against.
func ValidateGeoQuery(query *services.GeoQuery) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(query.Centre) == 0 {
		result.AddError("centre", "At least one centre point is required")
	}
	for i, p := range query.Centre {
		if p.Lng <= -180 || p.Lng > 180 {
			result.AddError(fmt.Sprintf("centre[%d].lng", i), "Longitude must be in (-180, 180]")
		}
	}
	if query.MaxRange != nil && *query.MaxRange < 0 {
		result.AddError("max_range", "Max range cannot be negative")
	}
	if query.K1 != nil && *query.K1 <= 0 {
		result.AddError("k1", "k1 must be greater than 0")
	}
	if query.K2 != nil && *query.K2 <= 0 {
		result.AddError("k2", "k2 must be greater than 0")
	}
	if query.MinWeight < 0 {
		result.AddError("min_weight", "Min weight cannot be negative")
	}
	if query.Page < 0 {
		result.AddError("page", "Page cannot be negative")
	}
	if query.PageSize < 0 {
		result.AddError("page_size", "Page size cannot be negative")
	}

	return result
}

// DecodeSource decodes a base64 serialised posting source.
func DecodeSource(encoded string) ([]byte, *ValidationResult) {
	result := &ValidationResult{Valid: true}

	if encoded == "" {
		result.AddError("source", "Source is required")
		return nil, result
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		result.AddError("source", "Source must be standard base64: "+err.Error())
		return nil, result
	}
	return data, result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}

// ValidateJSONBinding validates JSON binding and returns a standardized error
func ValidateJSONBinding(c *gin.Context, target interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if err := c.ShouldBindJSON(target); err != nil {
		result.AddError("request_body", "Invalid request body: "+err.Error())
	}

	return result
}
