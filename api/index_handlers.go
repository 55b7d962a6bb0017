package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geo-search/config"
	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
)

// CreateIndexHandler handles the request to create a new index.
// Request Body: config.IndexSettings
func (api *API) CreateIndexHandler(c *gin.Context) {
	var settings config.IndexSettings

	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(settings); err != nil {
		if errors.Is(err, internalErrors.ErrIndexAlreadyExists) {
			SendIndexExistsError(c, settings.Name)
			return
		}
		SendIndexingError(c, "create index", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Index '" + settings.Name + "' created successfully",
		"settings": settings,
	})
}

// ListIndexesHandler lists all available indexes.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler returns the settings and document count of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":           indexName,
		"settings":       indexAccessor.Settings(),
		"document_count": indexAccessor.DocumentCount(),
	})
}

// DeleteIndexHandler handles deleting an index.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	if err := api.engine.DeleteIndex(indexName); err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendIndexingError(c, "delete index", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// UpdateIndexSettingsHandler handles requests to update index settings.
// The body is laid over the current settings, so omitted fields keep their
// values. Changing location_field or value_slot re-indexes every document.
func (api *API) UpdateIndexSettingsHandler(c *gin.Context) {
	indexName := c.Param("indexName")

	settings, err := api.engine.GetIndexSettings(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendInternalError(c, "get index settings", err)
		return
	}
	original := settings

	if err := c.ShouldBindJSON(&settings); err != nil {
		SendInvalidJSONError(c, err)
		return
	}
	if settings.Name != indexName {
		result := &ValidationResult{Valid: true}
		result.AddError("name", "Index name cannot be changed")
		SendValidationError(c, result)
		return
	}
	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.UpdateIndexSettings(indexName, settings); err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return
		}
		SendIndexingError(c, "update settings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Settings of index '" + indexName + "' updated",
		"settings":  settings,
		"reindexed": original.LocationField != settings.LocationField || original.ValueSlot != settings.ValueSlot,
	})
}
