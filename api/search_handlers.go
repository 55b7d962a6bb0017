package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/services"
)

// RemoteSearchRequest carries a posting source serialised by another
// process, base64 encoded.
type RemoteSearchRequest struct {
	Source   string `json:"source"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// SourceResponse is the body returned by DescribeSourceHandler.
type SourceResponse struct {
	Source string `json:"source"`
	Slot   uint32 `json:"slot"`
}

// lookupIndex resolves the index named in the path, writing the error
// response and returning nil when it cannot.
func (api *API) lookupIndex(c *gin.Context) (string, services.IndexAccessor) {
	indexName := c.Param("indexName")

	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return indexName, nil
	}

	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		if errors.Is(err, internalErrors.ErrIndexNotFound) {
			SendIndexNotFoundError(c, indexName)
			return indexName, nil
		}
		SendInternalError(c, "get index", err)
		return indexName, nil
	}
	return indexName, indexAccessor
}

// bindGeoQuery decodes and checks a services.GeoQuery request body.
func bindGeoQuery(c *gin.Context) (services.GeoQuery, bool) {
	var query services.GeoQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, "Invalid request body: "+err.Error())
		return query, false
	}
	if result := ValidateGeoQuery(&query); result.HasErrors() {
		SendValidationError(c, result)
		return query, false
	}
	return query, true
}

// SearchHandler ranks the documents of an index by distance.
// Request Body: services.GeoQuery
func (api *API) SearchHandler(c *gin.Context) {
	indexName, indexAccessor := api.lookupIndex(c)
	if indexAccessor == nil {
		return
	}

	query, ok := bindGeoQuery(c)
	if !ok {
		return
	}

	results, err := indexAccessor.Search(c.Request.Context(), query)
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// DescribeSourceHandler returns the serialised posting source a query
// would evaluate, so it can be shipped to a remote search.
func (api *API) DescribeSourceHandler(c *gin.Context) {
	indexName, indexAccessor := api.lookupIndex(c)
	if indexAccessor == nil {
		return
	}

	query, ok := bindGeoQuery(c)
	if !ok {
		return
	}

	data, err := indexAccessor.DescribeSource(query)
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, SourceResponse{
		Source: base64.StdEncoding.EncodeToString(data),
		Slot:   indexAccessor.Settings().ValueSlot,
	})
}

// RemoteSearchHandler evaluates a serialised posting source against an index.
// Request Body: RemoteSearchRequest
func (api *API) RemoteSearchHandler(c *gin.Context) {
	indexName, indexAccessor := api.lookupIndex(c)
	if indexAccessor == nil {
		return
	}

	var req RemoteSearchRequest
	if result := ValidateJSONBinding(c, &req); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	source, result := DecodeSource(req.Source)
	if result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	results, err := indexAccessor.SearchSerialised(c.Request.Context(), source, req.Page, req.PageSize)
	if err != nil {
		SendSearchError(c, indexName, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
