package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	internalErrors "github.com/gcbaptista/go-geo-search/internal/errors"
	"github.com/gcbaptista/go-geo-search/model"
)

// AddDocumentsHandler handles adding/updating documents in an index.
// The body is either a single document object or an array of them.
func (api *API) AddDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendIndexNotFoundError(c, indexName)
		return
	}

	var rawData interface{}
	if err := c.ShouldBindJSON(&rawData); err != nil {
		SendInvalidJSONError(c, err)
		return
	}

	var docs []model.Document
	if dataSlice, isSlice := rawData.([]interface{}); isSlice {
		docs = make([]model.Document, len(dataSlice))
		for i, item := range dataSlice {
			docMap, isMap := item.(map[string]interface{})
			if !isMap {
				SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, fmt.Sprintf("Document at index %d is not a valid object", i))
				return
			}
			docs[i] = docMap
		}
	} else if docMap, isMap := rawData.(map[string]interface{}); isMap {
		docs = []model.Document{docMap}
	} else {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidRequest, "Invalid request body. Expecting a document object or an array of documents")
		return
	}

	if result := ValidateDocuments(docs); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	for _, doc := range docs {
		doc["documentID"] = strings.TrimSpace(doc["documentID"].(string))
	}

	if err := indexAccessor.AddDocuments(docs); err != nil {
		SendIndexingError(c, "add documents", err)
		return
	}
	if !api.persist(c, indexName) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        fmt.Sprintf("%d document(s) added/updated in index '%s'", len(docs), indexName),
		"document_count": len(docs),
	})
}

// GetDocumentHandler retrieves a specific document by ID
func (api *API) GetDocumentHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	documentId := c.Param("documentId")

	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendIndexNotFoundError(c, indexName)
		return
	}

	document, err := indexAccessor.GetDocument(documentId)
	if err != nil {
		SendDocumentNotFoundError(c, documentId, indexName)
		return
	}

	c.JSON(http.StatusOK, document)
}

// DeleteDocumentHandler deletes a specific document by ID
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	documentId := c.Param("documentId")

	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendIndexNotFoundError(c, indexName)
		return
	}

	if err := indexAccessor.DeleteDocument(documentId); err != nil {
		if errors.Is(err, internalErrors.ErrDocumentNotFound) {
			SendDocumentNotFoundError(c, documentId, indexName)
			return
		}
		SendIndexingError(c, "delete document", err)
		return
	}
	if !api.persist(c, indexName) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document '" + documentId + "' deleted from index '" + indexName + "'"})
}

// DeleteAllDocumentsHandler handles the request to delete all documents from an index.
func (api *API) DeleteAllDocumentsHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	indexAccessor, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendIndexNotFoundError(c, indexName)
		return
	}

	if err := indexAccessor.DeleteAllDocuments(); err != nil {
		SendIndexingError(c, "delete all documents", err)
		return
	}
	if !api.persist(c, indexName) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All documents deleted from index '" + indexName + "'"})
}
