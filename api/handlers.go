package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-geo-search/internal/logging"
	"github.com/gcbaptista/go-geo-search/internal/metrics"
	"github.com/gcbaptista/go-geo-search/services"
)

// API holds dependencies for API handlers, primarily the index manager.
type API struct {
	engine services.IndexManager
	logger *slog.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.IndexManager, logger *slog.Logger) *API {
	return &API{
		engine: engine,
		logger: logging.OrDiscard(logger),
	}
}

// SetupRoutes defines all the API routes for the geo search server.
func SetupRoutes(router *gin.Engine, engine services.IndexManager, logger *slog.Logger) {
	apiHandler := NewAPI(engine, logger)

	router.GET("/health", apiHandler.HealthCheckHandler)

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)                              // Create a new index
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                               // List all indexes
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)                       // Settings and document count
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)                 // Delete an index
		indexRoutes.PATCH("/:indexName/settings", apiHandler.UpdateIndexSettingsHandler) // Update index settings

		// Document management routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.PUT("", apiHandler.AddDocumentsHandler)                  // Add/Update documents
			docRoutes.DELETE("", apiHandler.DeleteAllDocumentsHandler)         // Delete all documents
			docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)       // Get specific document
			docRoutes.DELETE("/:documentId", apiHandler.DeleteDocumentHandler) // Delete specific document
		}

		// Search routes per index
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)
		indexRoutes.POST("/:indexName/_search/source", apiHandler.DescribeSourceHandler)
		indexRoutes.POST("/:indexName/_search/remote", apiHandler.RemoteSearchHandler)
	}
}

// SetupMetricsRoute exposes the Prometheus collectors at path.
func SetupMetricsRoute(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(metrics.Handler()))
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-geo-search",
		"indexes":   len(api.engine.ListIndexes()),
		"timestamp": fmt.Sprintf("%d", time.Now().Unix()),
	})
}

// persist writes an index to disk after a change. A failure is reported to
// the client since the change would be lost on restart.
func (api *API) persist(c *gin.Context, indexName string) bool {
	if err := api.engine.PersistIndexData(indexName); err != nil {
		api.logger.Error("failed to persist index", "index", indexName, "error", err)
		SendPersistenceError(c, indexName, err)
		return false
	}
	return true
}
