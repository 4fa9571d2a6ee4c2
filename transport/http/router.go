package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/docrag"
	"github.com/flarexio/docrag/upload"

	mcpE "github.com/flarexio/docrag/mcp"
)

// AddRouters registers the REST routes. Browser clients on any origin may call
// them, so the CORS middleware is installed first and also covers routes
// added afterwards.
func AddRouters(r *gin.Engine, endpoints docrag.EndpointSet, store *upload.Store) {
	r.Use(cors.Default())

	r.GET("/health", HealthHandler())
	r.POST("/upload", UploadHandler(store))
	r.POST("/ingest", IngestHandler(endpoints.Ingest))
	r.POST("/query", QueryHandler(endpoints.Query))
	r.POST("/search", SearchHandler(endpoints.Search))
	r.POST("/llm_test", GenerateHandler(endpoints.Generate))
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}

func AddMetricsRouter(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
