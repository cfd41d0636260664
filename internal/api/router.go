// Package api wires the read-only HTTP view over a compilation.
package api

import (
	"log/slog"
	"net/http"

	"genx-compile/internal/api/handlers"
	"genx-compile/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with its middleware and routes.
func NewRouter(results *handlers.ResultHandler, origins []string, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(origins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/periods", results.ListPeriods)
		v1.GET("/periods/:year/:level/:metric", results.GetTable)
		v1.GET("/attribution", results.GetAttribution)
		v1.GET("/workbooks/:level", results.GetWorkbook)
		v1.POST("/compile", results.Compile)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
