package handler

import (
	"net/http"
	"time"

	"github.com/Aashish23092/isic-card-ocr/logger"
	"github.com/gin-gonic/gin"
)

const serviceName = "ISIC Card OCR"

// NewRouter builds the gin engine with every ISIC route mounted under
// /api/v1/isic
func NewRouter(isicHandler *ISICHandler, maxMultipartMemory int64) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	if maxMultipartMemory > 0 {
		router.MaxMultipartMemory = maxMultipartMemory
	}

	router.GET("/health", Health)

	api := router.Group("/api/v1")
	{
		isic := api.Group("/isic")
		isic.GET("/health", Health)
		isicHandler.RegisterRoutes(isic)
	}

	return router
}

// Health handles GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		).Info("HTTP request")
	}
}
