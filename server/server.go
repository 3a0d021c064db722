package server

import (
	"github.com/gin-gonic/gin"

	"cnpjserver/server/handlers"
	"cnpjserver/server/middleware"
)

// NewRouter monta o roteador Gin com os middlewares e rotas da API
func NewRouter(h *handlers.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.GinCORSMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/cnpj/:cnpj", h.LookupCNPJ)
		api.POST("/enrich", h.EnrichFile)
		api.GET("/runs", h.ListRuns)
	}

	return router
}
