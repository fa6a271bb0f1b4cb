package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users/:user_id")
		{
			users.POST("/credentials", handler.SetCredentials)
			users.POST("/sync", handler.TriggerSync)
			users.GET("/sync/history", handler.GetSyncHistory)
			users.GET("/subjects", handler.ListSubjects)
			users.GET("/grades/recent", handler.ListRecentGrades)
			users.POST("/report", handler.TriggerReport)
			users.GET("/reports/:file", handler.DownloadReport)
		}
	}
}
