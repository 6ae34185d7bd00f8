package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/exam-seating-api/internal/handler"
	"github.com/noah-isme/exam-seating-api/internal/middleware"
	"github.com/noah-isme/exam-seating-api/internal/service"
	"github.com/noah-isme/exam-seating-api/pkg/config"
)

// Dependencies carries the wired handlers the router mounts.
type Dependencies struct {
	Allocation *handler.AllocationHandler
	Student    *handler.StudentHandler
	Hall       *handler.HallHandler
	Export     *handler.ExportHandler
	Chat       *handler.ChatHandler
	Metrics    *handler.MetricsHandler

	MetricsService *service.MetricsService
	ChatEnabled    bool
}

// Register mounts every route on the engine.
func Register(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	r.Use(middleware.Metrics(deps.MetricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", deps.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	allocations := api.Group("/allocations")
	{
		allocations.POST("", deps.Allocation.Generate)
		allocations.GET("/:id", deps.Allocation.Get)
		allocations.GET("/:id/summary", deps.Allocation.Summary)
		allocations.GET("/:id/halls/:hallId", deps.Allocation.HallGrid)
		allocations.GET("/:id/conflicts", deps.Allocation.Conflicts)
		allocations.GET("/:id/unplaced", deps.Allocation.Unplaced)
		allocations.POST("/:id/export", deps.Export.Create)
		if deps.ChatEnabled {
			allocations.POST("/:id/chat", deps.Chat.Ask)
		}
	}

	api.GET("/exports/:jobId", deps.Export.Status)
	api.GET("/export/download", deps.Export.Download)

	students := api.Group("/students")
	{
		students.GET("", deps.Student.List)
		students.POST("", deps.Student.Create)
		students.POST("/bulk", deps.Student.BulkCreate)
		students.GET("/:regNo", deps.Student.Get)
		students.PUT("/:regNo", deps.Student.Update)
		students.DELETE("/:regNo", deps.Student.Delete)
	}

	halls := api.Group("/halls")
	{
		halls.GET("", deps.Hall.List)
		halls.POST("", deps.Hall.Create)
		halls.GET("/:id", deps.Hall.Get)
		halls.PUT("/:id", deps.Hall.Update)
		halls.DELETE("/:id", deps.Hall.Delete)
	}
}
